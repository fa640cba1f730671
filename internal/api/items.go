package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/sledljivost/internal/imaging"
	"github.com/erazemk/sledljivost/internal/ledger"
	"github.com/erazemk/sledljivost/internal/model"
	"github.com/erazemk/sledljivost/internal/photostore"
)

// ItemsHandler handles produce item endpoints.
type ItemsHandler struct {
	Ledger *ledger.Ledger
	Photos photostore.Store
}

type sellRequest struct {
	Price model.Amount `json:"price"`
}

type buyRequest struct {
	Payment model.Amount `json:"payment"`
}

// List handles GET /api/items with optional state and owner filters.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter model.ItemFilter
	if s := r.URL.Query().Get("state"); s != "" {
		state, err := model.ParseState(s)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.State = &state
	}
	filter.Owner = r.URL.Query().Get("owner")

	items, err := h.Ledger.ListItems(r.Context(), filter)
	if err != nil {
		ledgerError(w, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Harvest handles POST /api/items. The farmer defaults to the caller.
func (h *ItemsHandler) Harvest(w http.ResponseWriter, r *http.Request) {
	var req model.Harvest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FarmerID == "" {
		req.FarmerID = identity(r)
	}

	item, err := h.Ledger.HarvestItem(r.Context(), identity(r), req)
	if err != nil {
		ledgerError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// transition adapts a body-less lifecycle operation to a handler that
// responds with the updated record.
func (h *ItemsHandler) transition(op func(ctx context.Context, caller string, upc uint64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		upc, ok := parseUPC(w, r)
		if !ok {
			return
		}
		if err := op(r.Context(), identity(r), upc); err != nil {
			ledgerError(w, err)
			return
		}
		h.respondItem(w, r, upc)
	}
}

// Sell handles POST /api/items/{upc}/sell.
func (h *ItemsHandler) Sell(w http.ResponseWriter, r *http.Request) {
	upc, ok := parseUPC(w, r)
	if !ok {
		return
	}
	var req sellRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Ledger.SellItem(r.Context(), identity(r), upc, req.Price); err != nil {
		ledgerError(w, err)
		return
	}
	h.respondItem(w, r, upc)
}

// Buy handles POST /api/items/{upc}/buy and returns the payment receipt.
func (h *ItemsHandler) Buy(w http.ResponseWriter, r *http.Request) {
	upc, ok := parseUPC(w, r)
	if !ok {
		return
	}
	var req buyRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := h.Ledger.BuyItem(r.Context(), identity(r), upc, req.Payment)
	if err != nil {
		ledgerError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, receipt)
}

func (h *ItemsHandler) respondItem(w http.ResponseWriter, r *http.Request, upc uint64) {
	item, err := h.Ledger.FetchItem(r.Context(), upc)
	if err != nil {
		ledgerError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Get handles GET /api/items/{upc}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	upc, ok := parseUPC(w, r)
	if !ok {
		return
	}
	h.respondItem(w, r, upc)
}

// ViewOne handles GET /api/items/{upc}/view/1.
func (h *ItemsHandler) ViewOne(w http.ResponseWriter, r *http.Request) {
	upc, ok := parseUPC(w, r)
	if !ok {
		return
	}
	view, err := h.Ledger.FetchItemViewOne(r.Context(), upc)
	if err != nil {
		ledgerError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, view)
}

// ViewTwo handles GET /api/items/{upc}/view/2.
func (h *ItemsHandler) ViewTwo(w http.ResponseWriter, r *http.Request) {
	upc, ok := parseUPC(w, r)
	if !ok {
		return
	}
	view, err := h.Ledger.FetchItemViewTwo(r.Context(), upc)
	if err != nil {
		ledgerError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, view)
}

// field serves a single item attribute as {"upc": ..., name: value}.
func field[T any](name string, get func(ctx context.Context, upc uint64) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		upc, ok := parseUPC(w, r)
		if !ok {
			return
		}
		v, err := get(r.Context(), upc)
		if err != nil {
			ledgerError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, map[string]any{"upc": upc, name: v})
	}
}

// Events handles GET /api/items/{upc}/events.
func (h *ItemsHandler) Events(w http.ResponseWriter, r *http.Request) {
	upc, ok := parseUPC(w, r)
	if !ok {
		return
	}
	events, err := h.Ledger.ItemEvents(r.Context(), upc)
	if err != nil {
		ledgerError(w, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	jsonResponse(w, http.StatusOK, events)
}

// Payments handles GET /api/items/{upc}/payments.
func (h *ItemsHandler) Payments(w http.ResponseWriter, r *http.Request) {
	upc, ok := parseUPC(w, r)
	if !ok {
		return
	}
	payments, err := h.Ledger.ItemPayments(r.Context(), upc)
	if err != nil {
		ledgerError(w, err)
		return
	}
	if payments == nil {
		payments = []model.Payment{}
	}
	jsonResponse(w, http.StatusOK, payments)
}

var (
	errPhotoNotOwner = errors.New("only the current owner may set the photo")
	errPhotoFixed    = errors.New("photo is fixed once the item is for sale")
)

// UploadPhoto handles PUT /api/items/{upc}/photo. Only the current owner may
// set the photo, and only until the item is put up for sale. The check and the
// write happen under the item's ledger lock.
func (h *ItemsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	upc, ok := parseUPC(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}
	file, _, err := r.FormFile("photo")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "photo file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Prepare(file)
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		jsonError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	case err != nil:
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	caller := identity(r)
	err = h.Ledger.WithItem(r.Context(), upc, func(item *model.Item) error {
		if item.OwnerID != caller {
			return errPhotoNotOwner
		}
		if item.ItemState > model.StatePacked {
			return errPhotoFixed
		}
		if err := h.Photos.Put(r.Context(), upc, photo.Data, photo.MIME, caller); err != nil {
			return fmt.Errorf("saving photo with %s store: %w", h.Photos.Driver(), err)
		}
		return nil
	})
	switch {
	case errors.Is(err, errPhotoNotOwner):
		jsonResponse(w, http.StatusForbidden, map[string]string{
			"error": err.Error(), "kind": ledger.KindNotOwner.String(),
		})
		return
	case errors.Is(err, errPhotoFixed):
		jsonResponse(w, http.StatusConflict, map[string]string{
			"error": err.Error(), "kind": ledger.KindInvalidState.String(),
		})
		return
	case err != nil:
		ledgerError(w, err)
		return
	}

	slog.Info("item photo updated", "upc", upc, "user", caller, "width", photo.Width, "height", photo.Height)
	jsonResponse(w, http.StatusOK, map[string]any{"upc": upc, "width": photo.Width, "height": photo.Height})
}

// GetPhoto handles GET /api/items/{upc}/photo. ?thumb=1 returns a thumbnail.
func (h *ItemsHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	upc, ok := parseUPC(w, r)
	if !ok {
		return
	}

	photo, err := h.Photos.Get(r.Context(), upc)
	if err != nil {
		slog.Error("failed to get photo", "upc", upc, "driver", h.Photos.Driver(), "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get photo")
		return
	}
	if photo == nil {
		jsonError(w, http.StatusNotFound, "no photo")
		return
	}

	data, mime := photo.Data, photo.MIME
	if thumb, _ := strconv.ParseBool(r.URL.Query().Get("thumb")); thumb {
		t, err := imaging.Thumbnail(photo.Data)
		if err != nil {
			slog.Error("failed to build thumbnail", "upc", upc, "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to build thumbnail")
			return
		}
		data, mime = t.Data, t.MIME
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
