package api

import (
	"net/http"
	"strconv"

	"github.com/erazemk/sledljivost/internal/ledger"
	"github.com/erazemk/sledljivost/internal/model"
)

// EventsHandler serves the ledger event log.
type EventsHandler struct {
	Ledger *ledger.Ledger
}

type eventPage struct {
	Events []model.Event `json:"events"`
	Next   uint64        `json:"next"`
}

// List handles GET /api/events?after=&limit=. Next is the cursor to pass as
// after on the following poll.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var after uint64
	if s := q.Get("after"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid after")
			return
		}
		after = v
	}

	limit := ledger.DefaultEventPage
	if s := q.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > 1000 {
			jsonError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = v
	}

	events, err := h.Ledger.ListEvents(r.Context(), after, limit)
	if err != nil {
		ledgerError(w, err)
		return
	}

	page := eventPage{Events: events, Next: after}
	if page.Events == nil {
		page.Events = []model.Event{}
	}
	if n := len(events); n > 0 {
		page.Next = events[n-1].Seq
	}
	jsonResponse(w, http.StatusOK, page)
}

// Verify handles GET /api/events/verify.
func (h *EventsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	report, err := h.Ledger.VerifyEvents(r.Context())
	if err != nil {
		ledgerError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, report)
}
