package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/sledljivost/internal/ledger"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

var kindStatus = map[ledger.Kind]int{
	ledger.KindUnauthorized:        http.StatusForbidden,
	ledger.KindNotOwner:            http.StatusForbidden,
	ledger.KindInvalidState:        http.StatusConflict,
	ledger.KindNotFound:            http.StatusNotFound,
	ledger.KindDuplicateKey:        http.StatusConflict,
	ledger.KindInsufficientPayment: http.StatusPaymentRequired,
	ledger.KindInvalidArgument:     http.StatusBadRequest,
}

// ledgerError writes err as returned by the ledger. Rejections carry their
// kind; anything else is an internal failure.
func ledgerError(w http.ResponseWriter, err error) {
	kind := ledger.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		slog.Error("ledger operation failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	jsonResponse(w, status, map[string]string{"error": err.Error(), "kind": kind.String()})
}

func parseUPC(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	upc, err := strconv.ParseUint(r.PathValue("upc"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid upc")
		return 0, false
	}
	return upc, true
}
