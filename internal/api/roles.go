package api

import (
	"net/http"

	"github.com/erazemk/sledljivost/internal/ledger"
	"github.com/erazemk/sledljivost/internal/model"
)

// RolesHandler exposes the role registry.
type RolesHandler struct {
	Ledger *ledger.Ledger
}

type grantRoleRequest struct {
	Role     model.Role `json:"role"`
	Identity string     `json:"identity"`
}

type hasRoleResponse struct {
	Role     model.Role `json:"role"`
	Identity string     `json:"identity"`
	HasRole  bool       `json:"has_role"`
}

// Grant handles POST /api/roles. Only the ledger administrator may grant.
func (h *RolesHandler) Grant(w http.ResponseWriter, r *http.Request) {
	var req grantRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Ledger.GrantRole(r.Context(), identity(r), req.Role, req.Identity); err != nil {
		ledgerError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, hasRoleResponse{Role: req.Role, Identity: req.Identity, HasRole: true})
}

// Has handles GET /api/roles/{role}/{identity}.
func (h *RolesHandler) Has(w http.ResponseWriter, r *http.Request) {
	role := model.Role(r.PathValue("role"))
	who := r.PathValue("identity")

	ok, err := h.Ledger.HasRole(r.Context(), role, who)
	if err != nil {
		ledgerError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, hasRoleResponse{Role: role, Identity: who, HasRole: ok})
}

// List handles GET /api/identities/{identity}/roles.
func (h *RolesHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Ledger.ListRoles(r.Context(), r.PathValue("identity"))
	if err != nil {
		ledgerError(w, err)
		return
	}
	if roles == nil {
		roles = []model.Role{}
	}
	jsonResponse(w, http.StatusOK, roles)
}
