package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/sledljivost/internal/auth"
	"github.com/erazemk/sledljivost/internal/ledger"
	"github.com/erazemk/sledljivost/internal/model"
	"github.com/erazemk/sledljivost/internal/store"
)

// AccountsHandler handles account management endpoints (admin only).
type AccountsHandler struct {
	DB     *sql.DB
	Ledger *ledger.Ledger
}

type createAccountRequest struct {
	Username string       `json:"username"`
	Password string       `json:"password"`
	Kind     string       `json:"kind"`
	Roles    []model.Role `json:"roles"`
}

type accountResponse struct {
	model.Account
	Roles []model.Role `json:"roles"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// List handles GET /api/accounts.
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := store.ListAccounts(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list accounts", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}
	if accounts == nil {
		accounts = []model.Account{}
	}
	jsonResponse(w, http.StatusOK, accounts)
}

// Create handles POST /api/accounts. Listed roles are granted to the new
// username in the same request, which only the ledger administrator may do.
// If a grant fails the account is not kept.
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "username and password required")
		return
	}
	if req.Kind == "" {
		req.Kind = model.AccountMember
	}
	if !model.ValidAccountKind(req.Kind) {
		jsonError(w, http.StatusBadRequest, "invalid account kind")
		return
	}
	for _, role := range req.Roles {
		if !role.Valid() {
			jsonError(w, http.StatusBadRequest, "invalid role: "+string(role))
			return
		}
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	caller := identity(r)
	if len(req.Roles) > 0 && caller != h.Ledger.Admin() {
		jsonResponse(w, http.StatusForbidden, map[string]string{
			"error": "only the ledger administrator may grant roles", "kind": ledger.KindUnauthorized.String(),
		})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	account, err := store.CreateAccount(r.Context(), h.DB, req.Username, hash, req.Kind)
	if errors.Is(err, store.ErrUsernameTaken) {
		jsonError(w, http.StatusConflict, "username already taken")
		return
	}
	if err != nil {
		slog.Error("failed to create account", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	for _, role := range req.Roles {
		if err := h.Ledger.GrantRole(r.Context(), caller, role, account.Username); err != nil {
			if derr := store.DiscardAccount(r.Context(), h.DB, account.ID); derr != nil {
				slog.Error("failed to discard account after failed grant", "account", account.Username, "error", derr)
			}
			ledgerError(w, err)
			return
		}
	}

	slog.Info("account created", "user", caller, "new_account", account.Username, "kind", account.Kind)
	h.respond(w, r, http.StatusCreated, account)
}

// Get handles GET /api/accounts/{username}.
func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, ok := h.load(w, r)
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK, account)
}

// ResetPassword handles PUT /api/accounts/{username}/password.
func (h *AccountsHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	account, ok := h.load(w, r)
	if !ok {
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	if err := store.UpdateAccountPassword(r.Context(), h.DB, account.ID, hash); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	slog.Info("account password reset", "user", identity(r), "account", account.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// Delete handles DELETE /api/accounts/{username}.
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	account, ok := h.load(w, r)
	if !ok {
		return
	}
	if account.Username == h.Ledger.Admin() {
		jsonError(w, http.StatusConflict, "cannot delete the ledger administrator")
		return
	}

	if err := store.DeleteAccount(r.Context(), h.DB, account.ID); err != nil {
		slog.Error("failed to delete account", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete account")
		return
	}

	slog.Info("account deleted", "user", identity(r), "account", account.Username)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountsHandler) load(w http.ResponseWriter, r *http.Request) (*model.Account, bool) {
	account, err := store.GetAccountByUsername(r.Context(), h.DB, r.PathValue("username"))
	if err != nil {
		slog.Error("failed to get account", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get account")
		return nil, false
	}
	if account == nil {
		jsonError(w, http.StatusNotFound, "account not found")
		return nil, false
	}
	return account, true
}

func (h *AccountsHandler) respond(w http.ResponseWriter, r *http.Request, status int, account *model.Account) {
	roles, err := h.Ledger.ListRoles(r.Context(), account.Username)
	if err != nil {
		ledgerError(w, err)
		return
	}
	if roles == nil {
		roles = []model.Role{}
	}
	jsonResponse(w, status, accountResponse{Account: *account, Roles: roles})
}
