package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"bankledger/internal/middleware"
	"bankledger/internal/policy"
	"bankledger/internal/services"
	"bankledger/internal/store"
	"bankledger/internal/validator"

	"github.com/go-chi/chi/v5"
)

type createAccountRequest struct {
	Name          string `json:"name"`
	Currency      string `json:"currency"`
	Country       string `json:"country"`
	OwnerUsername string `json:"owner_username"`
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Name == "" || req.Currency == "" || req.Country == "" {
		respondError(w, http.StatusBadRequest, "missing account details")
		return
	}
	account, err := h.ledger.CreateAccount(r.Context(), claims.Identity(), services.CreateAccountRequest{
		Name:          req.Name,
		Currency:      req.Currency,
		Country:       req.Country,
		OwnerUsername: req.OwnerUsername,
	})
	if err != nil {
		switch {
		case errors.Is(err, policy.ErrForbidden):
			respondError(w, http.StatusForbidden, "admin_required")
		case errors.Is(err, validator.ErrInvalidAccountName):
			respondError(w, http.StatusBadRequest, "invalid_account_name")
		case errors.Is(err, validator.ErrInvalidCurrency):
			respondError(w, http.StatusBadRequest, "invalid_currency")
		case errors.Is(err, services.ErrUserNotFound):
			respondError(w, http.StatusNotFound, "owner_not_found")
		case errors.Is(err, services.ErrAccountNumberTaken):
			respondError(w, http.StatusConflict, "account_number_conflict")
		default:
			respondError(w, http.StatusInternalServerError, "account_creation_failed")
		}
		return
	}
	respondJSON(w, http.StatusCreated, accountJSON(account))
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	accounts, err := h.ledger.ListAccounts(r.Context(), claims.Identity())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load accounts")
		return
	}
	respondJSON(w, http.StatusOK, accountsJSON(accounts))
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	number := chi.URLParam(r, "number")
	account, err := h.ledger.GetAccount(r.Context(), claims.Identity(), number)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			respondError(w, http.StatusNotFound, "account_not_found")
		case errors.Is(err, policy.ErrForbidden):
			respondError(w, http.StatusForbidden, "account_access_denied")
		default:
			respondError(w, http.StatusInternalServerError, "unable to load account")
		}
		return
	}
	respondJSON(w, http.StatusOK, accountJSON(account))
}

type updateAccountRequest struct {
	Name     *string `json:"name"`
	Currency *string `json:"currency"`
	Country  *string `json:"country"`
	Status   *string `json:"status"`
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	patch := store.AccountPatch{
		Name:     req.Name,
		Currency: req.Currency,
		Country:  req.Country,
		Status:   req.Status,
	}
	if patch.Empty() {
		respondError(w, http.StatusBadRequest, "missing account details")
		return
	}
	number := chi.URLParam(r, "number")
	account, err := h.ledger.UpdateAccount(r.Context(), claims.Identity(), number, patch)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			respondError(w, http.StatusNotFound, "account_not_found")
		case errors.Is(err, policy.ErrForbidden):
			respondError(w, http.StatusForbidden, "account_access_denied")
		case errors.Is(err, validator.ErrInvalidAccountName):
			respondError(w, http.StatusBadRequest, "invalid_account_name")
		case errors.Is(err, validator.ErrInvalidCurrency):
			respondError(w, http.StatusBadRequest, "invalid_currency")
		case errors.Is(err, validator.ErrInvalidStatus):
			respondError(w, http.StatusBadRequest, "invalid_status")
		default:
			respondError(w, http.StatusInternalServerError, "account_update_failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, accountJSON(account))
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	number := chi.URLParam(r, "number")
	if err := h.ledger.DeleteAccount(r.Context(), claims.Identity(), number); err != nil {
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			respondError(w, http.StatusNotFound, "account_not_found")
		case errors.Is(err, policy.ErrForbidden):
			respondError(w, http.StatusForbidden, "admin_required")
		default:
			respondError(w, http.StatusInternalServerError, "account_deletion_failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}

func (h *Handler) UserAccounts(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	accounts, err := h.ledger.UserAccounts(r.Context(), claims.Identity())
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "user_not_found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load accounts")
		return
	}
	respondJSON(w, http.StatusOK, accountsJSON(accounts))
}

func accountsJSON(accounts []store.Account) []map[string]any {
	normalized := make([]map[string]any, 0, len(accounts))
	for _, account := range accounts {
		normalized = append(normalized, accountJSON(account))
	}
	return normalized
}
