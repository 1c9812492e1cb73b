package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"bankledger/internal/middleware"
	"bankledger/internal/money"
	"bankledger/internal/policy"
	"bankledger/internal/services"
)

type depositRequest struct {
	AccountNumber string `json:"account_number"`
	Amount        string `json:"amount"`
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.AccountNumber == "" {
		respondError(w, http.StatusBadRequest, "account_number is required")
		return
	}
	amountMinor, err := money.ParseMinor(req.Amount)
	if err != nil || amountMinor <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	result, err := h.ledger.Deposit(r.Context(), claims.Identity(), req.AccountNumber, amountMinor)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			respondError(w, http.StatusNotFound, "account_not_found")
		case errors.Is(err, policy.ErrForbidden):
			respondError(w, http.StatusForbidden, "account_access_denied")
		case errors.Is(err, services.ErrInvalidAmount):
			respondError(w, http.StatusBadRequest, "invalid_amount")
		default:
			respondError(w, http.StatusInternalServerError, "deposit_failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transaction_id":   result.TransactionID,
		"account_number":   result.Account.Number,
		"amount_deposited": money.FormatMinor(amountMinor),
		"balance":          money.FormatMinor(result.Account.Balance),
	})
}

type transferRequest struct {
	SenderAccountNumber    string `json:"sender_account_number"`
	RecipientAccountNumber string `json:"recipient_account_number"`
	Amount                 string `json:"amount"`
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.SenderAccountNumber == "" || req.RecipientAccountNumber == "" {
		respondError(w, http.StatusBadRequest, "missing account numbers")
		return
	}
	amountMinor, err := money.ParseMinor(req.Amount)
	if err != nil || amountMinor <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	result, err := h.ledger.Transfer(r.Context(), claims.Identity(), req.SenderAccountNumber, req.RecipientAccountNumber, amountMinor)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInsufficientFunds):
			respondError(w, http.StatusBadRequest, "insufficient_funds")
		case errors.Is(err, services.ErrCurrencyMismatch):
			respondError(w, http.StatusBadRequest, "currency_mismatch")
		case errors.Is(err, services.ErrAccountNotFound):
			respondError(w, http.StatusNotFound, "account_not_found")
		case errors.Is(err, policy.ErrForbidden):
			respondError(w, http.StatusForbidden, "account_access_denied")
		case errors.Is(err, services.ErrInvalidAmount):
			respondError(w, http.StatusBadRequest, "invalid_amount")
		default:
			respondError(w, http.StatusInternalServerError, "transfer_failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transaction_id":     result.TransactionID,
		"amount_transferred": money.FormatMinor(amountMinor),
		"sender_balance":     money.FormatMinor(result.Sender.Balance),
		"recipient_balance":  money.FormatMinor(result.Receiver.Balance),
	})
}

func (h *Handler) UserTransactions(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	transactions, err := h.ledger.UserTransactions(r.Context(), claims.Identity())
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "user_not_found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	normalized := make([]map[string]any, 0, len(transactions))
	for _, txn := range transactions {
		normalized = append(normalized, transactionJSON(txn))
	}
	respondJSON(w, http.StatusOK, normalized)
}
