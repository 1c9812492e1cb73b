package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"bankledger/internal/auth"
	"bankledger/internal/config"
	"bankledger/internal/money"
	"bankledger/internal/store"
	"bankledger/internal/websocket"
)

type Handler struct {
	cfg    config.Config
	ledger LedgerService
	users  UserStore
	audit  AuditStore
	hub    *websocket.Hub
}

func New(cfg config.Config, ledger LedgerService, users UserStore, audit AuditStore, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:    cfg,
		ledger: ledger,
		users:  users,
		audit:  audit,
		hub:    hub,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) issueTokens(id auth.Identity) (map[string]any, error) {
	token, err := auth.GenerateAccessToken(h.cfg.JWTSecret, id, h.cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken(h.cfg.JWTSecret, id, h.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"token":         token,
		"refresh_token": refresh,
		"user": map[string]any{
			"id":       id.UserID,
			"username": id.Username,
			"is_admin": id.IsAdmin,
		},
	}, nil
}

func accountJSON(account store.Account) map[string]any {
	ownerID := ""
	if account.UserID != nil {
		ownerID = *account.UserID
	}
	return map[string]any{
		"id":             account.ID,
		"user_id":        ownerID,
		"name":           account.Name,
		"account_number": account.Number,
		"balance":        money.FormatMinor(account.Balance),
		"currency":       account.Currency,
		"status":         account.Status,
		"country":        account.Country,
		"created_at":     account.CreatedAt,
	}
}

func transactionJSON(txn store.Transaction) map[string]any {
	return map[string]any{
		"id":               txn.ID,
		"sender":           txn.Sender,
		"receiver":         txn.Receiver,
		"amount":           money.FormatMinor(txn.Amount),
		"transaction_date": txn.CreatedAt,
	}
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
