package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"bankledger/internal/auth"
	"bankledger/internal/middleware"
	"bankledger/internal/policy"
	"bankledger/internal/services"
	"bankledger/internal/websocket"
)

type promoteRequest struct {
	Username string `json:"username"`
	IsAdmin  *bool  `json:"is_admin"`
}

// Promote sets or clears the admin flag on a user. The route is admin-gated
// and the service checks the policy again with the caller's claims.
func (h *Handler) Promote(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req promoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	isAdmin := true
	if req.IsAdmin != nil {
		isAdmin = *req.IsAdmin
	}
	user, err := h.ledger.SetAdmin(r.Context(), claims.Identity(), req.Username, isAdmin)
	if err != nil {
		switch {
		case errors.Is(err, policy.ErrForbidden):
			respondError(w, http.StatusForbidden, "admin_required")
		case errors.Is(err, services.ErrUserNotFound):
			respondError(w, http.StatusNotFound, "user_not_found")
		default:
			respondError(w, http.StatusInternalServerError, "unable to update user")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"username": user.Username,
		"is_admin": user.IsAdmin,
	})
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parseInt(query.Get("limit"), 50)
	page := parseInt(query.Get("page"), 1)
	offset := (page - 1) * limit
	rows, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load audit logs")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil || claims.TokenType != auth.TokenTypeAccess {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, claims.UserID)
}
