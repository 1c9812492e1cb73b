package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"bankledger/internal/auth"
	"bankledger/internal/middleware"
	"bankledger/internal/services"
	"bankledger/internal/validator"
)

type registerRequest struct {
	Username             string `json:"username"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Country              string `json:"country"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "missing username or password")
		return
	}
	if req.Password != req.PasswordConfirmation {
		respondError(w, http.StatusBadRequest, "passwords_do_not_match")
		return
	}
	user, err := h.ledger.Register(r.Context(), req.Username, req.Password, req.Country)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUsernameTaken):
			respondError(w, http.StatusConflict, "username_taken")
		case errors.Is(err, services.ErrAccountNumberTaken):
			respondError(w, http.StatusConflict, "account_number_conflict")
		case errors.Is(err, validator.ErrInvalidUsername):
			respondError(w, http.StatusBadRequest, "invalid_username")
		case errors.Is(err, validator.ErrPasswordTooShort):
			respondError(w, http.StatusBadRequest, "password_too_short")
		default:
			respondError(w, http.StatusInternalServerError, "registration_failed")
		}
		return
	}
	payload, err := h.issueTokens(auth.Identity{UserID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusCreated, payload)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	user, err := h.ledger.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		respondError(w, http.StatusInternalServerError, "login_failed")
		return
	}
	payload, err := h.issueTokens(auth.Identity{UserID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusCreated, payload)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new token pair. The admin flag is
// re-read from the store so a promotion or demotion takes effect here.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, req.RefreshToken)
	if err != nil || claims.TokenType != auth.TokenTypeRefresh {
		respondError(w, http.StatusUnauthorized, "invalid_refresh_token")
		return
	}
	user, err := h.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid_refresh_token")
		return
	}
	payload, err := h.issueTokens(auth.Identity{UserID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusOK, payload)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load user")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":         user.ID,
		"username":   user.Username,
		"is_admin":   user.IsAdmin,
		"created_at": user.CreatedAt,
	})
}
