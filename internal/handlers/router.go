package handlers

import (
	"net/http"

	"bankledger/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Post("/register", h.Register)
	router.Post("/login", h.Login)
	router.Post("/refresh", h.Refresh)
	router.Get("/ws/balances", h.WSBalances)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Get("/me", h.Me)
		r.Get("/accounts", h.ListAccounts)
		r.With(middleware.RequireAdmin()).Post("/accounts", h.CreateAccount)
		r.Get("/accounts/{number}", h.GetAccount)
		r.Put("/accounts/{number}", h.UpdateAccount)
		r.With(middleware.RequireAdmin()).Delete("/accounts/{number}", h.DeleteAccount)
		r.Post("/deposit", h.Deposit)
		r.Post("/transfer", h.Transfer)
		r.Get("/user/accounts", h.UserAccounts)
		r.Get("/user/transactions", h.UserTransactions)
		r.Route("/admin", func(ar chi.Router) {
			ar.Use(middleware.RequireAdmin())
			ar.Post("/promote", h.Promote)
			ar.Get("/audit", h.ListAuditLogs)
		})
	})
	return router
}
