package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bankledger/internal/auth"
	"bankledger/internal/config"
	"bankledger/internal/middleware"
	"bankledger/internal/services"
	"bankledger/internal/store"
	"bankledger/internal/websocket"

	"github.com/go-chi/chi/v5"
)

type stubService struct {
	registerFn         func(ctx context.Context, username, password, country string) (store.User, error)
	loginFn            func(ctx context.Context, username, password string) (store.User, error)
	createAccountFn    func(ctx context.Context, id auth.Identity, req services.CreateAccountRequest) (store.Account, error)
	depositFn          func(ctx context.Context, id auth.Identity, number string, amountMinor int64) (services.DepositResult, error)
	transferFn         func(ctx context.Context, id auth.Identity, senderNumber, receiverNumber string, amountMinor int64) (services.TransferResult, error)
	listAccountsFn     func(ctx context.Context, id auth.Identity) ([]store.Account, error)
	getAccountFn       func(ctx context.Context, id auth.Identity, number string) (store.Account, error)
	userAccountsFn     func(ctx context.Context, id auth.Identity) ([]store.Account, error)
	userTransactionsFn func(ctx context.Context, id auth.Identity) ([]store.Transaction, error)
	updateAccountFn    func(ctx context.Context, id auth.Identity, number string, patch store.AccountPatch) (store.Account, error)
	deleteAccountFn    func(ctx context.Context, id auth.Identity, number string) error
	setAdminFn         func(ctx context.Context, id auth.Identity, targetUsername string, isAdmin bool) (store.User, error)
}

func (s stubService) Register(ctx context.Context, username, password, country string) (store.User, error) {
	if s.registerFn == nil {
		return store.User{}, nil
	}
	return s.registerFn(ctx, username, password, country)
}

func (s stubService) Login(ctx context.Context, username, password string) (store.User, error) {
	if s.loginFn == nil {
		return store.User{}, nil
	}
	return s.loginFn(ctx, username, password)
}

func (s stubService) CreateAccount(ctx context.Context, id auth.Identity, req services.CreateAccountRequest) (store.Account, error) {
	if s.createAccountFn == nil {
		return store.Account{}, nil
	}
	return s.createAccountFn(ctx, id, req)
}

func (s stubService) Deposit(ctx context.Context, id auth.Identity, number string, amountMinor int64) (services.DepositResult, error) {
	if s.depositFn == nil {
		return services.DepositResult{}, nil
	}
	return s.depositFn(ctx, id, number, amountMinor)
}

func (s stubService) Transfer(ctx context.Context, id auth.Identity, senderNumber, receiverNumber string, amountMinor int64) (services.TransferResult, error) {
	if s.transferFn == nil {
		return services.TransferResult{}, nil
	}
	return s.transferFn(ctx, id, senderNumber, receiverNumber, amountMinor)
}

func (s stubService) ListAccounts(ctx context.Context, id auth.Identity) ([]store.Account, error) {
	if s.listAccountsFn == nil {
		return nil, nil
	}
	return s.listAccountsFn(ctx, id)
}

func (s stubService) GetAccount(ctx context.Context, id auth.Identity, number string) (store.Account, error) {
	if s.getAccountFn == nil {
		return store.Account{}, nil
	}
	return s.getAccountFn(ctx, id, number)
}

func (s stubService) UserAccounts(ctx context.Context, id auth.Identity) ([]store.Account, error) {
	if s.userAccountsFn == nil {
		return nil, nil
	}
	return s.userAccountsFn(ctx, id)
}

func (s stubService) UserTransactions(ctx context.Context, id auth.Identity) ([]store.Transaction, error) {
	if s.userTransactionsFn == nil {
		return nil, nil
	}
	return s.userTransactionsFn(ctx, id)
}

func (s stubService) UpdateAccount(ctx context.Context, id auth.Identity, number string, patch store.AccountPatch) (store.Account, error) {
	if s.updateAccountFn == nil {
		return store.Account{}, nil
	}
	return s.updateAccountFn(ctx, id, number, patch)
}

func (s stubService) DeleteAccount(ctx context.Context, id auth.Identity, number string) error {
	if s.deleteAccountFn == nil {
		return nil
	}
	return s.deleteAccountFn(ctx, id, number)
}

func (s stubService) SetAdmin(ctx context.Context, id auth.Identity, targetUsername string, isAdmin bool) (store.User, error) {
	if s.setAdminFn == nil {
		return store.User{}, nil
	}
	return s.setAdminFn(ctx, id, targetUsername, isAdmin)
}

type stubUserStore struct {
	getByIDFn func(ctx context.Context, userID string) (store.User, error)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (store.User, error) {
	if s.getByIDFn == nil {
		return store.User{ID: userID}, nil
	}
	return s.getByIDFn(ctx, userID)
}

type stubAuditStore struct {
	listFn func(ctx context.Context, limit, offset int) ([]store.AuditLog, error)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]store.AuditLog, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

func newTestHandler(ledger LedgerService, users UserStore, audit AuditStore) *Handler {
	cfg := config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		RefreshTTL:     time.Hour,
		AllowedOrigins: "*",
	}
	return New(cfg, ledger, users, audit, websocket.NewHub())
}

func serveWithAuth(t *testing.T, handler http.HandlerFunc, id auth.Identity, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.GenerateAccessToken("secret", id, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	middleware.Auth("secret")(handler).ServeHTTP(rr, req)
	return rr
}

func withRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func stringPtr(value string) *string {
	return &value
}
