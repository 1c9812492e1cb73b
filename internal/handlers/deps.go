package handlers

import (
	"context"

	"bankledger/internal/auth"
	"bankledger/internal/services"
	"bankledger/internal/store"
)

type LedgerService interface {
	Register(ctx context.Context, username, password, country string) (store.User, error)
	Login(ctx context.Context, username, password string) (store.User, error)
	CreateAccount(ctx context.Context, id auth.Identity, req services.CreateAccountRequest) (store.Account, error)
	Deposit(ctx context.Context, id auth.Identity, number string, amountMinor int64) (services.DepositResult, error)
	Transfer(ctx context.Context, id auth.Identity, senderNumber, receiverNumber string, amountMinor int64) (services.TransferResult, error)
	ListAccounts(ctx context.Context, id auth.Identity) ([]store.Account, error)
	GetAccount(ctx context.Context, id auth.Identity, number string) (store.Account, error)
	UserAccounts(ctx context.Context, id auth.Identity) ([]store.Account, error)
	UserTransactions(ctx context.Context, id auth.Identity) ([]store.Transaction, error)
	UpdateAccount(ctx context.Context, id auth.Identity, number string, patch store.AccountPatch) (store.Account, error)
	DeleteAccount(ctx context.Context, id auth.Identity, number string) error
	SetAdmin(ctx context.Context, id auth.Identity, targetUsername string, isAdmin bool) (store.User, error)
}

type UserStore interface {
	GetByID(ctx context.Context, userID string) (store.User, error)
}

type AuditStore interface {
	List(ctx context.Context, limit, offset int) ([]store.AuditLog, error)
}
