package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"time"

	"bankledger/internal/auth"
	"bankledger/internal/db"
	"bankledger/internal/money"
	"bankledger/internal/policy"
	"bankledger/internal/store"
	"bankledger/internal/validator"
	"bankledger/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrAccountNotFound    = errors.New("account not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	// ErrAccountNumberTaken surfaces a unique violation on account_number
	// that raced past the in-transaction existence check.
	ErrAccountNumberTaken = errors.New("account number already in use")
	ErrCurrencyMismatch   = errors.New("currency mismatch")
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrAccountNumberSpace means number generation kept colliding until the
	// retry bound; with a 10^20 space this is effectively unreachable, but it
	// is a defined failure rather than an unbounded loop.
	ErrAccountNumberSpace = errors.New("account number space exhausted")
)

const (
	accountNumberLength = 20
	maxNumberAttempts   = 5

	DefaultCurrency = "€"
	DefaultCountry  = "No Country Selected"

	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, username, passwordHash string, isAdmin bool) error
	GetByUsername(ctx context.Context, username string) (store.User, error)
	GetByID(ctx context.Context, userID string) (store.User, error)
	Count(ctx context.Context, tx store.Getter) (int, error)
	SetAdmin(ctx context.Context, tx store.Execer, userID string, isAdmin bool) (int64, error)
}

type AccountStore interface {
	Create(ctx context.Context, tx store.Execer, input store.AccountInput) error
	GetByNumber(ctx context.Context, number string) (store.Account, error)
	GetByNumberForUpdate(ctx context.Context, tx store.Getter, number string) (store.Account, error)
	ListByOwner(ctx context.Context, userID string) ([]store.Account, error)
	ListAll(ctx context.Context) ([]store.Account, error)
	UpdateFields(ctx context.Context, tx store.Execer, number string, patch store.AccountPatch) (int64, error)
	UpdateBalance(ctx context.Context, tx store.Execer, number string, balance int64) error
	Delete(ctx context.Context, tx store.Execer, number string) (int64, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error
	ListForNumbers(ctx context.Context, numbers []string) ([]store.Transaction, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, id, actorID, action, entityType, entityID, data string) error
}

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

// LedgerService orchestrates every account and transaction operation. Each
// exported method runs its reads and writes as one serializable transaction:
// either the balance change and its transaction row both land, or neither does.
type LedgerService struct {
	txRunner       db.TxRunner
	users          UserStore
	accounts       AccountStore
	transactions   TransactionStore
	audit          AuditStore
	hub            BalanceHub
	minPasswordLen int
}

func NewLedgerService(txRunner db.TxRunner, users UserStore, accounts AccountStore, transactions TransactionStore, audit AuditStore, hub BalanceHub, minPasswordLen int) *LedgerService {
	return &LedgerService{
		txRunner:       txRunner,
		users:          users,
		accounts:       accounts,
		transactions:   transactions,
		audit:          audit,
		hub:            hub,
		minPasswordLen: minPasswordLen,
	}
}

// Register creates the user plus a default account named "<username>'s
// Account". The first user in an empty store becomes admin; afterwards the
// flag only changes through SetAdmin.
func (s *LedgerService) Register(ctx context.Context, username, password, country string) (store.User, error) {
	if err := validator.ValidateUsername(username); err != nil {
		return store.User{}, err
	}
	if err := validator.ValidatePassword(password, s.minPasswordLen); err != nil {
		return store.User{}, err
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return store.User{}, err
	}
	if strings.TrimSpace(country) == "" {
		country = DefaultCountry
	}
	userID := uuid.NewString()
	var user store.User
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		count, err := s.users.Count(ctx, tx)
		if err != nil {
			return err
		}
		isAdmin := count == 0
		if err := s.users.Create(ctx, tx, userID, username, passwordHash, isAdmin); err != nil {
			return err
		}
		ownerID := userID
		if _, err := s.createAccountInTx(ctx, tx, &ownerID, username+"'s Account", DefaultCurrency, country); err != nil {
			return err
		}
		user = store.User{ID: userID, Username: username, IsAdmin: isAdmin}
		data, _ := json.Marshal(map[string]string{"username": username})
		return s.audit.Log(ctx, tx, uuid.NewString(), userID, "register", "user", userID, string(data))
	})
	if err != nil {
		if db.IsUniqueViolation(err, "username") {
			return store.User{}, ErrUsernameTaken
		}
		if db.IsUniqueViolation(err, "account_number") {
			return store.User{}, ErrAccountNumberTaken
		}
		return store.User{}, err
	}
	return user, nil
}

// Login verifies credentials. Lookup miss and hash mismatch both return
// ErrInvalidCredentials so the response never reveals which part failed.
func (s *LedgerService) Login(ctx context.Context, username, password string) (store.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.User{}, ErrInvalidCredentials
		}
		return store.User{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return store.User{}, ErrInvalidCredentials
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.audit.Log(ctx, tx, uuid.NewString(), user.ID, "login", "user", user.ID, "{}")
	})
	if err != nil {
		return store.User{}, err
	}
	return user, nil
}

type CreateAccountRequest struct {
	Name     string
	Currency string
	Country  string
	// OwnerUsername optionally attaches the account to a user; empty creates
	// an unowned house account.
	OwnerUsername string
}

func (s *LedgerService) CreateAccount(ctx context.Context, id auth.Identity, req CreateAccountRequest) (store.Account, error) {
	if err := policy.Decide(id, policy.OpCreateAccount, nil); err != nil {
		return store.Account{}, err
	}
	if err := validator.ValidateAccountName(req.Name); err != nil {
		return store.Account{}, err
	}
	if err := validator.ValidateCurrency(req.Currency); err != nil {
		return store.Account{}, err
	}
	country := req.Country
	if strings.TrimSpace(country) == "" {
		country = DefaultCountry
	}
	var ownerID *string
	if req.OwnerUsername != "" {
		owner, err := s.users.GetByUsername(ctx, req.OwnerUsername)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.Account{}, ErrUserNotFound
			}
			return store.Account{}, err
		}
		ownerID = &owner.ID
	}
	var account store.Account
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		created, err := s.createAccountInTx(ctx, tx, ownerID, req.Name, req.Currency, country)
		if err != nil {
			return err
		}
		account = created
		data, _ := json.Marshal(map[string]string{"name": req.Name, "currency": req.Currency})
		return s.audit.Log(ctx, tx, uuid.NewString(), id.UserID, "create_account", "account", created.Number, string(data))
	})
	if err != nil {
		if db.IsUniqueViolation(err, "account_number") {
			return store.Account{}, ErrAccountNumberTaken
		}
		return store.Account{}, err
	}
	return account, nil
}

type DepositResult struct {
	TransactionID string
	Account       store.Account
}

// Deposit credits the account and records a transaction whose sender and
// receiver are both the credited account.
func (s *LedgerService) Deposit(ctx context.Context, id auth.Identity, number string, amountMinor int64) (DepositResult, error) {
	if amountMinor <= 0 {
		return DepositResult{}, ErrInvalidAmount
	}
	var result DepositResult
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.accounts.GetByNumberForUpdate(ctx, tx, number)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrAccountNotFound
			}
			return err
		}
		if err := policy.Decide(id, policy.OpDeposit, account.UserID); err != nil {
			return err
		}
		account.Balance += amountMinor
		if err := s.accounts.UpdateBalance(ctx, tx, number, account.Balance); err != nil {
			return err
		}
		transactionID := uuid.NewString()
		if err := s.transactions.Create(ctx, tx, store.TransactionInput{
			ID:       transactionID,
			Sender:   number,
			Receiver: number,
			Amount:   amountMinor,
		}); err != nil {
			return err
		}
		result = DepositResult{TransactionID: transactionID, Account: account}
		data, _ := json.Marshal(map[string]string{
			"account_number": number,
			"amount":         money.FormatMinor(amountMinor),
		})
		return s.audit.Log(ctx, tx, uuid.NewString(), id.UserID, "deposit", "transaction", transactionID, string(data))
	})
	if err != nil {
		return DepositResult{}, err
	}
	s.broadcastBalance(result.Account)
	return result, nil
}

type TransferResult struct {
	TransactionID string
	Sender        store.Account
	Receiver      store.Account
}

// Transfer moves amountMinor between two accounts as one atomic unit: both
// rows are locked in account-number order, the sufficiency check reads the
// locked balance, and exactly one transaction row is recorded. A transfer to
// the same account is balance-neutral but still recorded.
func (s *LedgerService) Transfer(ctx context.Context, id auth.Identity, senderNumber, receiverNumber string, amountMinor int64) (TransferResult, error) {
	if amountMinor <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	var result TransferResult
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		sender, receiver, err := s.lockAccounts(ctx, tx, senderNumber, receiverNumber)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrAccountNotFound
			}
			return err
		}
		if err := policy.Decide(id, policy.OpTransfer, sender.UserID); err != nil {
			return err
		}
		if sender.Currency != receiver.Currency {
			return ErrCurrencyMismatch
		}
		if sender.Balance < amountMinor {
			return ErrInsufficientFunds
		}
		if senderNumber != receiverNumber {
			sender.Balance -= amountMinor
			receiver.Balance += amountMinor
			if err := s.accounts.UpdateBalance(ctx, tx, senderNumber, sender.Balance); err != nil {
				return err
			}
			if err := s.accounts.UpdateBalance(ctx, tx, receiverNumber, receiver.Balance); err != nil {
				return err
			}
		}
		transactionID := uuid.NewString()
		if err := s.transactions.Create(ctx, tx, store.TransactionInput{
			ID:       transactionID,
			Sender:   senderNumber,
			Receiver: receiverNumber,
			Amount:   amountMinor,
		}); err != nil {
			return err
		}
		result = TransferResult{TransactionID: transactionID, Sender: sender, Receiver: receiver}
		data, _ := json.Marshal(map[string]string{
			"sender":   senderNumber,
			"receiver": receiverNumber,
			"amount":   money.FormatMinor(amountMinor),
		})
		return s.audit.Log(ctx, tx, uuid.NewString(), id.UserID, "transfer", "transaction", transactionID, string(data))
	})
	if err != nil {
		return TransferResult{}, err
	}
	s.broadcastBalance(result.Sender)
	if result.Receiver.Number != result.Sender.Number {
		s.broadcastBalance(result.Receiver)
	}
	return result, nil
}

// ListAccounts is role-scoped: callers the policy clears for a full listing
// see the whole store, everyone else only the accounts they own.
func (s *LedgerService) ListAccounts(ctx context.Context, id auth.Identity) ([]store.Account, error) {
	if policy.Decide(id, policy.OpListAllAccounts, nil) == nil {
		return s.accounts.ListAll(ctx)
	}
	return s.accounts.ListByOwner(ctx, id.UserID)
}

func (s *LedgerService) GetAccount(ctx context.Context, id auth.Identity, number string) (store.Account, error) {
	account, err := s.accounts.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Account{}, ErrAccountNotFound
		}
		return store.Account{}, err
	}
	if err := policy.Decide(id, policy.OpViewAccount, account.UserID); err != nil {
		return store.Account{}, err
	}
	return account, nil
}

func (s *LedgerService) UserAccounts(ctx context.Context, id auth.Identity) ([]store.Account, error) {
	if _, err := s.users.GetByID(ctx, id.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.accounts.ListByOwner(ctx, id.UserID)
}

// UserTransactions returns the caller's movement history, newest first. A
// transaction matches when any of the caller's account numbers appears as
// sender or receiver.
func (s *LedgerService) UserTransactions(ctx context.Context, id auth.Identity) ([]store.Transaction, error) {
	if _, err := s.users.GetByID(ctx, id.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	accounts, err := s.accounts.ListByOwner(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	numbers := make([]string, 0, len(accounts))
	for _, account := range accounts {
		numbers = append(numbers, account.Number)
	}
	return s.transactions.ListForNumbers(ctx, numbers)
}

func (s *LedgerService) UpdateAccount(ctx context.Context, id auth.Identity, number string, patch store.AccountPatch) (store.Account, error) {
	if patch.Name != nil {
		if err := validator.ValidateAccountName(*patch.Name); err != nil {
			return store.Account{}, err
		}
	}
	if patch.Currency != nil {
		if err := validator.ValidateCurrency(*patch.Currency); err != nil {
			return store.Account{}, err
		}
	}
	if patch.Status != nil {
		if err := validator.ValidateStatus(*patch.Status); err != nil {
			return store.Account{}, err
		}
	}
	var account store.Account
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		current, err := s.accounts.GetByNumberForUpdate(ctx, tx, number)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrAccountNotFound
			}
			return err
		}
		if err := policy.Decide(id, policy.OpUpdateAccount, current.UserID); err != nil {
			return err
		}
		if _, err := s.accounts.UpdateFields(ctx, tx, number, patch); err != nil {
			return err
		}
		account = applyPatch(current, patch)
		data, _ := json.Marshal(map[string]string{"account_number": number})
		return s.audit.Log(ctx, tx, uuid.NewString(), id.UserID, "update_account", "account", number, string(data))
	})
	if err != nil {
		return store.Account{}, err
	}
	return account, nil
}

// DeleteAccount removes the account row only. Historical transactions are
// immutable audit history and are never cascade-deleted; their account-number
// references are allowed to dangle.
func (s *LedgerService) DeleteAccount(ctx context.Context, id auth.Identity, number string) error {
	if err := policy.Decide(id, policy.OpDeleteAccount, nil); err != nil {
		return err
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		deleted, err := s.accounts.Delete(ctx, tx, number)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return ErrAccountNotFound
		}
		data, _ := json.Marshal(map[string]string{"account_number": number})
		return s.audit.Log(ctx, tx, uuid.NewString(), id.UserID, "delete_account", "account", number, string(data))
	})
}

func (s *LedgerService) SetAdmin(ctx context.Context, id auth.Identity, targetUsername string, isAdmin bool) (store.User, error) {
	if err := policy.Decide(id, policy.OpPromoteUser, nil); err != nil {
		return store.User{}, err
	}
	target, err := s.users.GetByUsername(ctx, targetUsername)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.User{}, ErrUserNotFound
		}
		return store.User{}, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		updated, err := s.users.SetAdmin(ctx, tx, target.ID, isAdmin)
		if err != nil {
			return err
		}
		if updated == 0 {
			return ErrUserNotFound
		}
		data, _ := json.Marshal(map[string]any{"username": targetUsername, "is_admin": isAdmin})
		return s.audit.Log(ctx, tx, uuid.NewString(), id.UserID, "set_admin", "user", target.ID, string(data))
	})
	if err != nil {
		return store.User{}, err
	}
	target.IsAdmin = isAdmin
	return target, nil
}

// createAccountInTx generates a 20-digit number, checks it is free and
// inserts, retrying on collision up to the bound. The unique constraint on
// account_number backstops the check under concurrency; a constraint race
// surfaces as a serialization failure and is retried by the tx runner.
func (s *LedgerService) createAccountInTx(ctx context.Context, tx *sqlx.Tx, ownerID *string, name, currency, country string) (store.Account, error) {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := generateAccountNumber()
		if err != nil {
			return store.Account{}, err
		}
		_, err = s.accounts.GetByNumberForUpdate(ctx, tx, number)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return store.Account{}, err
		}
		input := store.AccountInput{
			ID:        uuid.NewString(),
			UserID:    ownerID,
			Name:      name,
			Number:    number,
			Currency:  currency,
			Country:   country,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.accounts.Create(ctx, tx, input); err != nil {
			return store.Account{}, err
		}
		return store.Account{
			ID:        input.ID,
			UserID:    ownerID,
			Name:      name,
			Number:    number,
			Currency:  currency,
			Status:    StatusActive,
			Country:   country,
			CreatedAt: input.CreatedAt,
		}, nil
	}
	return store.Account{}, ErrAccountNumberSpace
}

// lockAccounts locks both rows FOR UPDATE in account-number order so two
// opposing transfers cannot deadlock, then returns them in requested order.
func (s *LedgerService) lockAccounts(ctx context.Context, tx store.Getter, senderNumber, receiverNumber string) (store.Account, store.Account, error) {
	if senderNumber == receiverNumber {
		account, err := s.accounts.GetByNumberForUpdate(ctx, tx, senderNumber)
		if err != nil {
			return store.Account{}, store.Account{}, err
		}
		return account, account, nil
	}
	first, second := senderNumber, receiverNumber
	if second < first {
		first, second = second, first
	}
	firstAccount, err := s.accounts.GetByNumberForUpdate(ctx, tx, first)
	if err != nil {
		return store.Account{}, store.Account{}, err
	}
	secondAccount, err := s.accounts.GetByNumberForUpdate(ctx, tx, second)
	if err != nil {
		return store.Account{}, store.Account{}, err
	}
	if first == senderNumber {
		return firstAccount, secondAccount, nil
	}
	return secondAccount, firstAccount, nil
}

func (s *LedgerService) broadcastBalance(account store.Account) {
	if account.UserID == nil {
		return
	}
	s.hub.BroadcastBalance(*account.UserID, websocket.BalanceUpdate{
		AccountNumber: account.Number,
		Balance:       money.FormatMinor(account.Balance),
		Currency:      account.Currency,
	})
}

func applyPatch(account store.Account, patch store.AccountPatch) store.Account {
	if patch.Name != nil {
		account.Name = *patch.Name
	}
	if patch.Currency != nil {
		account.Currency = *patch.Currency
	}
	if patch.Country != nil {
		account.Country = *patch.Country
	}
	if patch.Status != nil {
		account.Status = *patch.Status
	}
	return account
}

var accountNumberSpace = new(big.Int).Exp(big.NewInt(10), big.NewInt(accountNumberLength), nil)

func generateAccountNumber() (string, error) {
	n, err := rand.Int(rand.Reader, accountNumberSpace)
	if err != nil {
		return "", err
	}
	digits := n.String()
	return strings.Repeat("0", accountNumberLength-len(digits)) + digits, nil
}
