package store

import (
	"context"
	"strings"
	"time"
)

type AccountStore struct {
	db DB
}

type Account struct {
	ID        string    `db:"id"`
	UserID    *string   `db:"user_id"`
	Name      string    `db:"name"`
	Number    string    `db:"account_number"`
	Balance   int64     `db:"balance"`
	Currency  string    `db:"currency"`
	Status    string    `db:"status"`
	Country   string    `db:"country"`
	CreatedAt time.Time `db:"created_at"`
}

type AccountInput struct {
	ID        string
	UserID    *string
	Name      string
	Number    string
	Currency  string
	Country   string
	CreatedAt time.Time
}

// AccountPatch carries a partial update; nil fields are left unchanged.
type AccountPatch struct {
	Name     *string
	Currency *string
	Country  *string
	Status   *string
}

func (p AccountPatch) Empty() bool {
	return p.Name == nil && p.Currency == nil && p.Country == nil && p.Status == nil
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, tx Execer, input AccountInput) error {
	query := `
		INSERT INTO account (id, user_id, name, account_number, balance, currency, status, country, created_at)
		VALUES ($1, $2, $3, $4, 0, $5, 'Active', $6, $7)
	`
	_, err := tx.ExecContext(ctx, query, input.ID, input.UserID, input.Name, input.Number, input.Currency, input.Country, input.CreatedAt)
	return err
}

func (s *AccountStore) GetByNumber(ctx context.Context, number string) (Account, error) {
	var row Account
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, name, account_number, balance, currency, status, country, created_at
		FROM account
		WHERE account_number = $1
	`, number)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

func (s *AccountStore) GetByNumberForUpdate(ctx context.Context, tx Getter, number string) (Account, error) {
	var row Account
	err := tx.GetContext(ctx, &row, `
		SELECT id, user_id, name, account_number, balance, currency, status, country, created_at
		FROM account
		WHERE account_number = $1
		FOR UPDATE
	`, number)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

func (s *AccountStore) ListByOwner(ctx context.Context, userID string) ([]Account, error) {
	var rows []Account
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, name, account_number, balance, currency, status, country, created_at
		FROM account
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *AccountStore) ListAll(ctx context.Context) ([]Account, error) {
	var rows []Account
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, name, account_number, balance, currency, status, country, created_at
		FROM account
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *AccountStore) UpdateFields(ctx context.Context, tx Execer, number string, patch AccountPatch) (int64, error) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+itoa(len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Currency != nil {
		add("currency", *patch.Currency)
	}
	if patch.Country != nil {
		add("country", *patch.Country)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if len(sets) == 0 {
		return 0, nil
	}
	args = append(args, number)
	query := "UPDATE account SET " + strings.Join(sets, ", ") +
		", updated_at = NOW() WHERE account_number = $" + itoa(len(args))
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *AccountStore) UpdateBalance(ctx context.Context, tx Execer, number string, balance int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE account
		SET balance = $1, updated_at = NOW()
		WHERE account_number = $2
	`, balance, number)
	return err
}

func (s *AccountStore) Delete(ctx context.Context, tx Execer, number string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		DELETE FROM account
		WHERE account_number = $1
	`, number)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
