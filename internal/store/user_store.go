package store

import (
	"context"
	"time"
)

type UserStore struct {
	db DB
}

type User struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	IsAdmin      bool      `db:"is_admin"`
	CreatedAt    time.Time `db:"created_at"`
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, tx Execer, id, username, passwordHash string, isAdmin bool) error {
	query := `
		INSERT INTO users (id, username, password_hash, is_admin)
		VALUES ($1, $2, $3, $4)
	`
	_, err := tx.ExecContext(ctx, query, id, username, passwordHash, isAdmin)
	return err
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (User, error) {
	var row User
	err := s.db.GetContext(ctx, &row, `
		SELECT id, username, password_hash, is_admin, created_at
		FROM users
		WHERE username = $1
	`, username)
	if err != nil {
		return User{}, err
	}
	return row, nil
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (User, error) {
	var row User
	err := s.db.GetContext(ctx, &row, `
		SELECT id, username, password_hash, is_admin, created_at
		FROM users
		WHERE id = $1
	`, userID)
	if err != nil {
		return User{}, err
	}
	return row, nil
}

// Count reads through the transaction so the first-user-admin decision is
// covered by the serializable retry machinery.
func (s *UserStore) Count(ctx context.Context, tx Getter) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, `SELECT COUNT(1) FROM users`)
	return count, err
}

func (s *UserStore) SetAdmin(ctx context.Context, tx Execer, userID string, isAdmin bool) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET is_admin = $1
		WHERE id = $2
	`, isAdmin, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
