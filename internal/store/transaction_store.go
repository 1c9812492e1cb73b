package store

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// TransactionStore is the append-only movement history. Rows are keyed by
// account number rather than account id so they survive account deletion.
type TransactionStore struct {
	db DB
}

type Transaction struct {
	ID        string    `db:"id"`
	Sender    string    `db:"sender_number"`
	Receiver  string    `db:"receiver_number"`
	Amount    int64     `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
}

type TransactionInput struct {
	ID       string
	Sender   string
	Receiver string
	Amount   int64
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, input TransactionInput) error {
	query := `
		INSERT INTO transaction (id, sender_number, receiver_number, amount)
		VALUES ($1, $2, $3, $4)
	`
	_, err := tx.ExecContext(ctx, query, input.ID, input.Sender, input.Receiver, input.Amount)
	return err
}

// ListForNumbers returns transactions where any of the given account numbers
// appears as sender or receiver, most recent first.
func (s *TransactionStore) ListForNumbers(ctx context.Context, numbers []string) ([]Transaction, error) {
	if len(numbers) == 0 {
		return []Transaction{}, nil
	}
	var rows []Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, sender_number, receiver_number, amount, created_at
		FROM transaction
		WHERE sender_number = ANY($1) OR receiver_number = ANY($1)
		ORDER BY created_at DESC, id
	`, pq.Array(numbers))
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func itoa(value int) string {
	return fmt.Sprintf("%d", value)
}
