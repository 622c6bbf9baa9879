package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/payfast/payfast/internal/account"
)

var (
	// ErrStoreUnavailable wraps transaction-layer failures: the unit of work could not begin,
	// was aborted by the store (deadlock, serialization, timeout) or failed to commit. None of
	// its writes are visible.
	ErrStoreUnavailable = errors.New("ledger store unavailable")

	// ErrAccountsAlreadyLocked indicates LockAccounts was called twice in one unit of work.
	ErrAccountsAlreadyLocked = errors.New("accounts already locked in this unit of work")
)

// Record is one completed transfer. Records are immutable once appended.
type Record struct {
	ID        string
	Seq       int64
	FromID    string
	ToID      string
	Amount    int64
	CreatedAt time.Time
}

// Tx is the view of the store inside a unit of work.
type Tx interface {
	// LockAccounts locks the distinct rows for ids in id order and returns those that exist.
	// Rows stay locked until the unit of work ends. It may be called once per unit of work.
	LockAccounts(ctx context.Context, ids ...string) (map[string]account.Account, error)
	// SetBalance replaces the balance of a locked account.
	SetBalance(ctx context.Context, id string, balance int64) error
	// Append adds a record, assigning its ID, Seq and CreatedAt.
	Append(ctx context.Context, rec Record) (Record, error)
}

// Store defines the contract implemented by ledger backends (e.g. Postgres).
type Store interface {
	// RunInTx runs fn as one atomic unit of work. If fn returns an error, nothing it wrote is
	// kept and the error is returned as is.
	RunInTx(ctx context.Context, fn func(Tx) error) error
	// ListByParticipant returns records sent or received by id, newest first.
	ListByParticipant(ctx context.Context, id string, offset, limit int) ([]Record, error)
}
