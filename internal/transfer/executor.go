package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/payfast/payfast/internal/ledger"
	"github.com/payfast/payfast/internal/money"
	"github.com/payfast/payfast/internal/notification"
)

// DefaultTimeout bounds one transfer when no timeout is configured.
const DefaultTimeout = 5 * time.Second

var (
	// ErrInvalidAmount indicates a non-positive or unrepresentable amount.
	ErrInvalidAmount = money.ErrInvalidAmount
	// ErrSenderNotFound indicates the debited account does not exist.
	ErrSenderNotFound = errors.New("sender not found")
	// ErrReceiverNotFound indicates the credited account does not exist.
	ErrReceiverNotFound = errors.New("receiver not found")
	// ErrSelfTransfer indicates sender and receiver are the same account.
	ErrSelfTransfer = errors.New("cannot transfer to the same account")
	// ErrInsufficientFunds indicates the sender balance is below the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Executor moves funds between accounts, one atomic unit of work per transfer.
type Executor struct {
	store    ledger.Store
	notifier notification.Notifier
	timeout  time.Duration
	logger   *slog.Logger
}

// Option customises an Executor.
type Option func(*Executor)

// WithTimeout bounds each transfer; zero or less disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// NewExecutor constructs a transfer executor. notifier may be nil.
func NewExecutor(store ledger.Store, notifier notification.Notifier, opts ...Option) *Executor {
	e := &Executor{store: store, notifier: notifier, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transfer debits fromID and credits toID by amount minor units and appends one record. Either
// all three writes happen or none do.
func (e *Executor) Transfer(ctx context.Context, fromID, toID string, amount int64) (ledger.Record, error) {
	if amount <= 0 {
		return ledger.Record{}, fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var rec ledger.Record
	err := e.store.RunInTx(ctx, func(tx ledger.Tx) error {
		locked, err := tx.LockAccounts(ctx, fromID, toID)
		if err != nil {
			return err
		}
		sender, ok := locked[fromID]
		if !ok {
			return ErrSenderNotFound
		}
		receiver, ok := locked[toID]
		if !ok {
			return ErrReceiverNotFound
		}
		if fromID == toID {
			return ErrSelfTransfer
		}
		if sender.Balance < amount {
			return ErrInsufficientFunds
		}
		if receiver.Balance > math.MaxInt64-amount {
			return fmt.Errorf("%w: receiver balance would overflow", ErrInvalidAmount)
		}

		if err := tx.SetBalance(ctx, fromID, sender.Balance-amount); err != nil {
			return fmt.Errorf("debit sender: %w", err)
		}
		if err := tx.SetBalance(ctx, toID, receiver.Balance+amount); err != nil {
			return fmt.Errorf("credit receiver: %w", err)
		}
		rec, err = tx.Append(ctx, ledger.Record{FromID: fromID, ToID: toID, Amount: amount})
		return err
	})
	if err != nil {
		return ledger.Record{}, err
	}

	if e.logger != nil {
		e.logger.Info("transfer.completed",
			slog.String("transfer_id", rec.ID),
			slog.String("from", rec.FromID),
			slog.String("to", rec.ToID),
			slog.String("amount", money.Format(rec.Amount)),
		)
	}
	e.notify(context.WithoutCancel(ctx), rec)
	return rec, nil
}

func (e *Executor) notify(ctx context.Context, rec ledger.Record) {
	if e.notifier == nil {
		return
	}
	err := e.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindTransferReceived,
		Destination: rec.ToID,
		Body:        fmt.Sprintf("You received %s from %s", money.Format(rec.Amount), rec.FromID),
		Reference:   rec.ID,
		SentAt:      rec.CreatedAt,
	})
	if err != nil && e.logger != nil {
		e.logger.Warn("transfer.notify_failed", slog.String("transfer_id", rec.ID), slog.Any("error", err))
	}
}
