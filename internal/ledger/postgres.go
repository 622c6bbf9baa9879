package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/payfast/payfast/internal/account"
)

// Postgres error classes that mean the transaction was aborted by the server rather than by
// bad input: serialization failures, deadlocks, lock and statement timeouts, admin shutdown.
var abortCodes = map[string]bool{
	"40001": true,
	"40P01": true,
	"55P03": true,
	"57014": true,
	"57P01": true,
}

// PostgresStore persists accounts' balances and transfer records in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// RunInTx wraps fn in a read committed transaction. Row locks taken by LockAccounts serialise
// concurrent units of work touching the same accounts.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(&pgTx{tx: tx}); err != nil {
		return classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ListByParticipant returns records where id is sender or receiver, newest first.
func (s *PostgresStore) ListByParticipant(ctx context.Context, id string, offset, limit int) ([]Record, error) {
	const query = `
        SELECT id, seq, from_id, to_id, amount, created_at
        FROM transfers
        WHERE from_id = $1 OR to_id = $1
        ORDER BY created_at DESC, seq DESC
        OFFSET $2 LIMIT $3`
	rows, err := s.db.Query(ctx, query, id, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			recID     uuid.UUID
			createdAt time.Time
		)
		if err := rows.Scan(&recID, &rec.Seq, &rec.FromID, &rec.ToID, &rec.Amount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		rec.ID = recID.String()
		rec.CreatedAt = createdAt.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return out, nil
}

type pgTx struct {
	tx     pgx.Tx
	locked bool
}

func (t *pgTx) LockAccounts(ctx context.Context, ids ...string) (map[string]account.Account, error) {
	if t.locked {
		return nil, ErrAccountsAlreadyLocked
	}
	t.locked = true

	const query = `
        SELECT id, owner_name, email, password_hash, balance, created_at
        FROM accounts
        WHERE id = ANY($1)
        ORDER BY id
        FOR UPDATE`
	rows, err := t.tx.Query(ctx, query, distinctSorted(ids))
	if err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]account.Account, len(ids))
	for rows.Next() {
		acc, err := account.ScanAccount(rows)
		if err != nil {
			return nil, err
		}
		out[acc.ID] = acc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}
	return out, nil
}

func (t *pgTx) SetBalance(ctx context.Context, id string, balance int64) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, balance, id)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (t *pgTx) Append(ctx context.Context, rec Record) (Record, error) {
	recID := uuid.New()
	var createdAt time.Time
	err := t.tx.QueryRow(ctx, `INSERT INTO transfers (id, from_id, to_id, amount)
        VALUES ($1, $2, $3, $4) RETURNING seq, created_at`,
		recID, rec.FromID, rec.ToID, rec.Amount).Scan(&rec.Seq, &createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("append transfer: %w", err)
	}
	rec.ID = recID.String()
	rec.CreatedAt = createdAt.UTC()
	return rec, nil
}

// classify turns server-side aborts and deadline expiry into ErrStoreUnavailable and leaves
// domain errors returned by the unit of work untouched.
func classify(err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && abortCodes[pgErr.Code] {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

func distinctSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
