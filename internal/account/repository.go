package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation     = "23505"
	constraintPrimary   = "accounts_pkey"
	constraintEmailUniq = "accounts_email_key"
)

// Repository persists accounts.
type Repository interface {
	Create(ctx context.Context, account Account) error
	Get(ctx context.Context, id string) (Account, error)
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]Account, error)
	Exists(ctx context.Context, id string) (bool, error)
	UpdateBalance(ctx context.Context, id string, balance int64) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `SELECT id, owner_name, email, password_hash, balance, created_at FROM accounts`

// Create inserts a new account. Unique violations map to ErrDuplicateEmail or ErrDuplicateID.
func (r *PostgresRepository) Create(ctx context.Context, account Account) error {
	_, err := r.db.Exec(ctx, `INSERT INTO accounts (id, owner_name, email, password_hash, balance, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		account.ID, account.OwnerName, account.OwnerEmail, account.PasswordHash, account.Balance, account.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case constraintEmailUniq:
				return ErrDuplicateEmail
			case constraintPrimary:
				return ErrDuplicateID
			}
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// Get fetches an account by payment identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Account, error) {
	return r.queryOne(ctx, selectColumns+` WHERE id = $1`, id)
}

// FindByEmail fetches an account by its normalised email address.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	return r.queryOne(ctx, selectColumns+` WHERE email = $1`, email)
}

// FindByIDs returns the accounts that exist among ids, keyed by id.
func (r *PostgresRepository) FindByIDs(ctx context.Context, ids []string) (map[string]Account, error) {
	out := make(map[string]Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, selectColumns+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out[acc.ID] = acc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return out, nil
}

// Exists reports whether the payment identifier is assigned.
func (r *PostgresRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check account: %w", err)
	}
	return exists, nil
}

// UpdateBalance replaces the stored balance. It does not validate the value.
func (r *PostgresRepository) UpdateBalance(ctx context.Context, id string, balance int64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, balance, id)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, arg any) (Account, error) {
	acc, err := scanAccount(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return acc, nil
}

// ScanAccount reads the columns produced by the account select list. Exposed for stores that
// lock account rows inside their own transactions.
func ScanAccount(row pgx.Row) (Account, error) {
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		acc       Account
		createdAt time.Time
	)
	if err := row.Scan(&acc.ID, &acc.OwnerName, &acc.OwnerEmail, &acc.PasswordHash, &acc.Balance, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, err
		}
		return Account{}, fmt.Errorf("scan account: %w", err)
	}
	acc.CreatedAt = createdAt.UTC()
	return acc, nil
}
