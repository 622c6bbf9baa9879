package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/payfast/payfast/internal/account"
)

type inMemoryStore struct {
	accounts account.Repository

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	recMu   sync.RWMutex
	records []Record
	seq     int64
	lastAt  time.Time
	now     func() time.Time
}

// NewInMemory creates a concurrency-safe in-memory store over an account repository. Units of
// work lock only the accounts they touch, so unrelated transfers proceed in parallel.
func NewInMemory(accounts account.Repository) Store {
	return &inMemoryStore{
		accounts: accounts,
		locks:    make(map[string]*sync.Mutex),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *inMemoryStore) lockFor(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *inMemoryStore) RunInTx(ctx context.Context, fn func(Tx) error) error {
	tx := &memTx{store: s, balances: make(map[string]int64), before: make(map[string]int64)}
	defer tx.release()

	if err := fn(tx); err != nil {
		return classify(err)
	}
	if err := ctx.Err(); err != nil {
		return classify(err)
	}
	return tx.commit(ctx)
}

func (s *inMemoryStore) ListByParticipant(_ context.Context, id string, offset, limit int) ([]Record, error) {
	s.recMu.RLock()
	defer s.recMu.RUnlock()

	var out []Record
	skipped := 0
	// records is in insertion order with non-decreasing CreatedAt, so walking backwards
	// yields newest first.
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		rec := s.records[i]
		if rec.FromID != id && rec.ToID != id {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

type memTx struct {
	store    *inMemoryStore
	held     []*sync.Mutex
	locked   bool
	balances map[string]int64
	// before holds the balances read under lock, used to undo a partially applied commit.
	before  map[string]int64
	pending []Record
}

func (t *memTx) LockAccounts(ctx context.Context, ids ...string) (map[string]account.Account, error) {
	if t.locked {
		return nil, ErrAccountsAlreadyLocked
	}
	t.locked = true

	for _, id := range distinctSorted(ids) {
		l := t.store.lockFor(id)
		l.Lock()
		t.held = append(t.held, l)
	}
	found, err := t.store.accounts.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, acc := range found {
		t.before[id] = acc.Balance
	}
	return found, nil
}

// SetBalance stages a balance. Only accounts returned by LockAccounts can be written.
func (t *memTx) SetBalance(_ context.Context, id string, balance int64) error {
	if _, ok := t.before[id]; !ok {
		return account.ErrNotFound
	}
	t.balances[id] = balance
	return nil
}

func (t *memTx) Append(_ context.Context, rec Record) (Record, error) {
	rec.ID = uuid.NewString()
	rec.Seq, rec.CreatedAt = t.store.nextPosition()
	t.pending = append(t.pending, rec)
	return rec, nil
}

// nextPosition hands out the sequence number and a timestamp that never goes backwards.
func (s *inMemoryStore) nextPosition() (int64, time.Time) {
	s.recMu.Lock()
	defer s.recMu.Unlock()
	s.seq++
	at := s.now()
	if at.Before(s.lastAt) {
		at = s.lastAt
	}
	s.lastAt = at
	return s.seq, at
}

// commit applies staged writes while the account locks are still held. Records of one
// account are appended under that account's lock, so per-participant order matches Seq.
// If a balance write fails, the ones already applied are restored and no record is kept.
func (t *memTx) commit(ctx context.Context) error {
	ids := make([]string, 0, len(t.balances))
	for id := range t.balances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for i, id := range ids {
		if err := t.store.accounts.UpdateBalance(ctx, id, t.balances[id]); err != nil {
			commitErr := fmt.Errorf("%w: commit balance of %s: %v", ErrStoreUnavailable, id, err)
			return errors.Join(commitErr, t.undo(ids[:i]))
		}
	}

	if len(t.pending) == 0 {
		return nil
	}
	s := t.store
	s.recMu.Lock()
	defer s.recMu.Unlock()
	s.records = append(s.records, t.pending...)
	return nil
}

// undo restores the pre-lock balances of ids. The locks are still held, so nothing else has
// observed the partial writes.
func (t *memTx) undo(ids []string) error {
	ctx := context.Background()
	var errs []error
	for _, id := range ids {
		if err := t.store.accounts.UpdateBalance(ctx, id, t.before[id]); err != nil {
			errs = append(errs, fmt.Errorf("restore balance of %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (t *memTx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
	t.held = nil
}
