package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/payfast/payfast/internal/account"
	"github.com/payfast/payfast/internal/ledger"
	"github.com/payfast/payfast/internal/transfer"
)

const (
	alice = "a11ce000@payfast"
	bob   = "b0b00000@payfast"
	carol = "ca201000@payfast"
)

type ReaderSuite struct {
	suite.Suite
	ctx      context.Context
	accounts account.Repository
	store    ledger.Store
	executor *transfer.Executor
	reader   *Reader
}

func TestReader(t *testing.T) {
	suite.Run(t, new(ReaderSuite))
}

func (s *ReaderSuite) SetupTest() {
	s.ctx = context.Background()
	s.accounts = account.NewMemoryRepository()
	s.store = ledger.NewInMemory(s.accounts)
	s.executor = transfer.NewExecutor(s.store, nil)
	s.reader = NewReader(s.store, s.accounts)

	for _, a := range []struct{ id, name string }{{alice, "Alice"}, {bob, "Bob"}, {carol, "Carol"}} {
		s.Require().NoError(s.accounts.Create(s.ctx, account.Account{
			ID:         a.id,
			OwnerName:  a.name,
			OwnerEmail: fmt.Sprintf("%s@example.com", a.name),
			Balance:    1_000_000,
			CreatedAt:  time.Now().UTC(),
		}))
	}
}

func (s *ReaderSuite) TestPagesNewestFirstWithoutOverlap() {
	for i := 1; i <= 25; i++ {
		from, to := alice, bob
		if i%2 == 0 {
			from, to = carol, alice
		}
		_, err := s.executor.Transfer(s.ctx, from, to, int64(i))
		s.Require().NoError(err)
	}

	var all []EnrichedRecord
	for page, want := range map[int]int{1: 10, 2: 10, 3: 5, 4: 0} {
		got, err := s.reader.History(s.ctx, alice, page, 10)
		s.Require().NoError(err)
		s.Len(got, want, "page %d", page)
	}
	for page := 1; page <= 3; page++ {
		got, err := s.reader.History(s.ctx, alice, page, 10)
		s.Require().NoError(err)
		all = append(all, got...)
	}

	s.Require().Len(all, 25)
	seen := make(map[string]bool)
	for i, rec := range all {
		s.False(seen[rec.ID], "duplicate record %s", rec.ID)
		seen[rec.ID] = true
		s.EqualValues(25-i, rec.Amount, "position %d", i)
		if i > 0 {
			s.False(rec.CreatedAt.After(all[i-1].CreatedAt), "position %d is newer than its predecessor", i)
		}
	}
}

func (s *ReaderSuite) TestEnrichesBothParties() {
	_, err := s.executor.Transfer(s.ctx, alice, bob, 300)
	s.Require().NoError(err)

	sent, err := s.reader.History(s.ctx, alice, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(sent, 1)
	s.Equal(DirectionSent, sent[0].Direction)
	s.Equal("Alice", sent[0].SenderName)
	s.Equal("Alice@example.com", sent[0].SenderEmail)
	s.Equal("Bob", sent[0].ReceiverName)
	s.Equal("Bob@example.com", sent[0].ReceiverEmail)

	received, err := s.reader.History(s.ctx, bob, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(received, 1)
	s.Equal(DirectionReceived, received[0].Direction)
	s.Equal(sent[0].ID, received[0].ID)
}

func (s *ReaderSuite) TestMissingCounterpartyIsUnknown() {
	// Records referencing an id with no account row, as left behind by external cleanup.
	err := s.store.RunInTx(s.ctx, func(tx ledger.Tx) error {
		_, err := tx.Append(s.ctx, ledger.Record{FromID: "dead0000@payfast", ToID: alice, Amount: 50})
		return err
	})
	s.Require().NoError(err)

	got, err := s.reader.History(s.ctx, alice, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(UnknownParty, got[0].SenderName)
	s.Equal(UnknownParty, got[0].SenderEmail)
	s.Equal("Alice", got[0].ReceiverName)
}

func (s *ReaderSuite) TestPageValidationAndSizeBounds() {
	_, err := s.reader.History(s.ctx, alice, 0, 10)
	s.ErrorIs(err, ErrInvalidPage)
	_, err = s.reader.History(s.ctx, alice, -3, 10)
	s.ErrorIs(err, ErrInvalidPage)

	for i := 0; i < 12; i++ {
		_, err := s.executor.Transfer(s.ctx, alice, bob, 1)
		s.Require().NoError(err)
	}
	got, err := s.reader.History(s.ctx, alice, 1, 0)
	s.Require().NoError(err)
	s.Len(got, DefaultPageSize)

	got, err = s.reader.History(s.ctx, alice, 1, 1_000)
	s.Require().NoError(err)
	s.Len(got, 12)
}

func (s *ReaderSuite) TestUnknownAccountHasEmptyHistory() {
	got, err := s.reader.History(s.ctx, "ffffffff@payfast", 1, 10)
	s.Require().NoError(err)
	s.NotNil(got)
	s.Empty(got)
}

func TestNormalizePageSize(t *testing.T) {
	cases := map[int]int{-5: DefaultPageSize, 0: DefaultPageSize, 1: 1, 100: 100, 101: MaxPageSize}
	for in, want := range cases {
		if got := NormalizePageSize(in); got != want {
			t.Fatalf("NormalizePageSize(%d) = %d, want %d", in, got, want)
		}
	}
}
