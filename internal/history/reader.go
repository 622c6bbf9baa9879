package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/payfast/payfast/internal/account"
	"github.com/payfast/payfast/internal/ledger"
)

const (
	// DefaultPageSize applies when the caller asks for zero or fewer records.
	DefaultPageSize = 10
	// MaxPageSize caps one page.
	MaxPageSize = 100
	// UnknownParty fills name and email of counterparties that no longer resolve.
	UnknownParty = "Unknown"
)

// ErrInvalidPage indicates a page number below 1.
var ErrInvalidPage = errors.New("page must be at least 1")

// Direction is the side the queried account took in a transfer.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// EnrichedRecord is a ledger record with both parties resolved to display details.
type EnrichedRecord struct {
	ledger.Record
	SenderName    string
	SenderEmail   string
	ReceiverName  string
	ReceiverEmail string
	Direction     Direction
}

// Reader pages through an account's transfers, newest first.
type Reader struct {
	records  ledger.Store
	accounts account.Repository
}

// NewReader constructs a history reader.
func NewReader(records ledger.Store, accounts account.Repository) *Reader {
	return &Reader{records: records, accounts: accounts}
}

// NormalizePageSize applies the default and the cap.
func NormalizePageSize(pageSize int) int {
	switch {
	case pageSize <= 0:
		return DefaultPageSize
	case pageSize > MaxPageSize:
		return MaxPageSize
	default:
		return pageSize
	}
}

// History returns page of the transfers sent or received by id. Counterparty details are
// looked up when the page is read. An unknown id yields an empty page.
func (r *Reader) History(ctx context.Context, id string, page, pageSize int) ([]EnrichedRecord, error) {
	if page < 1 {
		return nil, ErrInvalidPage
	}
	pageSize = NormalizePageSize(pageSize)

	recs, err := r.records.ListByParticipant(ctx, id, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	if len(recs) == 0 {
		return []EnrichedRecord{}, nil
	}

	ids := make([]string, 0, 2*len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.FromID, rec.ToID)
	}
	parties, err := r.accounts.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve parties: %w", err)
	}

	out := make([]EnrichedRecord, 0, len(recs))
	for _, rec := range recs {
		e := EnrichedRecord{Record: rec, Direction: DirectionReceived}
		if rec.FromID == id {
			e.Direction = DirectionSent
		}
		e.SenderName, e.SenderEmail = display(parties, rec.FromID)
		e.ReceiverName, e.ReceiverEmail = display(parties, rec.ToID)
		out = append(out, e)
	}
	return out, nil
}

func display(parties map[string]account.Account, id string) (string, string) {
	acc, ok := parties[id]
	if !ok {
		return UnknownParty, UnknownParty
	}
	return acc.OwnerName, acc.OwnerEmail
}
