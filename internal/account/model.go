package account

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no account matches the lookup.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicateEmail indicates the email address is already registered.
	ErrDuplicateEmail = errors.New("email address already registered")
	// ErrDuplicateID indicates the payment identifier is already assigned.
	ErrDuplicateID = errors.New("payment identifier already assigned")
	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation wraps registration and sign-in input problems.
	ErrValidation = errors.New("validation failed")
)

// Account is a wallet holder keyed by payment identifier. Balance is in minor units and only
// the transfer executor changes it after creation.
type Account struct {
	ID           string
	OwnerName    string
	OwnerEmail   string
	PasswordHash []byte
	Balance      int64
	CreatedAt    time.Time
}

// Summary is the account view handed to callers; it never carries the password hash.
type Summary struct {
	ID         string
	OwnerName  string
	OwnerEmail string
	Balance    int64
	CreatedAt  time.Time
}

// Summary strips credentials from the account.
func (a Account) Summary() Summary {
	return Summary{
		ID:         a.ID,
		OwnerName:  a.OwnerName,
		OwnerEmail: a.OwnerEmail,
		Balance:    a.Balance,
		CreatedAt:  a.CreatedAt,
	}
}
