package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/payfast/payfast/internal/payid"
)

const (
	minNameLength     = 3
	minPasswordLength = 6
	// Losing the id race to a concurrent registration is rare; a handful of regenerations is
	// plenty before treating it as exhaustion.
	maxIDRaces = 5
)

// IDGenerator produces free payment identifiers.
type IDGenerator interface {
	Generate(ctx context.Context) (string, error)
}

// Service manages account registration, sign-in and lookups.
type Service struct {
	repo            Repository
	ids             IDGenerator
	startingBalance int64
	hashCost        int
	logger          *slog.Logger
	now             func() time.Time
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) ServiceOption {
	return func(s *Service) { s.hashCost = cost }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a new account service.
func NewService(repo Repository, ids IDGenerator, startingBalance int64, opts ...ServiceOption) *Service {
	s := &Service{
		repo:            repo,
		ids:             ids,
		startingBalance: startingBalance,
		hashCost:        bcrypt.DefaultCost,
		now:             func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput carries the data needed to open an account.
type RegisterInput struct {
	FullName string
	Email    string
	Password string
}

// Register validates the input, hashes the password, assigns a payment identifier and stores
// the account with the starting balance.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Account, error) {
	name := strings.TrimSpace(input.FullName)
	email := NormalizeEmail(input.Email)
	if err := validateRegistration(name, email, input.Password); err != nil {
		return Account{}, err
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return Account{}, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}

	for race := 0; race < maxIDRaces; race++ {
		id, err := s.ids.Generate(ctx)
		if err != nil {
			return Account{}, err
		}
		acc := Account{
			ID:           id,
			OwnerName:    name,
			OwnerEmail:   email,
			PasswordHash: hash,
			Balance:      s.startingBalance,
			CreatedAt:    s.now(),
		}
		err = s.repo.Create(ctx, acc)
		switch {
		case err == nil:
			if s.logger != nil {
				s.logger.Info("account.registered", slog.String("account_id", acc.ID))
			}
			return acc, nil
		case errors.Is(err, ErrDuplicateID):
			continue
		default:
			return Account{}, err
		}
	}
	return Account{}, fmt.Errorf("%w: identifier taken concurrently %d times", payid.ErrGenerationExhausted, maxIDRaces)
}

// Authenticate verifies an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Summary, error) {
	acc, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Summary{}, ErrInvalidCredentials
		}
		return Summary{}, err
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)); err != nil {
		return Summary{}, ErrInvalidCredentials
	}
	return acc.Summary(), nil
}

// Get returns the public view of an account.
func (s *Service) Get(ctx context.Context, id string) (Summary, error) {
	acc, err := s.repo.Get(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	return acc.Summary(), nil
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(name, email, password string) error {
	if utf8.RuneCountInString(name) < minNameLength {
		return fmt.Errorf("%w: full name must be at least %d characters", ErrValidation, minNameLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: email address is invalid", ErrValidation)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	return nil
}
