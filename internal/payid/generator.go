// Package payid generates payment identifiers of the form <8 hex chars>@<namespace>.
package payid

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
)

const (
	// DefaultNamespace is the suffix used when none is configured.
	DefaultNamespace = "payfast"
	// DefaultMaxAttempts bounds the collision retry loop.
	DefaultMaxAttempts = 1000

	randomBytes = 4
)

// ErrGenerationExhausted is returned when every candidate collided with an existing id.
var ErrGenerationExhausted = errors.New("payment identifier generation exhausted")

// ErrInvalidNamespace is returned for a suffix that would produce identifiers Valid rejects.
var ErrInvalidNamespace = errors.New("invalid payment identifier namespace")

const namespaceGrammar = `[a-z0-9][a-z0-9.-]*`

var (
	pattern          = regexp.MustCompile(`^[0-9a-f]{8}@` + namespaceGrammar + `$`)
	namespacePattern = regexp.MustCompile(`^` + namespaceGrammar + `$`)
)

// Checker reports whether an identifier is already assigned.
type Checker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Generator produces identifiers that are free according to its Checker.
type Generator struct {
	checker     Checker
	namespace   string
	maxAttempts int
	random      io.Reader
}

// Option customises a Generator.
type Option func(*Generator)

// WithNamespace overrides the identifier suffix.
func WithNamespace(ns string) Option {
	return func(g *Generator) {
		if ns != "" {
			g.namespace = ns
		}
	}
}

// WithMaxAttempts overrides the number of candidates tried before giving up.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithRandom replaces crypto/rand as the entropy source.
func WithRandom(r io.Reader) Option {
	return func(g *Generator) {
		if r != nil {
			g.random = r
		}
	}
}

// NewGenerator builds a generator checking candidates against checker.
func NewGenerator(checker Checker, opts ...Option) *Generator {
	g := &Generator{
		checker:     checker,
		namespace:   DefaultNamespace,
		maxAttempts: DefaultMaxAttempts,
		random:      rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Namespace returns the configured suffix.
func (g *Generator) Namespace() string {
	return g.namespace
}

// Generate returns an identifier not yet known to the checker.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate, err := g.Candidate()
		if err != nil {
			return "", err
		}
		taken, err := g.checker.Exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check payment identifier: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrGenerationExhausted, g.maxAttempts)
}

// Candidate renders one random identifier without checking it.
func (g *Generator) Candidate() (string, error) {
	buf := make([]byte, randomBytes)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf) + "@" + g.namespace, nil
}

// ValidateNamespace rejects suffixes outside the identifier grammar, such as upper case or
// underscores.
func ValidateNamespace(ns string) error {
	if !namespacePattern.MatchString(ns) {
		return fmt.Errorf("%w: %q must match %s", ErrInvalidNamespace, ns, namespaceGrammar)
	}
	return nil
}

// Valid reports whether id has the payment identifier shape.
func Valid(id string) bool {
	return pattern.MatchString(id)
}
