// Package shortcode derives short link codes from a salted SHA-256 digest.
package shortcode

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// Length of every generated code.
	Length = 8
	// Alphabet codes are drawn from.
	Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

	DefaultMaxAttempts = 5

	hexPrefixLen = 10
	saltBytes    = 3
)

var ErrAttemptsExhausted = errors.New("shortcode: no free code within attempt budget")

// Checker reports whether a code is already taken.
type Checker interface {
	Exists(ctx context.Context, code string) (bool, error)
}

type Generator struct {
	maxAttempts int
	now         func() time.Time
	salt        func() (string, error)
}

type Option func(*Generator)

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func WithSaltSource(salt func() (string, error)) Option {
	return func(g *Generator) { g.salt = salt }
}

func New(maxAttempts int, opts ...Option) *Generator {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	g := &Generator{
		maxAttempts: maxAttempts,
		now:         time.Now,
		salt:        randomSalt,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) MaxAttempts() int {
	return g.maxAttempts
}

// Generate returns a code not reported as taken by checker. Each attempt draws
// a fresh salt and timestamp, so a collision never repeats the same candidate.
func (g *Generator) Generate(ctx context.Context, originalURL string, userID int64, checker Checker) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		salt, err := g.salt()
		if err != nil {
			return "", fmt.Errorf("failed to draw salt: %w", err)
		}

		code := Derive(originalURL, userID, salt, g.now())

		taken, err := checker.Exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code %q: %w", code, err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w (%d attempts)", ErrAttemptsExhausted, g.maxAttempts)
}

// Derive hashes the inputs, reads the first 10 hex digits as an integer and
// renders it in base 36, left-padded or truncated to Length.
func Derive(originalURL string, userID int64, salt string, ts time.Time) string {
	input := fmt.Sprintf("%s-%d-%s-%d", originalURL, userID, salt, ts.UnixNano())
	sum := sha256.Sum256([]byte(input))
	prefix := hex.EncodeToString(sum[:])[:hexPrefixLen]

	// 10 hex digits fit in 40 bits, the parse cannot fail.
	n, _ := strconv.ParseUint(prefix, 16, 64)
	code := strconv.FormatUint(n, 36)

	if len(code) > Length {
		return code[:Length]
	}
	return strings.Repeat("0", Length-len(code)) + code
}

// Valid reports whether s has the shape of a generated code.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(Alphabet, rune(s[i])) {
			return false
		}
	}
	return true
}

func randomSalt() (string, error) {
	b := make([]byte, saltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
