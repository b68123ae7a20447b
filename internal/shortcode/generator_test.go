package shortcode_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/SergeiKhy/linktrack/internal/shortcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingChecker reports the first `taken` candidates as existing.
type recordingChecker struct {
	taken      int
	candidates []string
	err        error
}

func (c *recordingChecker) Exists(_ context.Context, code string) (bool, error) {
	c.candidates = append(c.candidates, code)
	if c.err != nil {
		return false, c.err
	}
	return len(c.candidates) <= c.taken, nil
}

func TestDerive_ShapeAndDeterminism(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	a := shortcode.Derive("https://example.com", 42, "a1b2c3", ts)
	b := shortcode.Derive("https://example.com", 42, "a1b2c3", ts)
	c := shortcode.Derive("https://example.com", 42, "a1b2c4", ts)

	assert.Len(t, a, shortcode.Length)
	assert.True(t, shortcode.Valid(a))
	assert.Equal(t, a, b, "same inputs must give the same code")
	assert.NotEqual(t, a, c, "a different salt must change the code")
}

func TestDerive_AlwaysEightBase36Chars(t *testing.T) {
	for i := 0; i < 500; i++ {
		code := shortcode.Derive(fmt.Sprintf("https://example.com/%d", i), int64(i), "00ff00", time.Unix(0, int64(i)))
		require.True(t, shortcode.Valid(code), "invalid code %q", code)
	}
}

func TestGenerator_Generate_Free(t *testing.T) {
	gen := shortcode.New(3)
	checker := &recordingChecker{}

	code, err := gen.Generate(context.Background(), "https://example.com", 1, checker)

	require.NoError(t, err)
	assert.True(t, shortcode.Valid(code))
	assert.Len(t, checker.candidates, 1)
}

func TestGenerator_Generate_RerollsOnCollision(t *testing.T) {
	gen := shortcode.New(3)
	checker := &recordingChecker{taken: 1}

	code, err := gen.Generate(context.Background(), "https://example.com", 1, checker)

	require.NoError(t, err)
	require.Len(t, checker.candidates, 2)
	assert.NotEqual(t, checker.candidates[0], code)
	assert.Equal(t, checker.candidates[1], code)
}

func TestGenerator_Generate_AttemptsExhausted(t *testing.T) {
	gen := shortcode.New(4)
	checker := &recordingChecker{taken: 100}

	_, err := gen.Generate(context.Background(), "https://example.com", 1, checker)

	assert.ErrorIs(t, err, shortcode.ErrAttemptsExhausted)
	assert.Len(t, checker.candidates, 4)
}

func TestGenerator_Generate_CheckerError(t *testing.T) {
	boom := errors.New("db down")
	gen := shortcode.New(3)

	_, err := gen.Generate(context.Background(), "https://example.com", 1, &recordingChecker{err: boom})

	assert.ErrorIs(t, err, boom)
}

func TestGenerator_Generate_InjectedSaltAndClock(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	gen := shortcode.New(1,
		shortcode.WithClock(func() time.Time { return ts }),
		shortcode.WithSaltSource(func() (string, error) { return "abcdef", nil }),
	)

	code, err := gen.Generate(context.Background(), "https://example.com", 7, &recordingChecker{})

	require.NoError(t, err)
	assert.Equal(t, shortcode.Derive("https://example.com", 7, "abcdef", ts), code)
}

func TestValid(t *testing.T) {
	assert.True(t, shortcode.Valid("0a1b2c3d"))
	assert.False(t, shortcode.Valid("0A1B2C3D"))
	assert.False(t, shortcode.Valid("short"))
	assert.False(t, shortcode.Valid("0a1b2c3d4"))
	assert.False(t, shortcode.Valid("0a1b-c3d"))
}
