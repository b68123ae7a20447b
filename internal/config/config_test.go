package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SergeiKhy/linktrack/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Defaults(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "access")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh")

	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.App.CORSOrigin)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 10*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, 5, cfg.ShortCode.MaxAttempts)
	assert.Equal(t, float64(10), cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 20, cfg.RateLimit.BurstSize)
}

func TestLoadFile_FromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "APP_PORT=9090\n" +
		"ACCESS_TOKEN_SECRET=a\n" +
		"REFRESH_TOKEN_SECRET=r\n" +
		"CORS_ORIGIN=https://a.example, https://b.example\n" +
		"SHORTCODE_MAX_ATTEMPTS=0\n" +
		"APP_BASE_URL=https://sho.rt/\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "https://sho.rt", cfg.App.BaseURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.App.CORSOrigin)
	assert.Equal(t, 1, cfg.ShortCode.MaxAttempts)
}

func TestLoadFile_MissingSecrets(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "")
	t.Setenv("REFRESH_TOKEN_SECRET", "")

	_, err := config.LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, config.ErrMissingSecret)
}
