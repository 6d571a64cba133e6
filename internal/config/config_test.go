package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipgate/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 80, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.CarrierTimeout)
	assert.Equal(t, uint(3), cfg.RetryAttempts)
	assert.True(t, cfg.Endicia.Enabled)
	assert.True(t, cfg.FedEx.Enabled)
	assert.False(t, cfg.Test)
	assert.Equal(t, "shipgate", cfg.ServiceName)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("CARRIER_TEST_MODE", "true")
	t.Setenv("ENDICIA_REQUESTER_ID", "lxxx")
	t.Setenv("ENDICIA_ACCOUNT_ID", "123456")
	t.Setenv("FEDEX_KEY", "env-key")
	t.Setenv("FEDEX_USE_MOCK", "true")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.True(t, cfg.Test)
	assert.Equal(t, "lxxx", cfg.Endicia.RequesterID)
	assert.Equal(t, "123456", cfg.Endicia.AccountID)
	assert.Equal(t, "env-key", cfg.FedEx.Key)
	assert.True(t, cfg.FedEx.UseMock)
}

func TestLoad_CredentialsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
endicia:
  pass_phrase: file-secret
fedex:
  key: file-key
  meter_number: "118000000"
`), 0o600))

	t.Setenv("CREDENTIALS_FILE", path)
	t.Setenv("ENDICIA_ACCOUNT_ID", "123456")
	t.Setenv("FEDEX_KEY", "env-key")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "123456", cfg.Endicia.AccountID, "blank file values keep the environment")
	assert.Equal(t, "file-secret", cfg.Endicia.PassPhrase)
	assert.Equal(t, "file-key", cfg.FedEx.Key, "the file wins over the environment")
	assert.Equal(t, "118000000", cfg.FedEx.MeterNumber)
}

func TestLoad_MissingCredentialsFile(t *testing.T) {
	t.Setenv("CREDENTIALS_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := config.Load()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyCredentials_Invalid(t *testing.T) {
	var cfg config.Config
	err := cfg.ApplyCredentials([]byte("fedex: [unterminated"))
	assert.Error(t, err)
}
