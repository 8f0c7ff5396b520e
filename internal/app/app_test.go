package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reciboqr/internal/config"
	"reciboqr/internal/crypto"
	"reciboqr/internal/models"
)

func testConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	t.Setenv("RECIBOS_ROOT", t.TempDir())
	path := filepath.Join(t.TempDir(), "reciboqr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestSigningKey(t *testing.T) {
	a, err := New(testConfig(t, "qr:\n  secret_key: abc\n"))
	require.NoError(t, err)
	defer a.Close()

	key, err := a.SigningKey()
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), key)

	a.Config.QR.SecretKey = ""
	key, err = a.SigningKey()
	require.NoError(t, err)
	assert.Equal(t, []byte(crypto.DevSecret), key)

	a.Config.QR.AllowDevSecret = false
	_, err = a.SigningKey()
	assert.ErrorIs(t, err, crypto.ErrNoKeyMaterial)
}

func TestIssuerEndToEnd(t *testing.T) {
	cfg := testConfig(t, "log:\n  file: true\n")
	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()

	is, err := a.Issuer(context.Background())
	require.NoError(t, err)

	iss, err := is.Issue(context.Background(), models.Receipt{
		Date:   "01/01/2024",
		Client: "ACME",
		Total:  decimal.RequireFromString("10"),
	})
	require.NoError(t, err)
	assert.Equal(t, "0001-00000001", iss.Receipt.Number)
	assert.FileExists(t, filepath.Join(cfg.Paths.OutputDir, iss.BaseName+".json"))
	assert.FileExists(t, cfg.Paths.CounterFile)

	logs, err := filepath.Glob(filepath.Join(cfg.Paths.LogsDir, "reciboqr_*.log"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
