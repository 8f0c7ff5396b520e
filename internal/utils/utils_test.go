package utils

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickRoot(t *testing.T) {
	existing := t.TempDir()
	missing := filepath.Join(t.TempDir(), "nope", "deeper")
	local := filepath.Join(t.TempDir(), "local")

	assert.Equal(t, existing, PickRoot([]string{existing, local}))
	assert.Equal(t, local, PickRoot([]string{missing, local}))
	assert.Equal(t, local, PickRoot([]string{local}))
}

func TestLogFileNameIsSafe(t *testing.T) {
	name := LogFileName()
	assert.True(t, strings.HasPrefix(name, "reciboqr_"))
	assert.True(t, strings.HasSuffix(name, ".log"))
	assert.NotContains(t, name, `\`)
	assert.NotContains(t, name, "/")
	assert.Equal(t, "a_b-c.d", sanitize(`a\b-c.d`))
}

func TestNewLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	logger, closer, err := NewLogger(LogOptions{Level: "debug", Format: "json", Dir: dir})
	require.NoError(t, err)
	logger.Info().Str("k", "v").Msg("hello")
	require.NoError(t, closer.Close())

	matches, err := filepath.Glob(filepath.Join(dir, "reciboqr_*.log"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestAPIError(t *testing.T) {
	base := assert.AnError
	e := BadRequest("invalid signature", base)
	assert.Equal(t, 400, e.Code)
	assert.ErrorIs(t, e, base)
	assert.Contains(t, e.Error(), "invalid signature")
	assert.Equal(t, 500, Internal(nil).Code)
}
