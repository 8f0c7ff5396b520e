package crypto

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reciboqr/internal/files"
)

func TestLoadSigningKeyPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.key")
	master := GenerateMasterKey()
	require.NoError(t, files.WriteKeyFile(path, master))

	k, err := LoadSigningKey(KeySource{Secret: "s3cret", KeyFile: path})
	require.NoError(t, err)
	assert.Equal(t, "file", k.Origin)
	want, err := DeriveSigningKey(master)
	require.NoError(t, err)
	assert.Equal(t, want, k.Bytes)
	assert.NotEqual(t, master, k.Bytes)

	k, err = LoadSigningKey(KeySource{Secret: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), k.Bytes)
	assert.False(t, k.IsDev())

	k, err = LoadSigningKey(KeySource{AllowDev: true})
	require.NoError(t, err)
	assert.True(t, k.IsDev())
	assert.Equal(t, []byte(DevSecret), k.Bytes)

	_, err = LoadSigningKey(KeySource{})
	assert.ErrorIs(t, err, ErrNoKeyMaterial)
}

func TestDeriveSigningKeyDeterministic(t *testing.T) {
	master := MustRandom(32)
	a, err := DeriveSigningKey(master)
	require.NoError(t, err)
	b, err := DeriveSigningKey(master)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)

	other, err := DeriveSigningKey(MustRandom(32))
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestLoadSigningKeyMissingFile(t *testing.T) {
	_, err := LoadSigningKey(KeySource{KeyFile: filepath.Join(t.TempDir(), "absent.key"), AllowDev: true})
	assert.Error(t, err)
}
