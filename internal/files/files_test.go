package files

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "state.json")

	require.NoError(t, WriteFileAtomic(path, []byte("one"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("two"), 0o644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
	assertNoTempFiles(t, path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestWriteFileAtomicConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	const writers = 16

	var g errgroup.Group
	for i := 0; i < writers; i++ {
		body := []byte(fmt.Sprintf(`{"writer":%d}`, i))
		g.Go(func() error {
			for j := 0; j < 20; j++ {
				if err := WriteFileAtomic(path, body, 0o644); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Regexp(t, `^\{"writer":\d+\}$`, string(got), "last rename wins whole")
	assertNoTempFiles(t, path)
}

func assertNoTempFiles(t *testing.T, path string) {
	t.Helper()
	left, err := filepath.Glob(filepath.Join(filepath.Dir(path), TempPattern(path)))
	require.NoError(t, err)
	assert.Empty(t, left, "temp files left behind")
}

func TestReceiptNames(t *testing.T) {
	assert.Equal(t, "Recibo_0001-00000042__Juan_Perez.pdf", ReceiptPDFName("0001-00000042", "Juan Perez"))
	assert.Equal(t, "Recibo_0002-00000001__Cliente", ReceiptBaseName("0002-00000001", "  "))
	assert.Equal(t, "Recibo_0001-00000003__A_B_C", ReceiptBaseName("0001-00000003", "A/B C"))
}

func TestKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.key")
	key := bytes.Repeat([]byte{0xab}, MasterKeySize)

	require.NoError(t, WriteKeyFile(path, key))
	err := WriteKeyFile(path, key)
	assert.ErrorIs(t, err, ErrKeyExists)

	got, err := ReadKeyFile(path)
	require.NoError(t, err)
	assert.Equal(t, key, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestReadKeyFileRejectsShortKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.key")
	require.NoError(t, os.WriteFile(path, []byte("abcd\n"), 0o600))
	_, err := ReadKeyFile(path)
	assert.Error(t, err)
}
