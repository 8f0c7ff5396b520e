package files

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// MasterKeySize is the length of a master key in bytes (64 hex chars on disk).
const MasterKeySize = 32

var ErrKeyExists = errors.New("key file already exists")

// WriteKeyFile stores key as hex with owner-only permissions. An existing
// file is never overwritten.
func WriteKeyFile(path string, key []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "create key dir")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if os.IsExist(err) {
		return errors.Wrap(ErrKeyExists, path)
	}
	if err != nil {
		return errors.Wrap(err, "create key file")
	}
	defer f.Close()
	if _, err := f.WriteString(hex.EncodeToString(key) + "\n"); err != nil {
		return errors.Wrap(err, "write key file")
	}
	return nil
}

// ReadKeyFile loads a hex master key written by WriteKeyFile.
func ReadKeyFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read key file")
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, errors.Wrap(err, "master key hex decode")
	}
	if len(key) != MasterKeySize {
		return nil, errors.Errorf("master key must be %d bytes, got %d", MasterKeySize, len(key))
	}
	return key, nil
}
