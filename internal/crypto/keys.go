package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"

	"reciboqr/internal/files"
)

// DevSecret is the secret used when nothing is configured. It only exists so
// a fresh checkout can sign and verify locally.
const DevSecret = "solo-para-pruebas-locales-cambiar"

// signingInfo binds derived keys to their purpose.
const signingInfo = "reciboqr qr-signing v1"

var ErrNoKeyMaterial = errors.New("no signing key configured")

// KeySource names where the QR signing key comes from. KeyFile wins over Secret.
type KeySource struct {
	Secret  string
	KeyFile string
	// AllowDev permits falling back to DevSecret.
	AllowDev bool
}

// SigningKey is the resolved HMAC key.
type SigningKey struct {
	Bytes []byte
	// Origin is "file", "secret" or "dev".
	Origin string
}

// IsDev reports whether the built-in development secret is in use.
func (k SigningKey) IsDev() bool { return k.Origin == "dev" }

// LoadSigningKey resolves a KeySource. A raw secret is used as-is so codes
// signed by earlier installs with the same secret keep verifying.
func LoadSigningKey(src KeySource) (SigningKey, error) {
	switch {
	case src.KeyFile != "":
		master, err := files.ReadKeyFile(src.KeyFile)
		if err != nil {
			return SigningKey{}, err
		}
		derived, err := DeriveSigningKey(master)
		if err != nil {
			return SigningKey{}, err
		}
		return SigningKey{Bytes: derived, Origin: "file"}, nil
	case src.Secret != "":
		return SigningKey{Bytes: []byte(src.Secret), Origin: "secret"}, nil
	case src.AllowDev:
		return SigningKey{Bytes: []byte(DevSecret), Origin: "dev"}, nil
	}
	return SigningKey{}, ErrNoKeyMaterial
}

// DeriveSigningKey expands a master key into a 32-byte HMAC key with HKDF-SHA256.
func DeriveSigningKey(master []byte) ([]byte, error) {
	h := hkdf.New(sha256.New, master, nil, []byte(signingInfo))
	out := make([]byte, 32)
	if _, err := io.ReadFull(h, out); err != nil {
		return nil, errors.Wrap(err, "hkdf expand")
	}
	return out, nil
}

// GenerateMasterKey returns a fresh random master key.
func GenerateMasterKey() []byte {
	return MustRandom(files.MasterKeySize)
}

// MustRandom returns n random bytes or panics.
func MustRandom(n int) []byte {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		panic(err)
	}
	return b
}
