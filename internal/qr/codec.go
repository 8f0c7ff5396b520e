// Package qr encodes records into signed, URL-safe tokens and verifies them.
//
// A record is serialized as canonical JSON (sorted keys, no insignificant
// whitespace, non-ASCII kept literal), carried as unpadded base64url in the
// p parameter, and authenticated by an HMAC-SHA256 over that token string,
// carried as s.
package qr

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidSignature is the only answer to a bad or foreign signature.
	// Nothing about the payload is revealed in that case.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrMalformedPayload means the signature matched but p did not decode
	// to a JSON object.
	ErrMalformedPayload = errors.New("malformed payload")
)

var b64 = base64.RawURLEncoding

// Record is a decoded payload. Numbers are json.Number so they survive a
// re-encode unchanged.
type Record map[string]any

// TokenPair is the (p, s) pair embedded in a QR URL.
type TokenPair struct {
	Payload   string `json:"p"`
	Signature string `json:"s"`
}

// Canonicalize serializes v as canonical JSON. Structs are first reduced to
// plain maps so every object's keys come out sorted.
func Canonicalize(v any) ([]byte, error) {
	raw, err := marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshal record")
	}
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, errors.Wrap(err, "normalize record")
	}
	// encoding/json writes map keys in sorted order
	out, err := marshal(generic)
	if err != nil {
		return nil, errors.Wrap(err, "marshal canonical record")
	}
	return out, nil
}

// marshal is json.Marshal without HTML escaping and without the trailing newline.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Encode produces the signed token pair for record.
func Encode(record any, key []byte) (TokenPair, error) {
	canonical, err := Canonicalize(record)
	if err != nil {
		return TokenPair{}, err
	}
	p := b64.EncodeToString(canonical)
	return TokenPair{Payload: p, Signature: Sign(p, key)}, nil
}

// Sign returns the unpadded base64url HMAC-SHA256 of the payload token.
func Sign(payload string, key []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(payload))
	return b64.EncodeToString(h.Sum(nil))
}

// Verify checks s against p in constant time without decoding the payload.
// The comparison is on the encoded form, so any altered character fails.
func Verify(p, s string, key []byte) error {
	if !hmac.Equal([]byte(s), []byte(Sign(p, key))) {
		return ErrInvalidSignature
	}
	return nil
}

// DecodeAndVerify authenticates p with s and returns the record.
func DecodeAndVerify(p, s string, key []byte) (Record, error) {
	var rec Record
	if err := VerifyInto(p, s, key, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.Wrap(ErrMalformedPayload, "payload is not a JSON object")
	}
	return rec, nil
}

// VerifyInto authenticates p with s and decodes the payload into dst.
func VerifyInto(p, s string, key []byte, dst any) error {
	if err := Verify(p, s, key); err != nil {
		return err
	}
	raw, err := b64.DecodeString(p)
	if err != nil {
		return errors.Wrap(ErrMalformedPayload, err.Error())
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(ErrMalformedPayload, err.Error())
	}
	if dec.More() {
		return errors.Wrap(ErrMalformedPayload, "trailing data after JSON value")
	}
	return nil
}
