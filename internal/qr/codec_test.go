package qr

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("solo-para-pruebas-locales-cambiar")

// Produced by the desktop app that issued the first receipts.
const (
	legacyPayload   = "eyJjbGllbnRlIjoiUGXDsWEgPFNBPiIsIm51bWVyb19yZWNpYm8iOiIwMDAxLTAwMDAwMDAxIiwidG90YWwiOjE1MDAuNX0"
	legacySignature = "ijgdBFFOvHH47KhG_bHnmAnFRDwfKRkxdlWQOtpWlt0"
)

func TestEncodeMatchesLegacyTokens(t *testing.T) {
	rec := map[string]any{
		"numero_recibo": "0001-00000001",
		"cliente":       "Peña <SA>",
		"total":         1500.5,
	}
	tp, err := Encode(rec, testKey)
	require.NoError(t, err)
	assert.Equal(t, legacyPayload, tp.Payload)
	assert.Equal(t, legacySignature, tp.Signature)
}

func TestCanonicalize(t *testing.T) {
	out, err := Canonicalize(map[string]any{"b": 2, "a": 1, "c": map[string]any{"z": true, "y": nil}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":{"y":null,"z":true}}`, string(out))

	out, err = Canonicalize(map[string]any{"s": "ñ & <b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"s":"ñ & <b>"}`, string(out))
}

func TestCanonicalizeStructSortsKeys(t *testing.T) {
	type rec struct {
		Zeta  string `json:"zeta"`
		Alpha int    `json:"alpha"`
	}
	out, err := Canonicalize(rec{Zeta: "z", Alpha: 1})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":1,"zeta":"z"}`, string(out))
}

func TestEncodeIsOrderIndependent(t *testing.T) {
	a, err := Encode(map[string]any{"a": 1, "b": 2}, testKey)
	require.NoError(t, err)
	b, err := Encode(map[string]any{"b": 2, "a": 1}, testKey)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	again, err := Encode(map[string]any{"a": 1, "b": 2}, testKey)
	require.NoError(t, err)
	assert.Equal(t, a, again)
}

func TestRoundTrip(t *testing.T) {
	rec := map[string]any{
		"numero_recibo": "0001-00000042",
		"cliente":       "Juan Pérez",
		"total":         json.Number("12345.67"),
		"retenciones":   map[string]any{"IIBB": json.Number("10.5")},
		"forma_pago":    []any{map[string]any{"tipo": "Transferencia"}},
	}
	tp, err := Encode(rec, testKey)
	require.NoError(t, err)

	got, err := DecodeAndVerify(tp.Payload, tp.Signature, testKey)
	require.NoError(t, err)
	assert.Equal(t, Record(rec), got)
}

func TestWrongKey(t *testing.T) {
	tp, err := Encode(map[string]any{"a": 1}, testKey)
	require.NoError(t, err)
	_, err = DecodeAndVerify(tp.Payload, tp.Signature, []byte("other-key"))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestSingleCharacterTampering(t *testing.T) {
	tp, err := Encode(map[string]any{"numero_recibo": "0001-00000007", "total": 100}, testKey)
	require.NoError(t, err)

	for i := range tp.Payload {
		p := []byte(tp.Payload)
		p[i] = flip(p[i])
		_, err := DecodeAndVerify(string(p), tp.Signature, testKey)
		assert.ErrorIs(t, err, ErrInvalidSignature, "payload position %d", i)
	}
	for i := range tp.Signature {
		s := []byte(tp.Signature)
		s[i] = flip(s[i])
		_, err := DecodeAndVerify(tp.Payload, string(s), testKey)
		assert.ErrorIs(t, err, ErrInvalidSignature, "signature position %d", i)
	}
}

func flip(c byte) byte {
	if c == 'A' {
		return 'B'
	}
	return 'A'
}

func TestMalformedPayload(t *testing.T) {
	cases := map[string]string{
		"not base64": "###",
		"not json":   b64.EncodeToString([]byte("hola")),
		"not object": b64.EncodeToString([]byte("[1,2]")),
		"null":       b64.EncodeToString([]byte("null")),
		"trailing":   b64.EncodeToString([]byte(`{"a":1}{"b":2}`)),
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeAndVerify(p, Sign(p, testKey), testKey)
			assert.ErrorIs(t, err, ErrMalformedPayload)
			assert.NotErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestMalformedPayloadWithBadSignatureIsInvalidSignature(t *testing.T) {
	_, err := DecodeAndVerify("###", "AAAA", testKey)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyInto(t *testing.T) {
	type receipt struct {
		Number string `json:"numero_recibo"`
		Client string `json:"cliente"`
	}
	tp, err := Encode(receipt{Number: "0003-00000010", Client: "ACME"}, testKey)
	require.NoError(t, err)

	var got receipt
	require.NoError(t, VerifyInto(tp.Payload, tp.Signature, testKey, &got))
	assert.Equal(t, receipt{Number: "0003-00000010", Client: "ACME"}, got)
}

func TestURL(t *testing.T) {
	tp := TokenPair{Payload: "abc", Signature: "def"}
	assert.Equal(t, "http://host:5000/recibo?p=abc&s=def", BuildURL("http://host:5000/recibo", tp))
	assert.Equal(t, "http://host/recibo?lang=es&p=abc&s=def", BuildURL("http://host/recibo?lang=es", tp))

	got, err := ParseURL("http://host/recibo?lang=es&p=abc&s=def")
	require.NoError(t, err)
	assert.Equal(t, tp, got)

	_, err = ParseURL("http://host/recibo?p=abc")
	assert.ErrorIs(t, err, ErrMissingParams)
}

func TestBuiltURLVerifies(t *testing.T) {
	tp, err := Encode(map[string]any{"cliente": "Peña"}, testKey)
	require.NoError(t, err)
	parsed, err := ParseURL(BuildURL("http://192.168.1.80:5000/recibo", tp))
	require.NoError(t, err)
	rec, err := DecodeAndVerify(parsed.Payload, parsed.Signature, testKey)
	require.NoError(t, err)
	assert.Equal(t, "Peña", rec["cliente"])
}

func TestRenderPNG(t *testing.T) {
	png, err := RenderPNG("http://host/recibo?p=abc&s=def", 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")))
}
