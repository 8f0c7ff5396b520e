package counter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberString(t *testing.T) {
	assert.Equal(t, "0001-00000001", Number{PointOfSale: 1, Sequence: 1}.String())
	assert.Equal(t, "0042-99999999", Number{PointOfSale: 42, Sequence: MaxSequence}.String())
}

func TestParseNumber(t *testing.T) {
	n, err := ParseNumber(" 0003-00000120 ")
	require.NoError(t, err)
	assert.Equal(t, Number{PointOfSale: 3, Sequence: 120}, n)

	for _, bad := range []string{"", "3-120", "0003-0000012", "x0003-00000120", "0003-00000120.pdf"} {
		_, err := ParseNumber(bad)
		assert.ErrorIs(t, err, ErrInvalidNumber, bad)
	}
}

func TestFindNumber(t *testing.T) {
	n, ok := findNumber("Recibo_0002-00000015__ACME_SA.pdf")
	require.True(t, ok)
	assert.Equal(t, Number{PointOfSale: 2, Sequence: 15}, n)

	_, ok = findNumber("notas.txt")
	assert.False(t, ok)
}

func TestNormalizePointOfSale(t *testing.T) {
	cases := map[string]string{"1": "0001", "12": "0012", " 0003 ": "0003", "9999": "9999"}
	for in, want := range cases {
		got, err := NormalizePointOfSale(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, bad := range []string{"", "12345", "ab", "-1", "1.0"} {
		_, err := NormalizePointOfSale(bad)
		assert.ErrorIs(t, err, ErrInvalidPointOfSale, bad)
	}
}

func TestDecodeState(t *testing.T) {
	st, err := decodeState([]byte(`{"pointOfSale":"2","lastIssued":7}`))
	require.NoError(t, err)
	assert.Equal(t, State{PointOfSale: "0002", LastIssued: 7}, st)

	st, err = decodeState([]byte(`{"punto_venta":"0001","ultimo_numero":41}`))
	require.NoError(t, err)
	assert.Equal(t, State{PointOfSale: "0001", LastIssued: 41}, st)

	for _, bad := range []string{``, `{`, `[]`, `{"pointOfSale":"0001"}`, `{"pointOfSale":"abc","lastIssued":1}`, `{"pointOfSale":"0001","lastIssued":-1}`} {
		_, err := decodeState([]byte(bad))
		assert.ErrorIs(t, err, ErrCorruptState, bad)
	}
}

func TestStateNext(t *testing.T) {
	n, err := State{PointOfSale: "0001", LastIssued: 0}.Next()
	require.NoError(t, err)
	assert.Equal(t, "0001-00000001", n.String())

	_, err = State{PointOfSale: "0001", LastIssued: MaxSequence}.Next()
	assert.ErrorIs(t, err, ErrSequenceExhausted)
}
