package qr

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

var ErrMissingParams = errors.New("missing p or s")

// BuildURL appends p and s to base, keeping any query base already has.
func BuildURL(base string, t TokenPair) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	// both tokens are base64url, no escaping needed
	return base + sep + "p=" + t.Payload + "&s=" + t.Signature
}

// ParseURL extracts the token pair from a verification URL.
func ParseURL(raw string) (TokenPair, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return TokenPair{}, errors.Wrap(err, "parse url")
	}
	q := u.Query()
	t := TokenPair{Payload: q.Get("p"), Signature: q.Get("s")}
	if t.Payload == "" || t.Signature == "" {
		return TokenPair{}, ErrMissingParams
	}
	return t, nil
}
