package counter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// MaxSequence is the largest sequence that still fits the 8-digit field.
	MaxSequence = 99999999
	// DefaultPointOfSale is used when neither state nor artifacts name one.
	DefaultPointOfSale = "0001"
)

var (
	ErrInvalidNumber      = errors.New("invalid receipt number")
	ErrInvalidPointOfSale = errors.New("invalid point of sale")
	ErrSequenceExhausted  = errors.New("receipt sequence exhausted")
)

// numberPattern matches PPPP-NNNNNNNN anywhere in a string.
var numberPattern = regexp.MustCompile(`(\d{4})-(\d{8})`)

// Number is a receipt number: a 4-digit point of sale and an 8-digit sequence.
type Number struct {
	PointOfSale int
	Sequence    int
}

// String formats the number as PPPP-NNNNNNNN.
func (n Number) String() string {
	return fmt.Sprintf("%04d-%08d", n.PointOfSale, n.Sequence)
}

// ParseNumber parses a complete PPPP-NNNNNNNN string.
func ParseNumber(s string) (Number, error) {
	s = strings.TrimSpace(s)
	m := numberPattern.FindStringSubmatch(s)
	if m == nil || m[0] != s {
		return Number{}, errors.Wrapf(ErrInvalidNumber, "%q", s)
	}
	return numberFromMatch(m), nil
}

// findNumber extracts the first PPPP-NNNNNNNN occurrence from a file name.
func findNumber(name string) (Number, bool) {
	m := numberPattern.FindStringSubmatch(name)
	if m == nil {
		return Number{}, false
	}
	return numberFromMatch(m), true
}

func numberFromMatch(m []string) Number {
	// both groups are fixed-width digit runs, Atoi cannot fail
	pv, _ := strconv.Atoi(m[1])
	seq, _ := strconv.Atoi(m[2])
	return Number{PointOfSale: pv, Sequence: seq}
}

func formatPointOfSale(pv int) string {
	return fmt.Sprintf("%04d", pv)
}

// NormalizePointOfSale validates a point of sale and left-pads it to 4 digits.
func NormalizePointOfSale(pv string) (string, error) {
	pv = strings.TrimSpace(pv)
	if pv == "" || len(pv) > 4 {
		return "", errors.Wrapf(ErrInvalidPointOfSale, "%q", pv)
	}
	for _, r := range pv {
		if r < '0' || r > '9' {
			return "", errors.Wrapf(ErrInvalidPointOfSale, "%q", pv)
		}
	}
	return strings.Repeat("0", 4-len(pv)) + pv, nil
}
