package counter

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// ErrCorruptState marks a state file that exists but cannot be used.
var ErrCorruptState = errors.New("corrupt counter state")

// State is the persisted counter record.
type State struct {
	PointOfSale string `json:"pointOfSale"`
	LastIssued  int    `json:"lastIssued"`
}

// stateFile also accepts the key names written by the desktop app that
// predates this package, so an existing counter keeps its position.
type stateFile struct {
	PointOfSale *string `json:"pointOfSale"`
	LastIssued  *int    `json:"lastIssued"`
	LegacyPV    *string `json:"punto_venta"`
	LegacyLast  *int    `json:"ultimo_numero"`
}

func decodeState(data []byte) (State, error) {
	var raw stateFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return State{}, errors.Wrap(ErrCorruptState, err.Error())
	}
	pv, last := raw.PointOfSale, raw.LastIssued
	if pv == nil {
		pv = raw.LegacyPV
	}
	if last == nil {
		last = raw.LegacyLast
	}
	if pv == nil || last == nil {
		return State{}, errors.Wrap(ErrCorruptState, "missing pointOfSale or lastIssued")
	}
	norm, err := NormalizePointOfSale(*pv)
	if err != nil {
		return State{}, errors.Wrap(ErrCorruptState, err.Error())
	}
	if *last < 0 || *last > MaxSequence {
		return State{}, errors.Wrapf(ErrCorruptState, "lastIssued out of range: %d", *last)
	}
	return State{PointOfSale: norm, LastIssued: *last}, nil
}

func encodeState(st State) ([]byte, error) {
	return json.Marshal(st)
}

// Current is the number most recently issued (sequence 0 before the first issue).
func (st State) Current() Number {
	return st.number(st.LastIssued)
}

// Next is the number IssueNext would hand out.
func (st State) Next() (Number, error) {
	if st.LastIssued >= MaxSequence {
		return Number{}, ErrSequenceExhausted
	}
	return st.number(st.LastIssued + 1), nil
}

func (st State) number(seq int) Number {
	pv, _ := strconv.Atoi(st.PointOfSale)
	return Number{PointOfSale: pv, Sequence: seq}
}
