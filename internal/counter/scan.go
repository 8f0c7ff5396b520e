package counter

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// artifactIndex holds the highest sequence seen per point of sale.
type artifactIndex map[string]int

// highest returns the point of sale and sequence of the single highest artifact.
func (idx artifactIndex) highest() (string, int, bool) {
	var (
		bestPV  string
		bestSeq int
		found   bool
	)
	for pv, seq := range idx {
		if !found || seq > bestSeq || (seq == bestSeq && pv < bestPV) {
			bestPV, bestSeq, found = pv, seq, true
		}
	}
	return bestPV, bestSeq, found
}

// scanArtifacts lists dir (not recursively) and indexes every file name that
// embeds a receipt number. exts filters by extension; empty means all files.
func scanArtifacts(dir string, exts []string) (artifactIndex, error) {
	idx := artifactIndex{}
	if dir == "" {
		return idx, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "scan output dir %s", dir)
	}
	for _, e := range entries {
		if e.IsDir() || !hasExt(e.Name(), exts) {
			continue
		}
		n, ok := findNumber(e.Name())
		if !ok {
			continue
		}
		pv := formatPointOfSale(n.PointOfSale)
		if n.Sequence > idx[pv] {
			idx[pv] = n.Sequence
		}
	}
	return idx, nil
}

func hasExt(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range exts {
		want = strings.ToLower(want)
		if !strings.HasPrefix(want, ".") {
			want = "." + want
		}
		if ext == want {
			return true
		}
	}
	return false
}
