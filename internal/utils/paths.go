package utils

import (
	"os"
	"path/filepath"
)

// GetProjectRoot walks up from the working directory to the first go.mod.
// Falls back to the working directory itself.
func GetProjectRoot() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	for dir := wd; ; {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return wd
		}
		dir = parent
	}
}

// PickRoot returns the first candidate whose volume is reachable (a mapped
// share may be absent on some workstations). The last candidate is the local
// fallback and is returned even if it does not exist yet.
func PickRoot(candidates []string) string {
	if len(candidates) == 0 {
		return GetProjectRoot()
	}
	for _, c := range candidates[:len(candidates)-1] {
		if c == "" {
			continue
		}
		vol := filepath.VolumeName(c)
		probe := c
		if vol != "" {
			probe = vol + string(filepath.Separator)
		}
		if _, err := os.Stat(probe); err == nil {
			return c
		}
	}
	return candidates[len(candidates)-1]
}
