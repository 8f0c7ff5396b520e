package utils

import (
	"os"
	"os/user"
	"strings"
)

// Hostname returns the machine name, or "unknown".
func Hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown"
	}
	return h
}

// Username prefers the OS account and falls back to USER / USERNAME.
func Username() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		// DOMAIN\name on Windows
		if i := strings.LastIndex(u.Username, `\`); i >= 0 {
			return u.Username[i+1:]
		}
		return u.Username
	}
	for _, k := range []string{"USER", "USERNAME"} {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return "unknown"
}

// WorkstationID identifies this machine and account, e.g. in lock markers.
func WorkstationID() string {
	return Hostname() + "/" + Username()
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, s)
}
