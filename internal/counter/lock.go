package counter

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"reciboqr/internal/utils"
)

// ErrLockTimeout is returned when the counter lock could not be taken within
// the configured number of attempts.
var ErrLockTimeout = errors.New("counter lock timeout")

// Locker provides mutual exclusion visible to every process sharing the
// counter. Lock returns a release func that must always be called.
type Locker interface {
	Lock() (release func(), err error)
}

// LockOptions bounds lock acquisition. Zero values fall back to defaults.
type LockOptions struct {
	Retries    int
	Interval   time.Duration
	StaleAfter time.Duration
}

const (
	defaultLockRetries  = 30
	defaultLockInterval = 100 * time.Millisecond
)

func (o LockOptions) withDefaults() LockOptions {
	if o.Retries <= 0 {
		o.Retries = defaultLockRetries
	}
	if o.Interval <= 0 {
		o.Interval = defaultLockInterval
	}
	return o
}

// MaxWait is the worst-case time spent polling before giving up.
func (o LockOptions) MaxWait() time.Duration {
	o = o.withDefaults()
	return time.Duration(o.Retries-1) * o.Interval
}

// LockPath is the marker file guarding a state file: same name, .lock extension.
func LockPath(statePath string) string {
	return strings.TrimSuffix(statePath, filepath.Ext(statePath)) + ".lock"
}

// newOwnerToken identifies one lock holder across processes and workstations.
func newOwnerToken() string {
	return fmt.Sprintf("%s %s %d", uuid.NewString(), utils.WorkstationID(), os.Getpid())
}

// ===== File marker lock =====

// FileLocker is a create-if-absent marker file. It works on any shared
// filesystem, including SMB shares where advisory locks are unreliable.
type FileLocker struct {
	path string
	opts LockOptions
}

func NewFileLocker(path string, opts LockOptions) *FileLocker {
	return &FileLocker{path: path, opts: opts.withDefaults()}
}

func (l *FileLocker) Path() string { return l.path }

func (l *FileLocker) Lock() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create lock dir")
	}
	token := newOwnerToken()
	for attempt := 0; attempt < l.opts.Retries; attempt++ {
		ok, err := l.tryCreate(token)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { l.release(token) }, nil
		}
		l.breakStale()
		if attempt < l.opts.Retries-1 {
			time.Sleep(l.opts.Interval)
		}
	}
	return nil, errors.Wrapf(ErrLockTimeout, "%s after %s", l.path, l.opts.MaxWait())
}

func (l *FileLocker) tryCreate(token string) (bool, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "create lock marker")
	}
	_, werr := f.WriteString(token)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(l.path)
		if werr == nil {
			werr = cerr
		}
		return false, errors.Wrap(werr, "write lock marker")
	}
	return true, nil
}

// release removes the marker only while it still carries our token, so a
// holder whose marker was broken as stale cannot delete a successor's lock.
func (l *FileLocker) release(token string) {
	data, err := os.ReadFile(l.path)
	if err != nil || string(data) != token {
		return
	}
	_ = os.Remove(l.path)
}

// breakStale removes a marker left behind by a crashed holder.
func (l *FileLocker) breakStale() {
	if l.opts.StaleAfter <= 0 {
		return
	}
	info, err := os.Stat(l.path)
	if err != nil || time.Since(info.ModTime()) < l.opts.StaleAfter {
		return
	}
	owner, err := os.ReadFile(l.path)
	if err != nil {
		return
	}
	l.removeIfUnchanged(owner, info.ModTime())
}

// removeIfUnchanged deletes the marker only while it still carries the owner
// token and mtime seen as stale. A marker recreated by a new holder in the
// meantime has a fresh token and survives.
func (l *FileLocker) removeIfUnchanged(owner []byte, modTime time.Time) bool {
	info, err := os.Stat(l.path)
	if err != nil || !info.ModTime().Equal(modTime) {
		return false
	}
	data, err := os.ReadFile(l.path)
	if err != nil || !bytes.Equal(data, owner) {
		return false
	}
	return os.Remove(l.path) == nil
}
