package counter

import (
	"io/fs"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"reciboqr/internal/files"
)

// Options configures a Store. Path is required; everything else has a usable zero value.
type Options struct {
	// Path of the JSON state file.
	Path string
	// OutputDir holds the issued receipt artifacts scanned for reconciliation.
	OutputDir string
	// ArtifactExts restricts which files are scanned; empty scans all.
	ArtifactExts []string
	// DefaultPointOfSale is used when nothing else names one.
	DefaultPointOfSale string
	// FailOpen lets mutations proceed without the lock after a timeout.
	FailOpen bool
	// Locker defaults to a FileLocker next to Path.
	Locker Locker
	Lock   LockOptions
	Logger zerolog.Logger
}

// Store is the durable receipt sequence for one state file.
//
// Reads reconcile against the output directory so a stale, deleted or
// restored state file never hands out a number that an artifact already
// carries. Mutations run under the Locker; see IssueNext.
type Store struct {
	opts   Options
	locker Locker
	log    zerolog.Logger

	// mu serializes goroutines of this process ahead of the shared lock
	mu sync.Mutex
}

func NewStore(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("counter: state file path is required")
	}
	if opts.DefaultPointOfSale == "" {
		opts.DefaultPointOfSale = DefaultPointOfSale
	}
	pv, err := NormalizePointOfSale(opts.DefaultPointOfSale)
	if err != nil {
		return nil, errors.Wrap(err, "counter: default point of sale")
	}
	opts.DefaultPointOfSale = pv

	locker := opts.Locker
	if locker == nil {
		locker = NewFileLocker(LockPath(opts.Path), opts.Lock)
	}
	return &Store{
		opts:   opts,
		locker: locker,
		log:    opts.Logger.With().Str("component", "counter").Logger(),
	}, nil
}

// PeekNext previews the next number. It only writes when the state file had
// to be bootstrapped, in which case the derived state is persisted at once.
func (s *Store) PeekNext() (Number, error) {
	st, err := s.read()
	if err != nil {
		return Number{}, err
	}
	return st.Next()
}

// State returns the reconciled state.
func (s *Store) State() (State, error) {
	return s.read()
}

func (s *Store) read() (State, error) {
	st, bootstrapped, err := s.load()
	if err != nil || !bootstrapped {
		return st, err
	}
	s.persistBootstrap()
	return st, nil
}

// persistBootstrap writes the artifact-derived state under the lock, unless
// another writer produced a usable state file in the meantime. Failures are
// logged only: the next operation retries the write.
func (s *Store) persistBootstrap() {
	err := s.withLock(func() error {
		st, bootstrapped, err := s.load()
		if err != nil || !bootstrapped {
			return err
		}
		return s.save(st)
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("bootstrapped counter state not persisted")
	}
}

// IssueNext claims the next number and persists it before returning.
//
// If the lock cannot be taken and FailOpen is set, the increment still
// happens without it. Two processes can then issue the same number; the
// timeout makes that a bounded, logged risk instead of a hung caller.
func (s *Store) IssueNext() (Number, error) {
	var issued Number
	err := s.withLock(func() error {
		st, _, err := s.load()
		if err != nil {
			return err
		}
		if st.LastIssued >= MaxSequence {
			return errors.Wrapf(ErrSequenceExhausted, "point of sale %s", st.PointOfSale)
		}
		st.LastIssued++
		if err := s.save(st); err != nil {
			return err
		}
		issued = st.Current()
		return nil
	})
	if err != nil {
		return Number{}, err
	}
	s.log.Info().Str("number", issued.String()).Msg("receipt number issued")
	return issued, nil
}

// SetPointOfSale changes the prefix of future numbers; LastIssued is kept.
func (s *Store) SetPointOfSale(pv string) error {
	norm, err := NormalizePointOfSale(pv)
	if err != nil {
		return err
	}
	return s.withLock(func() error {
		st, _, err := s.load()
		if err != nil {
			return err
		}
		prev := st.PointOfSale
		st.PointOfSale = norm
		if err := s.save(st); err != nil {
			return err
		}
		s.log.Info().Str("from", prev).Str("to", norm).Msg("point of sale changed")
		return nil
	})
}

func (s *Store) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	release, err := s.locker.Lock()
	if err != nil {
		if !s.opts.FailOpen {
			return errors.Wrap(err, "acquire counter lock")
		}
		s.log.Warn().Err(err).Msg("counter lock not acquired, proceeding without it")
		return fn()
	}
	defer release()
	return fn()
}

// load reads the state file, falling back to the artifact scan when the file
// is missing or unusable, and reconciles upward in every case. bootstrapped
// reports that the state came from the scan alone.
func (s *Store) load() (st State, bootstrapped bool, err error) {
	data, err := os.ReadFile(s.opts.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.bootstrap(), true, nil
	}
	if err != nil {
		s.log.Warn().Err(errors.Wrap(ErrCorruptState, err.Error())).Str("path", s.opts.Path).Msg("counter state unreadable, rebuilding from artifacts")
		return s.bootstrap(), true, nil
	}
	st, err = decodeState(data)
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.opts.Path).Msg("counter state corrupt, rebuilding from artifacts")
		return s.bootstrap(), true, nil
	}
	return s.reconcile(st), false, nil
}

// bootstrap derives a state purely from the output directory.
func (s *Store) bootstrap() State {
	st := State{PointOfSale: s.opts.DefaultPointOfSale}
	idx := s.scan()
	if pv, seq, ok := idx.highest(); ok {
		st.PointOfSale, st.LastIssued = pv, seq
		s.log.Info().Str("point_of_sale", pv).Int("last_issued", seq).Msg("counter bootstrapped from artifacts")
	}
	return st
}

func (s *Store) reconcile(st State) State {
	if seq := s.scan()[st.PointOfSale]; seq > st.LastIssued {
		s.log.Warn().
			Str("point_of_sale", st.PointOfSale).
			Int("state", st.LastIssued).
			Int("artifacts", seq).
			Msg("counter state behind artifacts, moving forward")
		st.LastIssued = seq
	}
	return st
}

func (s *Store) scan() artifactIndex {
	idx, err := scanArtifacts(s.opts.OutputDir, s.opts.ArtifactExts)
	if err != nil {
		s.log.Warn().Err(err).Msg("artifact scan failed, using state file alone")
		return artifactIndex{}
	}
	return idx
}

func (s *Store) save(st State) error {
	data, err := encodeState(st)
	if err != nil {
		return errors.Wrap(err, "encode counter state")
	}
	if err := files.WriteFileAtomic(s.opts.Path, data, 0o644); err != nil {
		return errors.Wrap(err, "persist counter state")
	}
	return nil
}
