// Package app wires configuration into the counter, signing key and issuer
// shared by the CLI and the verification server.
package app

import (
	"context"
	"io"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"reciboqr/internal/config"
	"reciboqr/internal/counter"
	"reciboqr/internal/crypto"
	"reciboqr/internal/issuer"
	"reciboqr/internal/utils"
)

type App struct {
	Config *config.Config
	Log    zerolog.Logger

	closers []io.Closer
}

// New loads the logger for cfg. Components are built on demand so that
// commands which only verify never touch the counter or Redis.
func New(cfg *config.Config) (*App, error) {
	opts := utils.LogOptions{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if cfg.Log.File {
		opts.Dir = cfg.Paths.LogsDir
	}
	logger, closer, err := utils.NewLogger(opts)
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, Log: logger, closers: []io.Closer{closer}}, nil
}

func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// SigningKey resolves the QR key and warns when the development secret is used.
func (a *App) SigningKey() ([]byte, error) {
	k, err := crypto.LoadSigningKey(crypto.KeySource{
		Secret:   a.Config.QR.SecretKey,
		KeyFile:  a.Config.QR.KeyFile,
		AllowDev: a.Config.QR.AllowDevSecret,
	})
	if err != nil {
		return nil, errors.Wrap(err, "load signing key")
	}
	if k.IsDev() {
		a.Log.Warn().Msg("using the built-in development QR secret; set qr.secret_key or qr.key_file")
	}
	return k.Bytes, nil
}

// Store builds the counter for the configured data tree and lock backend.
func (a *App) Store(ctx context.Context) (*counter.Store, error) {
	cc := a.Config.Counter
	lockOpts := counter.LockOptions{
		Retries:    cc.LockRetries,
		Interval:   cc.LockInterval,
		StaleAfter: cc.LockStaleAfter,
	}

	var locker counter.Locker
	if cc.LockBackend == config.LockBackendRedis {
		rc := a.Config.Redis
		client, err := counter.DialRedis(ctx, &redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		locker = counter.NewRedisLocker(client, rc.LockKey, rc.LockTTL, lockOpts)
	}

	return counter.NewStore(counter.Options{
		Path:               a.Config.Paths.CounterFile,
		OutputDir:          a.Config.Paths.OutputDir,
		ArtifactExts:       cc.ArtifactExts,
		DefaultPointOfSale: cc.DefaultPointOfSale,
		FailOpen:           cc.FailOpen,
		Locker:             locker,
		Lock:               lockOpts,
		Logger:             a.Log,
	})
}

// Issuer builds the full issuance pipeline writing into the output directory.
func (a *App) Issuer(ctx context.Context) (*issuer.Issuer, error) {
	key, err := a.SigningKey()
	if err != nil {
		return nil, err
	}
	store, err := a.Store(ctx)
	if err != nil {
		return nil, err
	}
	return issuer.New(store, issuer.DirSink{Dir: a.Config.Paths.OutputDir}, issuer.Options{
		BaseURL:   a.Config.QR.BaseURL,
		Key:       key,
		ImageSize: a.Config.QR.ImageSize,
		Logger:    a.Log,
	}), nil
}
