package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"reciboqr/internal/utils"
)

// Config holds all application configuration.
type Config struct {
	Paths   PathsConfig   `mapstructure:"paths"`
	Counter CounterConfig `mapstructure:"counter"`
	QR      QRConfig      `mapstructure:"qr"`
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
}

// PathsConfig locates the shared data tree. Empty paths are derived from Root.
type PathsConfig struct {
	Root           string   `mapstructure:"root"`
	RootCandidates []string `mapstructure:"root_candidates"`
	OutputDir      string   `mapstructure:"output_dir"`
	CounterFile    string   `mapstructure:"counter_file"`
	LogsDir        string   `mapstructure:"logs_dir"`
}

type CounterConfig struct {
	DefaultPointOfSale string        `mapstructure:"default_point_of_sale"`
	LockBackend        string        `mapstructure:"lock_backend"`
	LockRetries        int           `mapstructure:"lock_retries"`
	LockInterval       time.Duration `mapstructure:"lock_interval"`
	LockStaleAfter     time.Duration `mapstructure:"lock_stale_after"`
	FailOpen           bool          `mapstructure:"fail_open"`
	ArtifactExts       []string      `mapstructure:"artifact_exts"`
}

type QRConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	SecretKey      string `mapstructure:"secret_key"`
	KeyFile        string `mapstructure:"key_file"`
	ImageSize      int    `mapstructure:"image_size"`
	AllowDevSecret bool   `mapstructure:"allow_dev_secret"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockKey  string        `mapstructure:"lock_key"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File enables the per-workstation log file under Paths.LogsDir.
	File bool `mapstructure:"file"`
}

const (
	LockBackendFile  = "file"
	LockBackendRedis = "redis"
)

// Names the desktop app used; still honoured so existing installs keep working.
var legacyEnv = map[string]string{
	"paths.root":    "RECIBOS_ROOT",
	"qr.base_url":   "BASE_QR_URL",
	"qr.secret_key": "QR_SECRET_KEY",
}

// Load reads configuration from file (explicit path, or reciboqr.yaml in the
// working directory or ./config) and environment variables.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.SetConfigName("reciboqr")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "error reading config file")
		}
	}

	v.SetEnvPrefix("RECIBOQR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "RECIBOQR_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, errors.Wrapf(err, "bind %s", env)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unable to unmarshal config")
	}
	cfg.resolvePaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("paths.root", "")
	v.SetDefault("paths.root_candidates", defaultRootCandidates())
	v.SetDefault("paths.output_dir", "")
	v.SetDefault("paths.counter_file", "")
	v.SetDefault("paths.logs_dir", "")

	v.SetDefault("counter.default_point_of_sale", "0001")
	v.SetDefault("counter.lock_backend", LockBackendFile)
	v.SetDefault("counter.lock_retries", 30)
	v.SetDefault("counter.lock_interval", "100ms")
	v.SetDefault("counter.lock_stale_after", "0s")
	v.SetDefault("counter.fail_open", true)
	v.SetDefault("counter.artifact_exts", []string{".pdf"})

	v.SetDefault("qr.base_url", "http://192.168.1.80:5000/recibo")
	v.SetDefault("qr.secret_key", "")
	v.SetDefault("qr.key_file", "")
	v.SetDefault("qr.image_size", 512)
	v.SetDefault("qr.allow_dev_secret", true)

	v.SetDefault("server.addr", "0.0.0.0:5000")
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_key", "reciboqr:counter:lock")
	v.SetDefault("redis.lock_ttl", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", false)
}

// The mapped share first, then a local folder.
func defaultRootCandidates() []string {
	if runtime.GOOS == "windows" {
		return []string{`M:\Recibos`, `C:\RecibosLocal`}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return []string{"RecibosLocal"}
	}
	return []string{filepath.Join(home, "RecibosLocal")}
}

func (c *Config) resolvePaths() {
	if c.Paths.Root == "" {
		c.Paths.Root = utils.PickRoot(c.Paths.RootCandidates)
	}
	data := filepath.Join(c.Paths.Root, "data")
	if c.Paths.OutputDir == "" {
		c.Paths.OutputDir = filepath.Join(data, "recibos")
	}
	if c.Paths.CounterFile == "" {
		c.Paths.CounterFile = filepath.Join(data, "db", "contador_recibos.json")
	}
	if c.Paths.LogsDir == "" {
		c.Paths.LogsDir = filepath.Join(data, "logs")
	}
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Counter.LockBackend {
	case LockBackendFile, LockBackendRedis:
	default:
		return errors.Errorf("counter.lock_backend must be %q or %q, got %q", LockBackendFile, LockBackendRedis, c.Counter.LockBackend)
	}
	if c.Counter.LockRetries < 1 {
		return errors.New("counter.lock_retries must be at least 1")
	}
	if c.Counter.LockInterval <= 0 {
		return errors.New("counter.lock_interval must be positive")
	}
	if c.QR.ImageSize < 64 {
		return errors.New("qr.image_size must be at least 64")
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return errors.New("server rate limits cannot be negative")
	}
	return nil
}

// EnsureDirs creates the data tree.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Paths.OutputDir, filepath.Dir(c.Paths.CounterFile), c.Paths.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	return nil
}
