package config

import (
	"flag"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Remote data service (query/command web app endpoint)
	ScriptURL string  `env:"SCRIPT_URL"`
	RemoteRPS float64 `env:"REMOTE_RPS"`

	// API server settings
	ListenAddr  string `env:"LISTEN_ADDR"`
	AuthSecret  string `env:"AUTH_SECRET"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`
	TLSCertFile string `env:"TLS_CERT_FILE"`
	TLSKeyFile  string `env:"TLS_KEY_FILE"`

	// Local mirror settings
	DataDir      string        `env:"DATA_DIR"`
	PollInterval time.Duration `env:"POLL_INTERVAL"`
	CacheTTL     time.Duration `env:"CACHE_TTL"`
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// flags работают ТОЛЬКО если переменные из env не заданы
	flag.StringVar(&cfg.ScriptURL, "script-url", cfg.ScriptURL, "URL of the remote sheet web app (query/command endpoint)")
	flag.Float64Var(&cfg.RemoteRPS, "remote-rps", cfg.RemoteRPS, "max requests per second against the remote endpoint")
	flag.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "API listen address (host:port)")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "serve the API over HTTPS")
	flag.StringVar(&cfg.TLSCertFile, "tls-cert", cfg.TLSCertFile, "path to the TLS certificate (with -https)")
	flag.StringVar(&cfg.TLSKeyFile, "tls-key", cfg.TLSKeyFile, "path to the TLS private key (with -https)")
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the local SQLite mirror state")
	flag.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "quantity synchronizer poll interval")
	flag.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "TTL for cached static entities")

	flag.Parse()

	// Defaults
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-key"
	}
	if cfg.RemoteRPS <= 0 {
		cfg.RemoteRPS = 2
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 45 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}

	// validate ListenAddr: must be "address:port" (no scheme, no path). Otherwise use default.
	hostPortRe := regexp.MustCompile(`^[A-Za-z0-9\.\-]*:\d{1,5}$`)
	if !hostPortRe.MatchString(cfg.ListenAddr) {
		cfg.ListenAddr = "localhost:8080"
	}

	if cfg.DataDir == "" {
		cfgDir, _ := os.UserConfigDir()
		cfg.DataDir = filepath.Join(cfgDir, "FleetStock")
	}

	return cfg
}
