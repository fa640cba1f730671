// Package config resolves server settings from defaults, the environment and
// command line flags, in that order of increasing precedence.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// DB is a SQLite file path or a postgres:// connection string.
	DB        string        `env:"SLEDLJIVOST_DB" envDefault:"sledljivost.sqlite3"`
	Addr      string        `env:"SLEDLJIVOST_ADDR" envDefault:":8080"`
	AdminUser string        `env:"SLEDLJIVOST_ADMIN" envDefault:"Admin"`
	LogPath   string        `env:"SLEDLJIVOST_LOG"`
	TokenTTL  time.Duration `env:"SLEDLJIVOST_TOKEN_TTL" envDefault:"24h"`

	// Photos go to the database unless a bucket is set.
	PhotoBucket    string `env:"SLEDLJIVOST_PHOTO_S3_BUCKET"`
	PhotoRegion    string `env:"SLEDLJIVOST_PHOTO_S3_REGION"`
	PhotoEndpoint  string `env:"SLEDLJIVOST_PHOTO_S3_ENDPOINT"`
	PhotoPathStyle bool   `env:"SLEDLJIVOST_PHOTO_S3_PATH_STYLE"`
}

// Load reads the environment on top of the defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("parse env: SLEDLJIVOST_TOKEN_TTL must be positive, got %s", cfg.TokenTTL)
	}
	return cfg, nil
}

// RegisterFlags binds the short and long flag for every setting. Current
// values in cfg become the flag defaults.
func (cfg *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&cfg.DB, "db", cfg.DB, "")
	fs.StringVar(&cfg.DB, "d", cfg.DB, "")

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "")

	fs.StringVar(&cfg.AdminUser, "user", cfg.AdminUser, "")
	fs.StringVar(&cfg.AdminUser, "u", cfg.AdminUser, "")

	fs.StringVar(&cfg.LogPath, "log", cfg.LogPath, "")
	fs.StringVar(&cfg.LogPath, "l", cfg.LogPath, "")

	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "")

	fs.StringVar(&cfg.PhotoBucket, "photo-bucket", cfg.PhotoBucket, "")
	fs.StringVar(&cfg.PhotoRegion, "photo-region", cfg.PhotoRegion, "")
	fs.StringVar(&cfg.PhotoEndpoint, "photo-endpoint", cfg.PhotoEndpoint, "")
	fs.BoolVar(&cfg.PhotoPathStyle, "photo-path-style", cfg.PhotoPathStyle, "")
}
