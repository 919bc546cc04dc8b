package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables that override file values.
// Nested keys are separated by a double underscore, e.g. DKAGGLE_AUTH__JWT__SECRET.
const EnvPrefix = "DKAGGLE_"

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Link struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url"  json:"url"`
}

type Config struct {
	Listen  string  `yaml:"listen"`
	Admin   Admin   `yaml:"admin"`
	Logger  Logger  `yaml:"logger"`
	Storage Storage `yaml:"storage"`
	Auth    Auth    `yaml:"auth"`
	Contest Contest `yaml:"contest"`
	CORS    CORS    `yaml:"cors"`
	Links   []Link  `yaml:"links"`
}

type Logger struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Storage struct {
	// Driver is either "sqlite" or "postgres".
	Driver   string `yaml:"driver"`
	Database string `yaml:"database"`
	Assets   Assets `yaml:"assets"`
}

// Assets configures where uploaded datasets and contest images are kept.
type Assets struct {
	// Backend is either "local" or "r2".
	Backend       string `yaml:"backend"`
	LocalDir      string `yaml:"local_dir"`
	PublicBaseURL string `yaml:"public_base_url"`
	MaxUploadMB   int64  `yaml:"max_upload_mb"`
	R2            R2     `yaml:"r2"`
}

type R2 struct {
	AccountID       string `yaml:"account_id"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
}

type Auth struct {
	JWT JWT `yaml:"jwt"`
}

type JWT struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

type Admin struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	// KeyHash is the bcrypt hash of the key expected in the X-Admin-Key header.
	KeyHash string `yaml:"key_hash"`
}

// Contest holds the defaults applied when a host creates a contest, and the
// knobs of the leaderboard and status lifecycle.
type Contest struct {
	PlatformFee     float64  `yaml:"platform_fee"`
	Chain           string   `yaml:"chain"`
	ChainID         int64    `yaml:"chain_id"`
	ExplorerBaseURL string   `yaml:"explorer_base_url"`
	DefaultRules    []string `yaml:"default_rules"`
	SeedDir         string   `yaml:"seed_dir"`
	SubmitRetries   int      `yaml:"submit_retries"`
	// SweepIntervalSeconds is how often ended contests are moved to "past". Zero disables the sweeper.
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
}

// Default returns the configuration used for any key the file and env leave unset.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Admin: Admin{
			Enabled: false,
			Listen:  "127.0.0.1:8081",
		},
		Logger: Logger{Level: "info"},
		Storage: Storage{
			Driver:   "sqlite",
			Database: "data/dkaggle.db",
			Assets: Assets{
				Backend:     "local",
				LocalDir:    "data/assets",
				MaxUploadMB: 64,
			},
		},
		Auth: Auth{JWT: JWT{ExpireHours: 72}},
		Contest: Contest{
			PlatformFee:     0.02,
			Chain:           "Ethereum",
			ChainID:         1,
			ExplorerBaseURL: "https://etherscan.io/address/",
			DefaultRules: []string{
				"No external datasets allowed.",
				"Submissions must be made before the deadline.",
				"AI models must not use pre-trained datasets.",
				"Each user can submit only one prediction file per day.",
			},
			SubmitRetries:        5,
			SweepIntervalSeconds: 60,
		},
	}
}

// Load layers the defaults, the YAML file at path (if non-empty) and the
// DKAGGLE_ environment variables, in that order of precedence.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, err
	}
	// A configured list replaces the default one instead of being merged into it.
	if k.Exists("contest.default_rules") {
		cfg.Contest.DefaultRules = k.Strings("contest.default_rules")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen must not be empty")
	}
	if c.Auth.JWT.Secret == "" {
		return errors.New("auth.jwt.secret must be set")
	}
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported storage.driver %q", c.Storage.Driver)
	}
	if c.Storage.Database == "" {
		return errors.New("storage.database must not be empty")
	}
	switch c.Storage.Assets.Backend {
	case "local":
		if c.Storage.Assets.LocalDir == "" {
			return errors.New("storage.assets.local_dir must be set for the local backend")
		}
	case "r2":
	default:
		return fmt.Errorf("unsupported storage.assets.backend %q", c.Storage.Assets.Backend)
	}
	if c.Admin.Enabled && c.Admin.KeyHash == "" {
		return errors.New("admin.key_hash must be set when the admin server is enabled")
	}
	if c.Contest.PlatformFee < 0 || c.Contest.PlatformFee >= 1 {
		return fmt.Errorf("contest.platform_fee must be in [0, 1), got %v", c.Contest.PlatformFee)
	}
	if c.Contest.SubmitRetries < 1 {
		return errors.New("contest.submit_retries must be at least 1")
	}
	return nil
}
