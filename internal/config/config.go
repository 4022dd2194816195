package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/soaringjerry/kavili/internal/quiz"
	"github.com/soaringjerry/kavili/internal/utils"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env     string  `mapstructure:"env"` // local, dev, prod
	HTTP    HTTP    `mapstructure:"http"`
	Storage Storage `mapstructure:"storage"`
	Auth    Auth    `mapstructure:"auth"`
	Quiz    Quiz    `mapstructure:"quiz"`
}

type HTTP struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
	CORS      string `mapstructure:"cors"` // comma separated origins
	PublicURL string `mapstructure:"public_url"`
}

// Origins lists the allowed CORS origins.
func (h HTTP) Origins() []string { return utils.SplitList(h.CORS) }

type Storage struct {
	Driver          string        `mapstructure:"driver"` // memory, sqlite or postgres
	SQLitePath      string        `mapstructure:"sqlite_path"`
	PostgresURL     string        `mapstructure:"postgres_url"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
	MaxConnections  int32         `mapstructure:"max_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

type Auth struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type Quiz struct {
	Type            string        `mapstructure:"type"`
	TransitionDelay time.Duration `mapstructure:"transition_delay"`
	TieBreak        string        `mapstructure:"tie_break"` // random or first
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	SeedFile        string        `mapstructure:"seed_file"`
	SaveWorkers     int           `mapstructure:"save_workers"`
}

// TieBreaker returns the strategy named by tie_break.
func (q Quiz) TieBreaker() quiz.TieBreaker {
	if q.TieBreak == "first" {
		return quiz.FirstDeclared{}
	}
	return quiz.NewRandomTieBreaker(nil)
}

// Load reads .env, then the YAML file at path (or config/config.yaml when
// path is empty), then KAVILI_* environment variables.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(utils.SafeEnv("KAVILI_CONFIG_DIR", "./config"))
	}

	v.SetDefault("env", "local")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.static_dir", "")
	v.SetDefault("http.cors", "")
	v.SetDefault("http.public_url", "")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "data/kavili.db")
	v.SetDefault("storage.postgres_url", "")
	v.SetDefault("storage.migrations_dir", "")
	v.SetDefault("storage.max_connections", 10)
	v.SetDefault("storage.max_conn_lifetime", "30m")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "168h")
	v.SetDefault("quiz.type", "avrudu")
	v.SetDefault("quiz.transition_delay", quiz.DefaultTransitionDelay.String())
	v.SetDefault("quiz.tie_break", "random")
	v.SetDefault("quiz.session_ttl", "2h")
	v.SetDefault("quiz.seed_file", "")
	v.SetDefault("quiz.save_workers", 2)

	v.SetEnvPrefix("KAVILI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("storage.postgres_url", "KAVILI_STORAGE_POSTGRES_URL", "DATABASE_URL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("%w: storage.sqlite_path required for sqlite", ErrInvalidConfig)
		}
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("%w: storage.postgres_url required for postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: storage.driver must be memory, sqlite or postgres", ErrInvalidConfig)
	}
	if c.Quiz.TieBreak != "random" && c.Quiz.TieBreak != "first" {
		return fmt.Errorf("%w: quiz.tie_break must be random or first", ErrInvalidConfig)
	}
	if c.Quiz.TransitionDelay < 0 || c.Quiz.SaveWorkers < 0 {
		return fmt.Errorf("%w: quiz durations and workers must not be negative", ErrInvalidConfig)
	}
	return nil
}
