package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const remoteURLPlaceholder = "your_remote_database_url"

type RemoteConfig struct {
	URL      string        `yaml:"url" env:"REMOTE_DB_URL"`
	Password string        `yaml:"password" env:"REMOTE_DB_PASSWORD"`
	Timeout  time.Duration `yaml:"timeout" env:"REMOTE_TIMEOUT" env-default:"5s"`
}

// Configured reports whether both the endpoint and the credential are set.
// Without them the primary store serves every request.
func (r RemoteConfig) Configured() bool {
	url := strings.TrimSpace(r.URL)
	return url != "" && url != remoteURLPlaceholder && strings.TrimSpace(r.Password) != ""
}

type Config struct {
	LogLevel        string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"INFO"`
	Port            string        `yaml:"port" env:"PORT" env-default:"5000"`
	ClientURL       string        `yaml:"client_url" env:"CLIENT_URL" env-default:"http://localhost:3000"`
	PublicURL       string        `yaml:"public_url" env:"PUBLIC_URL" env-default:"http://localhost:3000"`
	PrimaryDBPath   string        `yaml:"primary_db_path" env:"PRIMARY_DB_PATH" env-default:"./tasks.db"`
	SeedWelcome     bool          `yaml:"seed_welcome_task" env:"SEED_WELCOME_TASK" env-default:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
	Remote          RemoteConfig  `yaml:"remote"`
}

func (c Config) Address() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

type ClientConfig struct {
	ServerURL   string        `yaml:"server_url" env:"NEXTO_SERVER_URL" env-default:"http://localhost:5000"`
	SessionFile string        `yaml:"session_file" env:"NEXTO_SESSION_FILE"`
	Timeout     time.Duration `yaml:"timeout" env:"NEXTO_TIMEOUT" env-default:"10s"`
}

// Load reads configPath when it exists and falls back to the environment
// when it does not.
func Load(configPath string) (Config, error) {
	var cfg Config
	if err := read(configPath, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadClient(configPath string) (ClientConfig, error) {
	var cfg ClientConfig
	if err := read(configPath, &cfg); err != nil {
		return ClientConfig{}, err
	}
	if cfg.SessionFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = os.TempDir()
		}
		cfg.SessionFile = filepath.Join(dir, "nexto", "session.yaml")
	}
	return cfg, nil
}

func read(configPath string, cfg any) error {
	if configPath == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return fmt.Errorf("cannot read env: %w", err)
		}
		return nil
	}

	if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
		var pe *os.PathError
		if errors.As(err, &pe) {
			if err := cleanenv.ReadEnv(cfg); err != nil {
				return fmt.Errorf("cannot read env: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot read config %q: %w", configPath, err)
	}
	return nil
}

// NewLogger builds the process logger from a level name.
func NewLogger(logLevel string) *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
