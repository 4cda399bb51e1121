// Package config loads the client configuration from a YAML file, .env
// and the environment, optionally overlaid with an SSM parameter.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"uamvh.cloud/escolar/infrastructure/communication"
	"uamvh.cloud/escolar/infrastructure/devops"
	"uamvh.cloud/escolar/infrastructure/filesystem"
)

const DefaultPath = "escolar.yaml"

type API struct {
	URL         string        `yaml:"url" validate:"required,url"`
	Token       string        `yaml:"token"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
	PingTimeout time.Duration `yaml:"pingTimeout" validate:"gt=0"`
}

type Store struct {
	Driver   string `yaml:"driver" validate:"oneof=file memory sqlite mysql postgres"`
	DSN      string `yaml:"dsn"`
	LogLevel string `yaml:"logLevel" validate:"omitempty,oneof=silent error warn info"`
}

type Sync struct {
	Policy        string        `yaml:"policy" validate:"oneof=continue stop"`
	MaxAttempts   int           `yaml:"maxAttempts" validate:"min=1"`
	OnReconnect   bool          `yaml:"onReconnect"`
	WatchInterval time.Duration `yaml:"watchInterval" validate:"gt=0"`
	SweepInterval time.Duration `yaml:"sweepInterval" validate:"gt=0"`
}

type Log struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

type Slack struct {
	Token                     string `yaml:"token"`
	Verbose                   bool   `yaml:"verbose"`
	communication.SlackOption `yaml:",inline"`
}

type Gateway struct {
	Addr          string        `yaml:"addr" validate:"required"`
	SigningSecret string        `yaml:"signingSecret" validate:"omitempty,base64"`
	TokenTTL      time.Duration `yaml:"tokenTTL" validate:"gt=0"`
}

type AWS struct {
	filesystem.S3Option       `yaml:",inline"`
	communication.EmailOption `yaml:",inline"`
	SSMParameter              string `yaml:"ssmParameter"`
	Bucket                    string `yaml:"bucket"`
}

type Config struct {
	API     API     `yaml:"api"`
	Store   Store   `yaml:"store"`
	Sync    Sync    `yaml:"sync"`
	Log     Log     `yaml:"log"`
	Slack   Slack   `yaml:"slack"`
	Gateway Gateway `yaml:"gateway"`
	AWS     AWS     `yaml:"aws"`
}

func Default() *Config {
	return &Config{
		API: API{
			URL:         "http://localhost:3000",
			Timeout:     15 * time.Second,
			PingTimeout: 3 * time.Second,
		},
		Store: Store{Driver: "file", DSN: ".escolar", LogLevel: "warn"},
		Sync: Sync{
			Policy:        "continue",
			MaxAttempts:   5,
			OnReconnect:   true,
			WatchInterval: 30 * time.Second,
			SweepInterval: time.Hour,
		},
		Log:     Log{Level: "info", Format: "console"},
		Gateway: Gateway{Addr: ":8080", TokenTTL: 12 * time.Hour},
	}
}

// Load reads path (DefaultPath when empty; a missing default file is not
// an error), applies .env and environment overrides, the SSM overlay when
// aws.ssmParameter is set, and validates the result.
func Load(ctx context.Context, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(cfg)

	if cfg.AWS.SSMParameter != "" {
		value, err := devops.LoadParameter(ctx, cfg.AWS.SSMParameter, cfg.AWS.Region)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal([]byte(value), cfg); err != nil {
			return nil, fmt.Errorf("parse parameter %s: %w", cfg.AWS.SSMParameter, err)
		}
		// the environment still wins over the shared parameter
		applyEnv(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
	str("ESCOLAR_API_URL", &cfg.API.URL)
	str("ESCOLAR_TOKEN", &cfg.API.Token)
	str("ESCOLAR_STORE_DRIVER", &cfg.Store.Driver)
	str("ESCOLAR_STORE_DSN", &cfg.Store.DSN)
	str("ESCOLAR_SYNC_POLICY", &cfg.Sync.Policy)
	str("ESCOLAR_LOG_LEVEL", &cfg.Log.Level)
	str("ESCOLAR_LOG_FORMAT", &cfg.Log.Format)
	str("ESCOLAR_GATEWAY_ADDR", &cfg.Gateway.Addr)
	str("ESCOLAR_SIGNING_SECRET", &cfg.Gateway.SigningSecret)
	str("ESCOLAR_BUCKET", &cfg.AWS.Bucket)
	str("AWS_REGION", &cfg.AWS.Region)
	str("SLACK_BOT_TOKEN", &cfg.Slack.Token)
	str("SLACK_INFO_CHANNEL", &cfg.Slack.InfoChannelID)
	str("SLACK_ERROR_CHANNEL", &cfg.Slack.ErrorChannelID)
	str("ESCOLAR_SES_FROM", &cfg.AWS.From)
	if v := os.Getenv("ESCOLAR_SES_TO"); v != "" {
		cfg.AWS.To = strings.Split(v, ",")
	}

	if v, err := strconv.Atoi(os.Getenv("ESCOLAR_SYNC_MAX_ATTEMPTS")); err == nil {
		cfg.Sync.MaxAttempts = v
	}
	if v, err := time.ParseDuration(os.Getenv("ESCOLAR_API_TIMEOUT")); err == nil {
		cfg.API.Timeout = v
	}
}

func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
