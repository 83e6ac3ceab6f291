// Package config reads client settings from the environment, an optional
// .env file and, when a parameter prefix is set, AWS SSM.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreFile     = "file"
	StoreDynamoDB = "dynamodb"

	DefaultAPIURL       = "http://localhost:8000"
	DefaultOAuthAddr    = "127.0.0.1:8765"
	DefaultVoiceCommand = "arecord -q -f S16_LE -r 16000 -c 1 -t wav -"
)

// Config holds everything cmd needs to wire the client.
type Config struct {
	APIURL          string
	HTTPTimeout     time.Duration
	RegisterTimeout time.Duration

	CredentialsStore string
	CredentialsFile  string
	CredentialsTable string
	Profile          string

	ParamPrefix    string
	GoogleClientID string
	OAuthAddr      string

	VoiceCommand  string
	VoiceLanguage string

	LogLevel slog.Level
}

// UsesAWS reports whether any configured component talks to AWS.
func (c Config) UsesAWS() bool {
	return c.ParamPrefix != "" || c.CredentialsStore == StoreDynamoDB
}

// Load reads the configuration. envFiles are loaded first without
// overriding variables already set; a missing .env is not an error.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load env file: %w", err)
		}
		if len(envFiles) > 0 {
			return Config{}, fmt.Errorf("config: env file: %w", err)
		}
	}

	cfg := Config{
		APIURL:           strings.TrimRight(envOr("GENIE_API_URL", DefaultAPIURL), "/"),
		HTTPTimeout:      envDuration("GENIE_HTTP_TIMEOUT", 30*time.Second),
		RegisterTimeout:  envDuration("GENIE_REGISTER_TIMEOUT", 15*time.Second),
		CredentialsStore: strings.ToLower(envOr("GENIE_CREDENTIALS_STORE", StoreFile)),
		CredentialsFile:  os.Getenv("GENIE_CREDENTIALS_FILE"),
		CredentialsTable: os.Getenv("GENIE_CREDENTIALS_TABLE"),
		Profile:          envOr("GENIE_PROFILE", "default"),
		ParamPrefix:      os.Getenv("GENIE_PARAM_PREFIX"),
		GoogleClientID:   os.Getenv("GENIE_GOOGLE_CLIENT_ID"),
		OAuthAddr:        envOr("GENIE_OAUTH_ADDR", DefaultOAuthAddr),
		VoiceCommand:     envOr("GENIE_VOICE_COMMAND", DefaultVoiceCommand),
		VoiceLanguage:    strings.ToLower(envOr("GENIE_VOICE_LANGUAGE", "de")),
		LogLevel:         envLevel("GENIE_LOG_LEVEL", slog.LevelInfo),
	}

	switch cfg.CredentialsStore {
	case StoreFile:
	case StoreDynamoDB:
		if cfg.CredentialsTable == "" {
			return Config{}, errors.New("config: GENIE_CREDENTIALS_TABLE is required for the dynamodb credential store")
		}
	default:
		return Config{}, fmt.Errorf("config: unknown credential store %q", cfg.CredentialsStore)
	}
	return cfg, nil
}

// ParamGetter is satisfied by *paramstore.Client.
type ParamGetter interface {
	GetOptional(ctx context.Context, name string) (string, bool, error)
}

// ApplyRemote overrides the backend URL and OAuth client id with the SSM
// values under the prefix, when present.
func (c *Config) ApplyRemote(ctx context.Context, params ParamGetter) error {
	overrides := []struct {
		name string
		dst  *string
	}{
		{"api_url", &c.APIURL},
		{"google_client_id", &c.GoogleClientID},
	}
	for _, o := range overrides {
		v, found, err := params.GetOptional(ctx, o.name)
		if err != nil {
			return fmt.Errorf("config: remote %s: %w", o.name, err)
		}
		if found && strings.TrimSpace(v) != "" {
			*o.dst = strings.TrimSpace(v)
		}
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "default", def)
		return def
	}
	return n
}

// envDuration accepts Go durations ("20s") or a plain number of seconds.
func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n := envInt(key, 0); n > 0 {
		return time.Duration(n) * time.Second
	}
	slog.Warn("invalid duration in environment, using default", "key", key, "default", def)
	return def
}

func envLevel(key string, def slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		slog.Warn("invalid log level in environment, using default", "key", key, "default", def)
		return def
	}
	return lvl
}
