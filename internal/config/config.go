package config

import (
	"fmt"
	"net/mail"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides. A double underscore
// separates nesting levels: HELPDESK_AI__PRIMARY__MODEL -> ai.primary.model.
const EnvPrefix = "HELPDESK_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (HELPDESK_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderGoogle: true,
	ProviderOpenAI: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if err := validateProvider("ai.primary", c.AI.Primary); err != nil {
		return err
	}
	if c.AI.Fallback.Type != "" {
		if err := validateProvider("ai.fallback", c.AI.Fallback); err != nil {
			return err
		}
	}
	if c.AI.PrimaryTimeout <= 0 || c.AI.FallbackTimeout <= 0 {
		return fmt.Errorf("ai timeouts must be positive")
	}
	if c.AI.RequestsPerMinute < 0 {
		return fmt.Errorf("ai.requests_per_minute must be non-negative")
	}
	if len(c.Attachments.AllowedTypes) == 0 {
		return fmt.Errorf("attachments.allowed_types must not be empty")
	}
	if c.Attachments.MaxImageBytes <= 0 || c.Attachments.MaxVideoBytes <= 0 {
		return fmt.Errorf("attachment size limits must be positive")
	}
	if c.Attachments.MaxVideoSeconds <= 0 {
		return fmt.Errorf("attachments.max_video_seconds must be positive")
	}
	if c.Knowledge.ResultLimit <= 0 {
		return fmt.Errorf("knowledge.result_limit must be positive")
	}
	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir is required for the local backend")
		}
	case StorageS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("invalid storage.backend %q: must be local or s3", c.Storage.Backend)
	}
	switch c.Sessions.Backend {
	case SessionMemory:
	case SessionRedis:
		if c.Sessions.RedisAddr == "" {
			return fmt.Errorf("sessions.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid sessions.backend %q: must be memory or redis", c.Sessions.Backend)
	}
	if c.Retention.MaxAge <= 0 {
		return fmt.Errorf("retention.max_age must be positive")
	}
	for i, acct := range c.Admin.Accounts {
		if _, err := mail.ParseAddress(acct.Email); err != nil {
			return fmt.Errorf("admin.accounts[%d]: invalid email %q", i, acct.Email)
		}
		if !strings.HasPrefix(acct.PasswordHash, "$2") {
			return fmt.Errorf("admin.accounts[%d]: password_hash must be a bcrypt hash", i)
		}
	}
	if len(c.Admin.Accounts) > 0 && c.Admin.JWTSecret == "" {
		return fmt.Errorf("admin.jwt_secret is required when admin accounts are configured")
	}
	return nil
}

func validateProvider(field string, p ProviderSpec) error {
	if !validProviders[p.Type] {
		return fmt.Errorf("invalid %s.type %q: must be one of google, openai", field, p.Type)
	}
	if p.Model == "" {
		return fmt.Errorf("%s.model is required", field)
	}
	return nil
}

// APIKey returns the API key for the provider, read from its configured
// environment variable or the provider's conventional one.
func (p ProviderSpec) APIKey() string {
	name := p.APIKeyEnv
	if name == "" {
		name = APIKeyEnvVar(p.Type)
	}
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderGoogle:
		return "GEMINI_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}
