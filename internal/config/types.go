package config

import "time"

// ProviderType identifies a generative-AI backend.
type ProviderType string

const (
	ProviderGoogle ProviderType = "google"
	ProviderOpenAI ProviderType = "openai"
)

// StorageBackend selects where ticket attachments are uploaded.
type StorageBackend string

const (
	StorageLocal StorageBackend = "local"
	StorageS3    StorageBackend = "s3"
)

// SessionBackend selects where live conversation sessions are kept.
type SessionBackend string

const (
	SessionMemory SessionBackend = "memory"
	SessionRedis  SessionBackend = "redis"
)

// Config is the top-level helpdesk configuration, corresponding to helpdesk.yml.
type Config struct {
	DataDir     string           `yaml:"data_dir" koanf:"data_dir"`
	Hotline     string           `yaml:"hotline" koanf:"hotline"`
	Server      ServerConfig     `yaml:"server" koanf:"server"`
	AI          AIConfig         `yaml:"ai" koanf:"ai"`
	Attachments AttachmentConfig `yaml:"attachments" koanf:"attachments"`
	Knowledge   KnowledgeConfig  `yaml:"knowledge" koanf:"knowledge"`
	Warranty    WarrantyConfig   `yaml:"warranty" koanf:"warranty"`
	Storage     StorageConfig    `yaml:"storage" koanf:"storage"`
	Sessions    SessionConfig    `yaml:"sessions" koanf:"sessions"`
	Retention   RetentionConfig  `yaml:"retention" koanf:"retention"`
	Admin       AdminConfig      `yaml:"admin" koanf:"admin"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port           int      `yaml:"port" koanf:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
	// PublicBaseURL prefixes deep links sent in ticket notifications.
	PublicBaseURL string `yaml:"public_base_url" koanf:"public_base_url"`
}

// ProviderSpec describes one AI backend.
type ProviderSpec struct {
	Type  ProviderType `yaml:"type" koanf:"type"`
	Model string       `yaml:"model" koanf:"model"`
	// VisionModel is used instead of Model when an image is attached.
	VisionModel string `yaml:"vision_model" koanf:"vision_model"`
	BaseURL     string `yaml:"base_url" koanf:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env" koanf:"api_key_env"`
}

// AIConfig configures the primary/fallback provider pair.
type AIConfig struct {
	Enabled           bool          `yaml:"enabled" koanf:"enabled"`
	Primary           ProviderSpec  `yaml:"primary" koanf:"primary"`
	Fallback          ProviderSpec  `yaml:"fallback" koanf:"fallback"`
	PrimaryTimeout    time.Duration `yaml:"primary_timeout" koanf:"primary_timeout"`
	FallbackTimeout   time.Duration `yaml:"fallback_timeout" koanf:"fallback_timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	MaxTokens         int           `yaml:"max_tokens" koanf:"max_tokens"`
	Temperature       float64       `yaml:"temperature" koanf:"temperature"`
}

// AttachmentConfig bounds what customers may upload.
type AttachmentConfig struct {
	AllowedTypes    []string `yaml:"allowed_types" koanf:"allowed_types"`
	MaxImageBytes   int64    `yaml:"max_image_bytes" koanf:"max_image_bytes"`
	MaxVideoBytes   int64    `yaml:"max_video_bytes" koanf:"max_video_bytes"`
	MaxVideoSeconds float64  `yaml:"max_video_seconds" koanf:"max_video_seconds"`
}

// KnowledgeConfig tunes knowledge-base lookups.
type KnowledgeConfig struct {
	ResultLimit int           `yaml:"result_limit" koanf:"result_limit"`
	Timeout     time.Duration `yaml:"timeout" koanf:"timeout"`
}

// WarrantyConfig points at the external warranty registry.
type WarrantyConfig struct {
	RegistryURL string        `yaml:"registry_url" koanf:"registry_url"`
	APIKey      string        `yaml:"api_key" koanf:"api_key"`
	Timeout     time.Duration `yaml:"timeout" koanf:"timeout"`
}

// StorageConfig selects and configures the attachment store.
type StorageConfig struct {
	Backend  StorageBackend `yaml:"backend" koanf:"backend"`
	LocalDir string         `yaml:"local_dir" koanf:"local_dir"`
	Bucket   string         `yaml:"bucket" koanf:"bucket"`
	Region   string         `yaml:"region" koanf:"region"`
	Prefix   string         `yaml:"prefix" koanf:"prefix"`
	Endpoint string         `yaml:"endpoint" koanf:"endpoint"` // S3-compatible stores (MinIO)
}

// SessionConfig selects where conversation sessions live.
type SessionConfig struct {
	Backend   SessionBackend `yaml:"backend" koanf:"backend"`
	RedisAddr string         `yaml:"redis_addr" koanf:"redis_addr"`
	TTL       time.Duration  `yaml:"ttl" koanf:"ttl"`
}

// RetentionConfig controls the old-ticket sweeper.
type RetentionConfig struct {
	MaxAge   time.Duration `yaml:"max_age" koanf:"max_age"`
	Interval time.Duration `yaml:"interval" koanf:"interval"`
}

// AdminAccount is one back-office login. PasswordHash is a bcrypt hash.
type AdminAccount struct {
	Email        string `yaml:"email" koanf:"email"`
	PasswordHash string `yaml:"password_hash" koanf:"password_hash"`
}

// AdminConfig holds back-office authentication settings.
type AdminConfig struct {
	Accounts   []AdminAccount `yaml:"accounts" koanf:"accounts"`
	JWTSecret  string         `yaml:"jwt_secret" koanf:"jwt_secret"`
	SessionTTL time.Duration  `yaml:"session_ttl" koanf:"session_ttl"`
}
