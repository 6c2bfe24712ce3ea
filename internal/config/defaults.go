package config

import "time"

// modelPresets lists the models offered by the init wizard per provider.
var modelPresets = map[ProviderType][]string{
	ProviderGoogle: {"gemini-3-flash-preview", "gemini-2.0-flash", "gemini-1.5-pro"},
	ProviderOpenAI: {"gpt-4o-mini", "gpt-4o"},
}

// DefaultAllowedTypes are the media type globs accepted as attachments.
var DefaultAllowedTypes = []string{"image/*", "video/*"}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "data",
		Hotline: "1900 0000",
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
			PublicBaseURL:  "https://support.giho.vn",
		},
		AI: AIConfig{
			Enabled: true,
			Primary: ProviderSpec{
				Type:      ProviderGoogle,
				Model:     "gemini-3-flash-preview",
				APIKeyEnv: "GEMINI_API_KEY",
			},
			Fallback: ProviderSpec{
				Type:        ProviderOpenAI,
				Model:       "gpt-4o-mini",
				VisionModel: "gpt-4o",
				APIKeyEnv:   "OPENAI_API_KEY",
			},
			PrimaryTimeout:    45 * time.Second,
			FallbackTimeout:   45 * time.Second,
			RequestsPerMinute: 60,
			MaxTokens:         1000,
			Temperature:       0.7,
		},
		Attachments: AttachmentConfig{
			AllowedTypes:    DefaultAllowedTypes,
			MaxImageBytes:   5 << 20,
			MaxVideoBytes:   100 << 20,
			MaxVideoSeconds: 60,
		},
		Knowledge: KnowledgeConfig{
			ResultLimit: 3,
			Timeout:     5 * time.Second,
		},
		Warranty: WarrantyConfig{
			RegistryURL: "https://us-central1-giho-management.cloudfunctions.net/checkWarranty",
			Timeout:     10 * time.Second,
		},
		Storage: StorageConfig{
			Backend:  StorageLocal,
			LocalDir: "data/uploads",
		},
		Sessions: SessionConfig{
			Backend: SessionMemory,
			TTL:     2 * time.Hour,
		},
		Retention: RetentionConfig{
			MaxAge:   72 * time.Hour,
			Interval: 24 * time.Hour,
		},
		Admin: AdminConfig{
			SessionTTL: 7 * 24 * time.Hour,
		},
	}
}

// ModelsFor returns the wizard's model choices for a provider.
func ModelsFor(p ProviderType) []string {
	return modelPresets[p]
}
