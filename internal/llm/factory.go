package llm

import (
	"errors"
	"fmt"

	"github.com/giho-tech/helpdesk/internal/config"
)

// ErrMissingAPIKey is returned when a provider's key is not in the environment.
var ErrMissingAPIKey = errors.New("api key not set")

// NewProvider creates an LLM provider from its configuration.
// Supported provider types: "google", "openai".
func NewProvider(spec config.ProviderSpec) (Provider, error) {
	apiKey := spec.APIKey()
	if apiKey == "" {
		envVar := spec.APIKeyEnv
		if envVar == "" {
			envVar = config.APIKeyEnvVar(spec.Type)
		}
		if envVar == "" {
			return nil, fmt.Errorf("unsupported provider type: %s", spec.Type)
		}
		return nil, fmt.Errorf("%s: %w (%s)", spec.Type, ErrMissingAPIKey, envVar)
	}

	switch spec.Type {
	case config.ProviderGoogle:
		p := NewGoogleProvider(apiKey, spec.Model)
		if spec.BaseURL != "" {
			p.baseURL = spec.BaseURL
		}
		return p, nil

	case config.ProviderOpenAI:
		return NewOpenAIProvider(apiKey, spec.Model, spec.VisionModel, spec.BaseURL), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", spec.Type)
	}
}
