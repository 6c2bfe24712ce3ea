package llm

import "context"

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
	// Capabilities reports which attachment kinds the provider can read.
	Capabilities() Capabilities
}

// Capabilities describes the media a provider accepts alongside text.
type Capabilities struct {
	Image bool
	Video bool
}

// Accepts reports whether media of the given kind can be forwarded.
func (c Capabilities) Accepts(kind MediaKind) bool {
	switch kind {
	case MediaImage:
		return c.Image
	case MediaVideo:
		return c.Video
	default:
		return false
	}
}
