package gateway

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/giho-tech/helpdesk/internal/llm"
)

// Config wires a Gateway. Either provider may be nil.
type Config struct {
	Primary         llm.Provider
	Fallback        llm.Provider
	PrimaryTimeout  time.Duration
	FallbackTimeout time.Duration
	MaxTokens       int
	Temperature     float64
	// Enabled is consulted on every call; nil means always enabled.
	Enabled  func(ctx context.Context) bool
	Recorder Recorder
	Logger   *slog.Logger
}

// Gateway puts a primary and a fallback provider behind a single call.
// The primary is raced against its timeout; on timeout or error the
// fallback is tried once. Ask never returns an error: exhaustion is
// reported as the NeedTechnician answer.
type Gateway struct {
	cfg    Config
	logger *slog.Logger
	rec    Recorder
}

// New creates a Gateway.
func New(cfg Config) *Gateway {
	if cfg.PrimaryTimeout <= 0 {
		cfg.PrimaryTimeout = 45 * time.Second
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = cfg.PrimaryTimeout
	}
	g := &Gateway{cfg: cfg, logger: cfg.Logger, rec: cfg.Recorder}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.rec == nil {
		g.rec = nopRecorder{}
	}
	return g
}

// Check returns ErrNotConfigured when Ask would short-circuit.
func (g *Gateway) Check(ctx context.Context) error {
	if g.cfg.Primary == nil && g.cfg.Fallback == nil {
		return ErrNotConfigured
	}
	if g.cfg.Enabled != nil && !g.cfg.Enabled(ctx) {
		return ErrNotConfigured
	}
	return nil
}

// Ask sends prompt, with optional media, to the primary provider and then
// to the fallback if the primary times out or fails.
func (g *Gateway) Ask(ctx context.Context, prompt string, media *llm.Media) Answer {
	if err := g.Check(ctx); err != nil {
		g.logger.Debug("ai gateway skipped", "error", err)
		return Answer{ID: NoSolution}
	}

	steps := []struct {
		provider llm.Provider
		source   Source
		timeout  time.Duration
	}{
		{g.cfg.Primary, SourcePrimary, g.cfg.PrimaryTimeout},
		{g.cfg.Fallback, SourceFallback, g.cfg.FallbackTimeout},
	}

	for _, step := range steps {
		if step.provider == nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		text, outcome, err := g.attempt(ctx, step.provider, step.timeout, prompt, media)
		if outcome == OutcomeOK {
			return Answer{
				ID:       AIGenerated,
				Text:     text,
				Title:    answerTitle(media),
				Source:   step.source,
				Provider: step.provider.Name(),
			}
		}
		g.logger.Warn("ai provider attempt failed",
			"provider", step.provider.Name(),
			"source", string(step.source),
			"outcome", outcome.String(),
			"error", err,
		)
	}

	g.rec.IncExhausted()
	return Answer{ID: NeedTechnician}
}

type completion struct {
	resp *llm.CompletionResponse
	err  error
}

// attempt runs a single provider call under its own deadline. The call
// runs in a goroutine so a provider that ignores cancellation cannot hold
// the turn past the deadline; its late result lands in the buffered
// channel and is dropped.
func (g *Gateway) attempt(ctx context.Context, p llm.Provider, timeout time.Duration, prompt string, media *llm.Media) (string, Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := llm.CompletionRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	}
	if media != nil && p.Capabilities().Accepts(media.Kind) {
		req.Media = []llm.Media{*media}
	}

	start := time.Now()
	done := make(chan completion, 1)
	go func() {
		resp, err := p.Complete(ctx, req)
		done <- completion{resp: resp, err: err}
	}()

	var (
		text    string
		outcome Outcome
		err     error
	)
	select {
	case c := <-done:
		switch {
		case c.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
			outcome, err = OutcomeTimedOut, c.err
		case c.err != nil:
			outcome, err = OutcomeProviderError, c.err
		case c.resp == nil || strings.TrimSpace(c.resp.Content) == "":
			outcome, err = OutcomeProviderError, errEmptyResponse
		default:
			text, outcome = c.resp.Content, OutcomeOK
		}
	case <-ctx.Done():
		err = ctx.Err()
		outcome = OutcomeProviderError
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = OutcomeTimedOut
		}
	}

	g.rec.ObserveAttempt(p.Name(), outcome, time.Since(start))
	return text, outcome, err
}
