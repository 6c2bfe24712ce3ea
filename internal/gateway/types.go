package gateway

import (
	"errors"
	"time"
)

// AnswerID distinguishes a generated answer from the synthetic signals.
type AnswerID string

const (
	// AIGenerated marks a real answer produced by one of the providers.
	AIGenerated AnswerID = "ai-generated"
	// NeedTechnician is the exhausted signal: both providers failed.
	NeedTechnician AnswerID = "need-technician"
	// NoSolution is returned when AI is disabled or no provider is configured.
	NoSolution AnswerID = "no-solution"
)

// Source identifies which provider produced an answer.
type Source string

const (
	SourceNone     Source = ""
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

// Answer is the single outcome of Ask.
type Answer struct {
	ID       AnswerID
	Text     string
	Title    string
	Source   Source
	Provider string
}

// Generated reports whether the answer carries provider text.
func (a Answer) Generated() bool {
	return a.ID == AIGenerated
}

// Outcome is the result of one provider attempt.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeTimedOut
	OutcomeProviderError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeProviderError:
		return "provider_error"
	default:
		return "unknown"
	}
}

// ErrNotConfigured reports that no provider is available.
var ErrNotConfigured = errors.New("ai gateway not configured")

// errEmptyResponse is treated like any other provider failure.
var errEmptyResponse = errors.New("provider returned empty text")

// Recorder receives per-attempt observations. The metrics package
// implements it.
type Recorder interface {
	ObserveAttempt(provider string, outcome Outcome, elapsed time.Duration)
	IncExhausted()
}

type nopRecorder struct{}

func (nopRecorder) ObserveAttempt(string, Outcome, time.Duration) {}
func (nopRecorder) IncExhausted()                                 {}
