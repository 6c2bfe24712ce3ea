// Package attachment validates customer-supplied media before it enters
// a conversation.
package attachment

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Kind is the coarse media class of an accepted attachment.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

var (
	ErrUnsupportedType  = errors.New("unsupported media type")
	ErrTooLarge         = errors.New("attachment too large")
	ErrDurationRejected = errors.New("video duration rejected")
)

// ValidationError wraps one of the sentinel errors with the offending
// value and the limit it broke.
type ValidationError struct {
	Reason   error
	Kind     Kind
	MIMEType string
	Detail   string
	Limit    float64
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
	}
	return e.Reason.Error()
}

func (e *ValidationError) Unwrap() error { return e.Reason }

// Blob is an uploaded file held in memory.
type Blob struct {
	Data []byte
	// DeclaredType is the client-supplied MIME type; sniffed when empty.
	DeclaredType string
	FileName     string
}

// Result describes an accepted attachment.
type Result struct {
	Kind     Kind
	MIMEType string
	Size     int64
	// Seconds is the probed duration, zero for images.
	Seconds float64
}

// Limits bounds accepted attachments.
type Limits struct {
	AllowedTypes    []string
	MaxImageBytes   int64
	MaxVideoBytes   int64
	MaxVideoSeconds float64
}

// Validator checks type, size and video duration.
type Validator struct {
	limits Limits
	prober Prober
}

// NewValidator creates a Validator. A nil prober uses MP4Prober.
func NewValidator(limits Limits, prober Prober) *Validator {
	if prober == nil {
		prober = MP4Prober{}
	}
	return &Validator{limits: limits, prober: prober}
}

// Validate runs every check synchronously. It has no side effects, so the
// same blob always yields the same outcome.
func (v *Validator) Validate(b Blob) (Result, error) {
	mimeType := detectType(b)
	kind, ok := kindOf(mimeType)
	if !ok || !v.allowed(mimeType) {
		return Result{}, &ValidationError{Reason: ErrUnsupportedType, MIMEType: mimeType, Detail: mimeType}
	}

	size := int64(len(b.Data))
	limit := v.limits.MaxImageBytes
	if kind == KindVideo {
		limit = v.limits.MaxVideoBytes
	}
	if limit > 0 && size > limit {
		return Result{}, &ValidationError{
			Reason:   ErrTooLarge,
			Kind:     kind,
			MIMEType: mimeType,
			Detail:   fmt.Sprintf("%d bytes exceeds %d", size, limit),
			Limit:    float64(limit),
		}
	}

	res := Result{Kind: kind, MIMEType: mimeType, Size: size}
	if kind != KindVideo {
		return res, nil
	}

	seconds, err := v.prober.Duration(b.Data)
	if err != nil {
		return Result{}, &ValidationError{
			Reason:   ErrDurationRejected,
			Kind:     kind,
			MIMEType: mimeType,
			Detail:   err.Error(),
			Limit:    v.limits.MaxVideoSeconds,
		}
	}
	if v.limits.MaxVideoSeconds > 0 && seconds > v.limits.MaxVideoSeconds {
		return Result{}, &ValidationError{
			Reason:   ErrDurationRejected,
			Kind:     kind,
			MIMEType: mimeType,
			Detail:   fmt.Sprintf("%.1fs exceeds %.0fs", seconds, v.limits.MaxVideoSeconds),
			Limit:    v.limits.MaxVideoSeconds,
		}
	}
	res.Seconds = seconds
	return res, nil
}

func (v *Validator) allowed(mimeType string) bool {
	for _, pattern := range v.limits.AllowedTypes {
		if ok, _ := doublestar.Match(pattern, mimeType); ok {
			return true
		}
	}
	return false
}

func detectType(b Blob) string {
	declared := strings.TrimSpace(b.DeclaredType)
	if declared != "" && declared != "application/octet-stream" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			return mt
		}
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(b.Data))
	return mt
}

func kindOf(mimeType string) (Kind, bool) {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage, true
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo, true
	default:
		return "", false
	}
}

// Extension returns a file extension for the MIME type, without the dot.
func Extension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "video/mp4":
		return "mp4"
	case "video/quicktime":
		return "mov"
	case "video/webm":
		return "webm"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	if _, sub, ok := strings.Cut(mimeType, "/"); ok && sub != "" {
		return sub
	}
	return "bin"
}
