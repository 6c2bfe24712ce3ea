package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultMaxAge is how long tickets are kept before the sweep removes them.
const DefaultMaxAge = 72 * time.Hour

// Files is the attachment storage tickets point into. storage.Store
// implements it.
type Files interface {
	Owns(url string) bool
	Delete(ctx context.Context, url string) error
}

// SweepReport summarises one retention pass.
type SweepReport struct {
	Deleted      int `json:"deleted"`
	FilesRemoved int `json:"filesRemoved"`
	FileErrors   int `json:"fileErrors"`
	FilesSkipped int `json:"filesSkipped"`
}

// Retention removes tickets older than MaxAge along with their attachments.
type Retention struct {
	store  *Store
	files  Files
	maxAge time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewRetention creates a sweeper. files may be nil when no storage is configured.
func NewRetention(store *Store, files Files, maxAge time.Duration, logger *slog.Logger) *Retention {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retention{store: store, files: files, maxAge: maxAge, logger: logger, now: time.Now}
}

// Sweep deletes every expired ticket. A file that cannot be removed is
// logged and does not keep its ticket alive.
func (r *Retention) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	cutoff := r.now().Add(-r.maxAge)

	expired, err := r.store.ListOlderThan(ctx, cutoff)
	if err != nil {
		return report, fmt.Errorf("listing expired tickets: %w", err)
	}

	for _, t := range expired {
		switch {
		case t.AttachmentURL == "" || r.files == nil:
		case !r.files.Owns(t.AttachmentURL):
			report.FilesSkipped++
			r.logger.Warn("attachment not in ticket storage, left in place", "ticket_id", t.ID, "url", t.AttachmentURL)
		default:
			if err := r.files.Delete(ctx, t.AttachmentURL); err != nil {
				report.FileErrors++
				r.logger.Warn("removing attachment failed", "ticket_id", t.ID, "url", t.AttachmentURL, "error", err)
			} else {
				report.FilesRemoved++
			}
		}
		if err := r.store.Delete(ctx, t.ID); err != nil {
			return report, fmt.Errorf("deleting ticket %s: %w", t.ID, err)
		}
		report.Deleted++
	}

	if report.Deleted > 0 {
		r.logger.Info("retention sweep", "deleted", report.Deleted, "files_removed", report.FilesRemoved)
	}
	return report, nil
}

// Run sweeps every interval until ctx is cancelled.
func (r *Retention) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Sweep(ctx); err != nil {
			r.logger.Error("retention sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
