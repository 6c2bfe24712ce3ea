package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/giho-tech/helpdesk/internal/notifications"
	"github.com/giho-tech/helpdesk/internal/warranty"
)

// Notifier delivers the new-ticket message. notifications.Dispatcher
// implements it.
type Notifier interface {
	NotifyNewTicket(ctx context.Context, t notifications.NewTicket) (notifications.Result, error)
}

// Recorder counts created tickets by warranty status.
type Recorder interface {
	ObserveTicket(warranty string)
}

// Service opens tickets: warranty lookup, persistence, then a
// best-effort notification.
type Service struct {
	store    *Store
	checker  warranty.Checker
	notifier Notifier
	recorder Recorder
	files    Files
	logger   *slog.Logger
}

// NewService wires the intake pipeline. checker and notifier may be nil.
func NewService(store *Store, checker warranty.Checker, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, checker: checker, notifier: notifier, logger: logger}
}

// SetRecorder attaches a metrics recorder.
func (s *Service) SetRecorder(r Recorder) { s.recorder = r }

// SetFiles attaches the storage that issues attachment URLs. Without it
// OpenPublic refuses every attachment URL.
func (s *Service) SetFiles(f Files) { s.files = f }

// Store returns the underlying ticket store.
func (s *Service) Store() *Store { return s.store }

// Open creates a ticket. Only a persistence failure fails the call;
// warranty and notification problems are logged and absorbed.
func (s *Service) Open(ctx context.Context, in Intake) (*Ticket, error) {
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return nil, ErrDescriptionRequired
	}
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	if in.CustomerName == "" {
		in.CustomerName = DefaultCustomerName
	}
	in.Phone = strings.TrimSpace(in.Phone)

	t := Ticket{
		CustomerName:   in.CustomerName,
		Phone:          in.Phone,
		Description:    in.Description,
		AttachmentURL:  in.AttachmentURL,
		AttachmentKind: in.AttachmentKind,
		Status:         StatusOpen,
	}
	if t.AttachmentURL == "" {
		t.AttachmentKind = ""
	}

	if in.Phone != "" && s.checker != nil {
		res := s.checker.Check(ctx, in.Phone)
		t.WarrantyStatus = res.Status
		t.WarrantyDetails = res.Products
	}

	created, err := s.store.Create(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("opening ticket: %w", err)
	}
	s.logger.Info("ticket opened", "ticket_id", created.ID, "warranty", created.WarrantyStatus)
	if s.recorder != nil {
		s.recorder.ObserveTicket(warrantyLabel(created.WarrantyStatus))
	}

	s.notify(ctx, created)
	return created, nil
}

// OpenPublic opens a ticket from untrusted input. An attachment URL must
// point into ticket storage, since the retention sweep deletes it later.
func (s *Service) OpenPublic(ctx context.Context, in Intake) (*Ticket, error) {
	in.AttachmentURL = strings.TrimSpace(in.AttachmentURL)
	if in.AttachmentURL != "" && (s.files == nil || !s.files.Owns(in.AttachmentURL)) {
		return nil, ErrForeignAttachment
	}
	return s.Open(ctx, in)
}

func (s *Service) notify(ctx context.Context, t *Ticket) {
	if s.notifier == nil {
		return
	}
	result, err := s.notifier.NotifyNewTicket(ctx, notifications.NewTicket{
		ID:           t.ID,
		CustomerName: t.CustomerName,
		Phone:        t.Phone,
		Description:  t.Description,
		Warranty:     t.WarrantyStatus,
		CreatedAt:    t.CreatedAt,
	})
	if err != nil {
		s.logger.Warn("ticket notification failed", "ticket_id", t.ID, "error", err)
		return
	}
	s.logger.Debug("ticket notification", "ticket_id", t.ID, "result", result)
}

func warrantyLabel(s warranty.Status) string {
	if s == "" {
		return "none"
	}
	return strings.ToLower(string(s))
}
