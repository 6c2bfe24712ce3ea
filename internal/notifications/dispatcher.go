package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/giho-tech/helpdesk/internal/settings"
)

// SettingsReader provides the notification credentials.
type SettingsReader interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

// Recorder receives dispatch outcomes. The metrics package implements it.
type Recorder interface {
	ObserveNotification(result Result)
}

// Dispatcher sends new-ticket messages and records each attempt.
type Dispatcher struct {
	store         *Store
	settings      SettingsReader
	sender        Sender
	publicBaseURL string
	logger        *slog.Logger
	recorder      Recorder
}

// NewDispatcher creates a Dispatcher backed by the given store.
func NewDispatcher(store *Store, st SettingsReader, sender Sender, publicBaseURL string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:         store,
		settings:      st,
		sender:        sender,
		publicBaseURL: publicBaseURL,
		logger:        logger,
	}
}

// SetRecorder attaches a metrics recorder.
func (d *Dispatcher) SetRecorder(r Recorder) { d.recorder = r }

// NotifyNewTicket sends the new-ticket message when the channel is
// configured and enabled. A skipped dispatch is not an error.
func (d *Dispatcher) NotifyNewTicket(ctx context.Context, t NewTicket) (Result, error) {
	st, err := d.settings.Get(ctx)
	if err != nil {
		d.observe(ResultFailed)
		return ResultFailed, fmt.Errorf("reading notification settings: %w", err)
	}
	if !st.TelegramConfigured() {
		d.logger.Debug("telegram not configured, skipping notification", "ticket_id", t.ID)
		d.observe(ResultSkipped)
		return ResultSkipped, nil
	}
	if !st.NotifyOnNewTicket {
		d.logger.Debug("new ticket notifications disabled", "ticket_id", t.ID)
		d.observe(ResultSkipped)
		return ResultSkipped, nil
	}

	msg := FormatNewTicket(t, d.publicBaseURL)
	return d.deliver(ctx, st, t.ID, msg)
}

// SendTest sends a plain message regardless of the new-ticket switch.
func (d *Dispatcher) SendTest(ctx context.Context, text string) (Result, error) {
	st, err := d.settings.Get(ctx)
	if err != nil {
		return ResultFailed, fmt.Errorf("reading notification settings: %w", err)
	}
	if !st.TelegramConfigured() {
		return ResultSkipped, nil
	}
	return d.deliver(ctx, st, "", text)
}

func (d *Dispatcher) deliver(ctx context.Context, st *settings.Settings, ticketID, msg string) (Result, error) {
	sendErr := d.sender.Send(ctx, st.TelegramBotToken, st.TelegramChatID, msg)

	rec := Notification{TicketID: ticketID, Channel: ChannelTelegram, Message: msg, Delivered: sendErr == nil}
	if sendErr != nil {
		rec.Error = sendErr.Error()
	}
	if _, err := d.store.Create(ctx, rec); err != nil {
		d.logger.Warn("recording notification failed", "ticket_id", ticketID, "error", err)
	}

	if sendErr != nil {
		d.observe(ResultFailed)
		return ResultFailed, sendErr
	}
	d.observe(ResultSent)
	return ResultSent, nil
}

func (d *Dispatcher) observe(r Result) {
	if d.recorder != nil {
		d.recorder.ObserveNotification(r)
	}
}
