package notifications

import (
	"time"

	"github.com/giho-tech/helpdesk/internal/warranty"
)

// Channel names a delivery channel.
type Channel string

const ChannelTelegram Channel = "telegram"

// Result labels the outcome of one dispatch.
type Result string

const (
	ResultSent    Result = "sent"
	ResultFailed  Result = "failed"
	ResultSkipped Result = "skipped"
)

// Notification is the record of one delivery attempt.
type Notification struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	Channel   Channel   `json:"channel"`
	Message   string    `json:"message"`
	Delivered bool      `json:"delivered"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTicket is the summary sent when a ticket is opened.
type NewTicket struct {
	ID           string
	CustomerName string
	Phone        string
	Description  string
	Warranty     warranty.Status
	CreatedAt    time.Time
}
