package tickets

import (
	"errors"
	"time"

	"github.com/giho-tech/helpdesk/internal/attachment"
	"github.com/giho-tech/helpdesk/internal/warranty"
)

// Status is the lifecycle state of a ticket.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusResolved  Status = "RESOLVED"
	StatusEscalated Status = "ESCALATED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusResolved, StatusEscalated:
		return true
	}
	return false
}

var (
	ErrNotFound            = errors.New("ticket not found")
	ErrDescriptionRequired = errors.New("description is required")
	ErrInvalidStatus       = errors.New("invalid ticket status")
	ErrForeignAttachment   = errors.New("attachment url not issued by ticket storage")
)

// DefaultCustomerName is used when the customer gave no name.
const DefaultCustomerName = "Khách hàng"

// Ticket is a persisted escalation to a human technician.
type Ticket struct {
	ID              string             `json:"id"`
	CustomerName    string             `json:"customerName"`
	Phone           string             `json:"phone,omitempty"`
	Description     string             `json:"description"`
	AttachmentURL   string             `json:"attachmentUrl,omitempty"`
	AttachmentKind  attachment.Kind    `json:"attachmentKind,omitempty"`
	Status          Status             `json:"status"`
	WarrantyStatus  warranty.Status    `json:"warranty,omitempty"`
	WarrantyDetails []warranty.Product `json:"warrantyDetails,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// Intake is the input to Service.Open.
type Intake struct {
	CustomerName   string          `json:"customerName"`
	Phone          string          `json:"phone"`
	Description    string          `json:"description"`
	AttachmentURL  string          `json:"fileUrl"`
	AttachmentKind attachment.Kind `json:"fileType"`
}

// ListFilter controls which tickets are returned by List.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}
