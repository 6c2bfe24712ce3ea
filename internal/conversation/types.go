package conversation

import (
	"errors"
	"slices"
	"time"

	"github.com/giho-tech/helpdesk/internal/attachment"
)

// State is the dialogue state of a session.
type State string

const (
	StateNormal              State = "normal"
	StateAISuggested         State = "ai_suggested"
	StateAwaitingEvidence    State = "awaiting_evidence"
	StateAwaitingContactInfo State = "awaiting_contact_info"
)

// Valid reports whether s is one of the four dialogue states.
func (s State) Valid() bool {
	switch s {
	case StateNormal, StateAISuggested, StateAwaitingEvidence, StateAwaitingContactInfo:
		return true
	}
	return false
}

// Role is the author of a message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyInput      = errors.New("message has no text or attachment")
)

// AttachmentRef describes the media carried by a message.
type AttachmentRef struct {
	Kind     attachment.Kind `json:"kind,omitempty"`
	MIMEType string          `json:"mimeType"`
	FileName string          `json:"fileName,omitempty"`
	URL      string          `json:"url,omitempty"`
}

// Message is one entry of the transcript. Messages are never edited.
type Message struct {
	Role       Role           `json:"role"`
	Text       string         `json:"text"`
	Attachment *AttachmentRef `json:"attachment,omitempty"`
	At         time.Time      `json:"at"`
}

// PendingAttachment is the validated media held until a ticket is opened.
type PendingAttachment struct {
	Kind     attachment.Kind `json:"kind"`
	MIMEType string          `json:"mimeType"`
	FileName string          `json:"fileName,omitempty"`
	Data     []byte          `json:"data"`
}

// Session is the full state of one customer conversation. It is passed
// into and returned from every turn.
type Session struct {
	ID           string             `json:"id"`
	State        State              `json:"state"`
	Messages     []Message          `json:"messages"`
	IssueSummary string             `json:"issueSummary,omitempty"`
	LastAIReply  string             `json:"lastAiReply,omitempty"`
	Pending      *PendingAttachment `json:"pending,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// NewSession starts a conversation with the greeting message.
func NewSession(id string, now time.Time) Session {
	return Session{
		ID:        id,
		State:     StateNormal,
		Messages:  []Message{{Role: RoleSystem, Text: greeting, At: now}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// clone copies s so a turn never mutates the caller's transcript.
func (s Session) clone() Session {
	s.Messages = slices.Clone(s.Messages)
	if s.Pending != nil {
		p := *s.Pending
		s.Pending = &p
	}
	return s
}

// reset clears the fields carried between turns and returns to Normal.
func (s *Session) reset() {
	s.State = StateNormal
	s.IssueSummary = ""
	s.LastAIReply = ""
	s.Pending = nil
}

// Input is one customer turn: text, an attachment, or both.
type Input struct {
	Text       string
	Attachment *attachment.Blob
}

// Reply is what the customer sees after a turn.
type Reply struct {
	Text  string `json:"text"`
	State State  `json:"state"`
}
