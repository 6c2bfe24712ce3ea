package conversation

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/giho-tech/helpdesk/internal/attachment"
	"github.com/giho-tech/helpdesk/internal/classifier"
	"github.com/giho-tech/helpdesk/internal/gateway"
	"github.com/giho-tech/helpdesk/internal/knowledge"
	"github.com/giho-tech/helpdesk/internal/llm"
	"github.com/giho-tech/helpdesk/internal/storage"
	"github.com/giho-tech/helpdesk/internal/tickets"
)

// KnowledgeSearcher finds pre-authored solutions. knowledge.Store implements it.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]knowledge.Solution, error)
}

// Asker is the AI provider gateway.
type Asker interface {
	Ask(ctx context.Context, prompt string, media *llm.Media) gateway.Answer
}

// Validator checks an uploaded attachment.
type Validator interface {
	Validate(b attachment.Blob) (attachment.Result, error)
}

// TicketOpener runs warranty lookup and intake. tickets.Service implements it.
type TicketOpener interface {
	Open(ctx context.Context, in tickets.Intake) (*tickets.Ticket, error)
}

// Uploader stores a pending attachment when the ticket is opened.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, obj storage.Object) (string, error)
}

// Recorder observes state transitions.
type Recorder interface {
	ObserveTurn(from, to string)
}

// Deps are the collaborators of the Engine. Uploads and Recorder are optional.
type Deps struct {
	Knowledge KnowledgeSearcher
	AI        Asker
	Validator Validator
	Tickets   TicketOpener
	Uploads   Uploader
	Recorder  Recorder
	Logger    *slog.Logger
}

// Options tune the Engine.
type Options struct {
	ResultLimit int
	// LookupTimeout bounds each knowledge-base query.
	LookupTimeout time.Duration
	Hotline       string
	Now           func() time.Time
}

// Engine is the dialogue state machine. It holds no per-session state:
// every turn takes a Session and returns the next one.
type Engine struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(deps Deps, opts Options) *Engine {
	if opts.ResultLimit <= 0 {
		opts.ResultLimit = knowledge.DefaultLimit
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{deps: deps, opts: opts, logger: logger}
}

// HandleTurn processes one customer input. The given session is not
// modified; the returned session carries the transcript and next state.
func (e *Engine) HandleTurn(ctx context.Context, sess Session, in Input) (Session, Reply, error) {
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" && in.Attachment == nil {
		return sess, Reply{}, ErrEmptyInput
	}
	if !sess.State.Valid() {
		sess.State = StateNormal
	}

	next := sess.clone()
	from := next.State

	var reply string
	if in.Attachment != nil {
		reply = e.handleAttachment(ctx, &next, *in.Attachment, in.Text)
	} else {
		next.append(Message{Role: RoleUser, Text: in.Text, At: e.opts.Now()})
		reply = e.handleText(ctx, &next, in.Text)
	}

	now := e.opts.Now()
	next.append(Message{Role: RoleSystem, Text: reply, At: now})
	next.UpdatedAt = now

	e.logger.Debug("conversation turn", "session_id", next.ID, "from", string(from), "state", string(next.State))
	if e.deps.Recorder != nil {
		e.deps.Recorder.ObserveTurn(string(from), string(next.State))
	}
	return next, Reply{Text: reply, State: next.State}, nil
}

func (s *Session) append(m Message) {
	s.Messages = append(s.Messages, m)
}

func orDefault(text, fallback string) string {
	if text == "" {
		return fallback
	}
	return text
}

func (e *Engine) handleText(ctx context.Context, s *Session, text string) string {
	switch s.State {
	case StateAwaitingContactInfo:
		return e.collectContact(ctx, s, text)
	case StateAISuggested:
		return e.followUp(ctx, s, text)
	case StateAwaitingEvidence:
		if wantsTechnician(text) {
			s.State = StateAwaitingContactInfo
			return replyTechnician
		}
		return replyEvidenceNeeded
	default:
		return e.search(ctx, s, text)
	}
}

// search is the Normal text branch: knowledge base first, then AI.
func (e *Engine) search(ctx context.Context, s *Session, text string) string {
	lookupCtx, cancel := context.WithTimeout(ctx, e.opts.LookupTimeout)
	sols, err := e.deps.Knowledge.Search(lookupCtx, text, e.opts.ResultLimit)
	cancel()
	if err != nil {
		e.logger.Warn("knowledge lookup failed", "session_id", s.ID, "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			s.IssueSummary = text
			s.State = StateAwaitingContactInfo
			return replyTimedOut
		}
		return replySystemError
	}
	if len(sols) > 0 {
		return solutionsReply(sols)
	}

	s.IssueSummary = text
	ans := e.deps.AI.Ask(ctx, gateway.DiagnosticPrompt(text, ""), nil)
	switch ans.ID {
	case gateway.AIGenerated:
		s.LastAIReply = ans.Text
		s.State = StateAISuggested
		return ans.Text + replyTryThis
	case gateway.NeedTechnician:
		s.State = StateAwaitingContactInfo
		return replyNeedTechnician
	default:
		s.State = StateAwaitingContactInfo
		return replyNoResults
	}
}

// followUp sends the customer's reaction to the last suggestion back to
// the model and classifies what it says.
func (e *Engine) followUp(ctx context.Context, s *Session, text string) string {
	prompt := gateway.DiagnosticPrompt(FollowUpPrompt(s.LastAIReply, text), "")
	ans := e.deps.AI.Ask(ctx, prompt, nil)
	if !ans.Generated() {
		s.State = StateAwaitingContactInfo
		return replyFollowUpFailed
	}

	switch classifier.Classify(ans.Text) {
	case classifier.Resolved:
		s.reset()
		return ans.Text
	case classifier.NeedsEvidence:
		s.State = StateAwaitingEvidence
		return ans.Text + replyEvidenceSuffix
	default:
		s.LastAIReply = ans.Text
		return ans.Text
	}
}

// handleAttachment validates and holds the attachment, then asks the AI
// about it. text is whatever the customer typed alongside it.
func (e *Engine) handleAttachment(ctx context.Context, s *Session, blob attachment.Blob, text string) string {
	res, err := e.deps.Validator.Validate(blob)
	if err != nil {
		e.logger.Info("attachment rejected", "session_id", s.ID, "error", err)
		s.append(Message{
			Role:       RoleUser,
			Text:       orDefault(text, fileSentText),
			Attachment: &AttachmentRef{MIMEType: blob.DeclaredType, FileName: blob.FileName},
			At:         e.opts.Now(),
		})
		return validationReply(err)
	}

	sent := imageSentText
	if res.Kind == attachment.KindVideo {
		sent = videoSentText
	}
	s.append(Message{
		Role:       RoleUser,
		Text:       orDefault(text, sent),
		Attachment: &AttachmentRef{Kind: res.Kind, MIMEType: res.MIMEType, FileName: blob.FileName},
		At:         e.opts.Now(),
	})
	s.Pending = &PendingAttachment{Kind: res.Kind, MIMEType: res.MIMEType, FileName: blob.FileName, Data: blob.Data}

	if s.State == StateAwaitingContactInfo {
		if text != "" {
			return e.collectContact(ctx, s, text)
		}
		return replyAttachmentNoted
	}

	query := attachmentQuery(s, res.Kind, s.State == StateAwaitingEvidence, text)
	media := &llm.Media{Kind: llm.MediaKind(res.Kind), MIMEType: res.MIMEType, Data: blob.Data}
	ans := e.deps.AI.Ask(ctx, gateway.DiagnosticPrompt(query, media.Kind), media)
	if !ans.Generated() {
		s.State = StateAwaitingContactInfo
		return analysisEscalation(res.Kind)
	}
	s.LastAIReply = ans.Text
	s.State = StateAISuggested
	return analysisReply(res.Kind, ans.Text)
}

// collectContact parses the contact line and opens the ticket. The
// session is reset whether or not the ticket could be created.
func (e *Engine) collectContact(ctx context.Context, s *Session, text string) string {
	contact, ok := ParseContact(text)
	if !ok {
		return replyParseFailed
	}

	description := s.IssueSummary
	if description == "" {
		description = "Không có mô tả"
	}
	intake := tickets.Intake{
		CustomerName: contact.Name,
		Phone:        contact.Phone,
		Description:  description,
	}
	if s.Pending != nil {
		if url := e.upload(ctx, s); url != "" {
			intake.AttachmentURL = url
			intake.AttachmentKind = s.Pending.Kind
		}
	}

	ticket, err := e.deps.Tickets.Open(ctx, intake)
	s.reset()
	if err != nil {
		e.logger.Error("opening ticket failed", "session_id", s.ID, "error", err)
		return ticketFailedReply(e.opts.Hotline)
	}
	e.logger.Info("ticket opened from conversation", "session_id", s.ID, "ticket_id", ticket.ID)
	return confirmationReply(contact.Name, contact.Phone, ticket.ID)
}

// upload stores the pending attachment under a temporary ticket id. A
// failed upload is logged and the ticket is opened without the file.
func (e *Engine) upload(ctx context.Context, s *Session) string {
	if e.deps.Uploads == nil {
		return ""
	}
	now := e.opts.Now()
	obj := storage.Object{
		Key:         storage.Key(storage.TempID(now), now, attachment.Extension(s.Pending.MIMEType)),
		ContentType: s.Pending.MIMEType,
	}
	url, err := e.deps.Uploads.Upload(ctx, bytes.NewReader(s.Pending.Data), obj)
	if err != nil {
		e.logger.Warn("attachment upload failed", "session_id", s.ID, "error", err)
		return ""
	}
	return url
}
