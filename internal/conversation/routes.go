package conversation

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/giho-tech/helpdesk/internal/attachment"
	"github.com/giho-tech/helpdesk/internal/llm"
	"github.com/giho-tech/helpdesk/internal/render"
)

// maxRequestBytes fits a 100 MB video after base64 expansion.
const maxRequestBytes = 150 << 20

// FilePayload is a base64 attachment sent by the web client.
type FilePayload struct {
	Base64   string `json:"base64"`
	MIMEType string `json:"mimeType"`
	FileName string `json:"fileName,omitempty"`
}

func (f *FilePayload) blob() (*attachment.Blob, error) {
	b64 := f.Base64
	// Accept a full data URI as well as the bare payload.
	if strings.HasPrefix(b64, "data:") {
		if _, rest, ok := strings.Cut(b64, ","); ok {
			b64 = rest
		}
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, errors.New("attachment is not valid base64")
	}
	return &attachment.Blob{Data: data, DeclaredType: f.MIMEType, FileName: f.FileName}, nil
}

type chatRequest struct {
	SessionID  string       `json:"sessionId"`
	Text       string       `json:"text"`
	Attachment *FilePayload `json:"attachment,omitempty"`
}

type chatResponse struct {
	SessionID string    `json:"sessionId"`
	State     State     `json:"state"`
	Reply     string    `json:"reply"`
	ReplyHTML string    `json:"replyHtml"`
	Messages  []Message `json:"messages,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type searchRequest struct {
	Query    string          `json:"query"`
	FileData *FilePayload    `json:"fileData,omitempty"`
	FileType attachment.Kind `json:"fileType,omitempty"`
}

// RegisterRoutes mounts the chat, websocket and search endpoints.
func RegisterRoutes(r chi.Router, svc *Service, validator Validator, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	r.Route("/api/chat", func(r chi.Router) {
		r.Post("/", handleChat(svc))
		r.Get("/{id}", handleGetSession(svc))
		r.Delete("/{id}", handleAbandon(svc))
	})
	r.Get("/ws/chat", handleWebSocket(svc, logger))
	r.Post("/api/search", handleSearch(svc.Engine(), validator, logger))
}

func (req chatRequest) input() (Input, error) {
	in := Input{Text: req.Text}
	if req.Attachment != nil {
		b, err := req.Attachment.blob()
		if err != nil {
			return Input{}, err
		}
		in.Attachment = b
	}
	return in, nil
}

func responseFor(sess Session, reply Reply) chatResponse {
	return chatResponse{
		SessionID: sess.ID,
		State:     reply.State,
		Reply:     reply.Text,
		ReplyHTML: render.Markdown(reply.Text),
		Messages:  sess.Messages,
	}
}

func handleChat(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		in, err := req.input()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		sess, reply, err := svc.Turn(r.Context(), req.SessionID, in)
		if errors.Is(err, ErrEmptyInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, responseFor(sess, reply))
	}
}

func handleGetSession(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, chatResponse{
			SessionID: sess.ID,
			State:     sess.State,
			Messages:  sess.Messages,
		})
	}
}

func handleAbandon(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Abandon(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket carries chatRequest/chatResponse frames. Frames are
// handled one at a time, so a connection never has two turns in flight.
func handleWebSocket(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxRequestBytes)

		var current string
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warn("websocket read failed", "error", err)
				}
				return
			}

			var req chatRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				send(conn, logger, chatResponse{SessionID: current, Error: "invalid message format"})
				continue
			}
			if req.SessionID == "" {
				req.SessionID = current
			}
			in, err := req.input()
			if err != nil {
				send(conn, logger, chatResponse{SessionID: req.SessionID, Error: err.Error()})
				continue
			}

			sess, reply, err := svc.Turn(r.Context(), req.SessionID, in)
			if err != nil {
				send(conn, logger, chatResponse{SessionID: req.SessionID, Error: err.Error()})
				continue
			}
			current = sess.ID
			resp := responseFor(sess, reply)
			resp.Messages = nil
			send(conn, logger, resp)
		}
	}
}

func send(conn *websocket.Conn, logger *slog.Logger, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		logger.Warn("websocket write failed", "error", err)
	}
}

func handleSearch(engine *Engine, validator Validator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		var media *llm.Media
		if req.FileData != nil && req.Query != "" {
			b, err := req.FileData.blob()
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			res, err := validator.Validate(*b)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			media = &llm.Media{Kind: llm.MediaKind(res.Kind), MIMEType: res.MIMEType, Data: b.Data}
		}

		sols, err := engine.Search(r.Context(), req.Query, media)
		if err != nil {
			logger.Error("search failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal Error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"solutions": sols})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
