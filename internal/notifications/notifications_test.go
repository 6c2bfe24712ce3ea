package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giho-tech/helpdesk/internal/db"
	"github.com/giho-tech/helpdesk/internal/settings"
	"github.com/giho-tech/helpdesk/internal/warranty"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

type sentMessage struct {
	token, chatID, text string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) Send(ctx context.Context, token, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{token, chatID, text})
	return f.err
}

type countingRecorder struct {
	results []Result
}

func (c *countingRecorder) ObserveNotification(r Result) { c.results = append(c.results, r) }

func newTicket() NewTicket {
	return NewTicket{
		ID:           "0f8e4c2a-1111-2222-3333-abcdef123456",
		CustomerName: "Nguyễn Văn A",
		Phone:        "0901234567",
		Description:  "Robot <không> sạc",
		Warranty:     warranty.StatusActive,
		CreatedAt:    time.Date(2026, 3, 5, 2, 30, 0, 0, time.UTC),
	}
}

func TestStoreCreateAndList(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	created, err := store.Create(ctx, Notification{TicketID: "t-1", Message: "hi", Delivered: true})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, ChannelTelegram, created.Channel)

	_, err = store.Create(ctx, Notification{TicketID: "t-2", Message: "hi", Error: "timeout"})
	require.NoError(t, err)

	got, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Delivered)

	all, err := store.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	failed := false
	undelivered, err := store.List(ctx, ListFilter{Delivered: &failed})
	require.NoError(t, err)
	require.Len(t, undelivered, 1)
	assert.Equal(t, "timeout", undelivered[0].Error)

	byTicket, err := store.List(ctx, ListFilter{TicketID: "t-1"})
	require.NoError(t, err)
	assert.Len(t, byTicket, 1)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFormatNewTicket(t *testing.T) {
	msg := FormatNewTicket(newTicket(), "https://support.giho.vn/")

	assert.Contains(t, msg, "<b>YÊU CẦU HỖ TRỢ MỚI</b>")
	assert.Contains(t, msg, "Nguyễn Văn A")
	assert.Contains(t, msg, "✅ Còn bảo hành")
	assert.Contains(t, msg, "Robot &lt;không&gt; sạc", "user text is escaped for HTML mode")
	assert.Contains(t, msg, "#ef123456")
	assert.Contains(t, msg, "09:30:00 5/3/2026", "rendered in Vietnam time")
	assert.Contains(t, msg, `href="https://support.giho.vn/admin/tickets/0f8e4c2a-1111-2222-3333-abcdef123456"`)

	noPhone := newTicket()
	noPhone.Phone = ""
	noPhone.Warranty = ""
	msg = FormatNewTicket(noPhone, "https://support.giho.vn")
	assert.Contains(t, msg, "Không có")
	assert.Contains(t, msg, "Chưa xác định")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "12345678", ShortID("abc-12345678"))
	assert.Equal(t, "short", ShortID("short"))
}

func TestDispatcherSkipsWhenNotConfigured(t *testing.T) {
	database := setupTestDB(t)
	sender := &fakeSender{}
	rec := &countingRecorder{}
	d := NewDispatcher(NewStore(database), settings.NewStore(database), sender, "https://support.giho.vn", nil)
	d.SetRecorder(rec)

	result, err := d.NotifyNewTicket(context.Background(), newTicket())
	require.NoError(t, err)
	assert.Equal(t, ResultSkipped, result)
	assert.Empty(t, sender.sent)
	assert.Equal(t, []Result{ResultSkipped}, rec.results)
}

func TestDispatcherSkipsWhenDisabled(t *testing.T) {
	database := setupTestDB(t)
	st := settings.NewStore(database)
	_, err := st.Save(context.Background(), settings.Settings{TelegramBotToken: "tok", TelegramChatID: "42"})
	require.NoError(t, err)

	sender := &fakeSender{}
	d := NewDispatcher(NewStore(database), st, sender, "", nil)
	result, err := d.NotifyNewTicket(context.Background(), newTicket())
	require.NoError(t, err)
	assert.Equal(t, ResultSkipped, result)
	assert.Empty(t, sender.sent)
}

func TestDispatcherSendsAndRecords(t *testing.T) {
	database := setupTestDB(t)
	st := settings.NewStore(database)
	_, err := st.Save(context.Background(), settings.Settings{TelegramBotToken: "tok", TelegramChatID: "42", NotifyOnNewTicket: true})
	require.NoError(t, err)

	store := NewStore(database)
	sender := &fakeSender{}
	d := NewDispatcher(store, st, sender, "https://support.giho.vn", nil)

	tk := newTicket()
	result, err := d.NotifyNewTicket(context.Background(), tk)
	require.NoError(t, err)
	assert.Equal(t, ResultSent, result)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "tok", sender.sent[0].token)
	assert.Equal(t, "42", sender.sent[0].chatID)

	records, err := store.List(context.Background(), ListFilter{TicketID: tk.ID})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Delivered)
}

func TestDispatcherRecordsFailure(t *testing.T) {
	database := setupTestDB(t)
	st := settings.NewStore(database)
	_, err := st.Save(context.Background(), settings.Settings{TelegramBotToken: "tok", TelegramChatID: "42", NotifyOnNewTicket: true})
	require.NoError(t, err)

	store := NewStore(database)
	d := NewDispatcher(store, st, &fakeSender{err: errors.New("chat not found")}, "", nil)

	result, err := d.NotifyNewTicket(context.Background(), newTicket())
	assert.Error(t, err)
	assert.Equal(t, ResultFailed, result)

	records, err := store.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Delivered)
	assert.Equal(t, "chat not found", records[0].Error)
}

func TestTelegramSender(t *testing.T) {
	var got sendMessageRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	sender := NewTelegramSender()
	sender.baseURL = srv.URL

	require.NoError(t, sender.Send(context.Background(), "123:abc", "-100", "<b>hi</b>"))
	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, "-100", got.ChatID)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.Equal(t, "<b>hi</b>", got.Text)
}

func TestTelegramSenderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"ok":false,"description":"Bad Request: chat not found"}`)
	}))
	defer srv.Close()

	sender := NewTelegramSender()
	sender.baseURL = srv.URL

	err := sender.Send(context.Background(), "tok", "1", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestRoutes(t *testing.T) {
	database := setupTestDB(t)
	store := NewStore(database)
	_, err := store.Create(context.Background(), Notification{TicketID: "t-1", Message: "hello"})
	require.NoError(t, err)

	d := NewDispatcher(store, settings.NewStore(database), &fakeSender{}, "", nil)
	r := chi.NewRouter()
	RegisterRoutes(r, store, d)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/notifications/?ticket_id=t-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list []Notification
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Len(t, list, 1)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/notifications/test", strings.NewReader("")))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"skipped"`)
}
