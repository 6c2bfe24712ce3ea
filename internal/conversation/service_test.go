package conversation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giho-tech/helpdesk/internal/gateway"
	"github.com/giho-tech/helpdesk/internal/knowledge"
)

func newTestService(h *harness) *Service {
	svc := NewService(h.engine, NewMemoryStore(time.Hour), nil)
	n := 0
	svc.newID = func() string {
		n++
		return "sess-" + string(rune('0'+n))
	}
	return svc
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := fixedNow
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, NewSession("a", now)))
	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Save(ctx, NewSession("b", now)))
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, store.Prune())
	assert.Equal(t, 0, store.Len())
}

func TestServiceTurnCreatesAndPersists(t *testing.T) {
	h := newHarness()
	svc := newTestService(h)
	ctx := context.Background()

	sess, reply, err := svc.Turn(ctx, "", Input{Text: "robot bốc khói"})
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess.ID)
	assert.Equal(t, StateAwaitingContactInfo, reply.State)

	stored, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingContactInfo, stored.State)
	assert.Len(t, stored.Messages, 3)

	sess, reply, err = svc.Turn(ctx, sess.ID, Input{Text: "A - 0901111111"})
	require.NoError(t, err)
	assert.Equal(t, StateNormal, reply.State)
	assert.Len(t, sess.Messages, 5)

	require.NoError(t, svc.Abandon(ctx, sess.ID))
	_, err = svc.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// flakyStore fails every Save after the first failAfter calls.
type flakyStore struct {
	*MemoryStore
	saves     int
	failAfter int
}

func (f *flakyStore) Save(ctx context.Context, s Session) error {
	f.saves++
	if f.saves > f.failAfter {
		return errors.New("redis: connection refused")
	}
	return f.MemoryStore.Save(ctx, s)
}

func TestServiceSaveFailureKeepsTicketReply(t *testing.T) {
	h := newHarness()
	store := &flakyStore{MemoryStore: NewMemoryStore(time.Hour), failAfter: 2}
	svc := NewService(h.engine, store, nil)
	ctx := context.Background()

	sess, _, err := svc.Turn(ctx, "", Input{Text: "robot bốc khói"})
	require.NoError(t, err)

	next, reply, err := svc.Turn(ctx, sess.ID, Input{Text: "A - 0901111111"})
	require.NoError(t, err)
	assert.Equal(t, StateNormal, next.State)
	assert.Contains(t, reply.Text, "📞 SĐT: 0901111111")
	assert.Len(t, h.tickets.intakes, 1)
}

func TestServiceUnknownSessionStartsOver(t *testing.T) {
	h := newHarness()
	h.kb.sols = []knowledge.Solution{{Title: "Robot kêu bíp liên tục"}}
	svc := newTestService(h)

	sess, reply, err := svc.Turn(context.Background(), "gone", Input{Text: "bíp"})
	require.NoError(t, err)
	assert.Equal(t, "gone", sess.ID)
	assert.Equal(t, StateNormal, reply.State)
	assert.Equal(t, greeting, sess.Messages[0].Text)
}

func TestServiceSerialisesTurns(t *testing.T) {
	h := newHarness()
	h.kb.sols = []knowledge.Solution{{Title: "x"}}
	svc := newTestService(h)
	ctx := context.Background()

	sess, err := svc.Start(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Turn(ctx, sess.ID, Input{Text: "x"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	final, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, final.Messages, 1+10*2, "no turn was lost")
	assert.Empty(t, svc.locks.locks)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("HELPDESK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("HELPDESK_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	store, err := NewRedisStore(ctx, addr, time.Minute)
	require.NoError(t, err)
	defer store.Close()

	sess := NewSession("redis-test", fixedNow)
	sess.Pending = &PendingAttachment{Kind: "image", MIMEType: "image/png", Data: pngBytes}
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "redis-test")
	require.NoError(t, err)
	assert.Equal(t, sess.State, got.State)
	assert.Equal(t, pngBytes, got.Pending.Data)

	require.NoError(t, store.Delete(ctx, "redis-test"))
	_, err = store.Get(ctx, "redis-test")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	store := NewRedisStoreWithClient(client, 0)
	defer store.Close()

	_, err := store.Get(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func newRouter(h *harness) (chi.Router, *Service) {
	svc := newTestService(h)
	r := chi.NewRouter()
	v := h.engine.deps.Validator
	RegisterRoutes(r, svc, v, nil)
	return r, svc
}

func postJSON(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw)))
	return rec
}

func TestChatEndpoint(t *testing.T) {
	h := newHarness()
	h.ai.answers = []gateway.Answer{generated("- **Lau** cảm biến")}
	r, _ := newRouter(h)

	rec := postJSON(t, r, "/api/chat", map[string]string{"text": "robot đi lung tung"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, StateAISuggested, resp.State)
	assert.Contains(t, resp.ReplyHTML, "<strong>Lau</strong>")
	assert.Len(t, resp.Messages, 3)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/sess-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/chat/sess-1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/sess-1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatEndpointAttachment(t *testing.T) {
	h := newHarness()
	h.ai.answers = []gateway.Answer{generated("- Pin yếu")}
	r, _ := newRouter(h)

	rec := postJSON(t, r, "/api/chat", map[string]any{
		"attachment": map[string]string{
			"base64":   "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
			"mimeType": "image/png",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StateAISuggested, resp.State)
	require.Len(t, h.ai.calls, 1)
	assert.Equal(t, pngBytes, h.ai.calls[0].media.Data)
}

func TestChatEndpointBadInput(t *testing.T) {
	r, _ := newRouter(newHarness())

	rec := postJSON(t, r, "/api/chat", map[string]string{"text": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, r, "/api/chat", map[string]any{"attachment": map[string]string{"base64": "!!!", "mimeType": "image/png"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEndpoint(t *testing.T) {
	h := newHarness()
	h.kb.sols = []knowledge.Solution{{ID: "s1", Title: "Robot không sạc được", VideoURL: "https://youtube.com/example1"}}
	r, _ := newRouter(h)

	rec := postJSON(t, r, "/api/search", map[string]string{"query": ""})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"solutions":[]}`, rec.Body.String())

	rec = postJSON(t, r, "/api/search", map[string]string{"query": "không sạc"})
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Solutions []SolutionView `json:"solutions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Solutions, 1)
	assert.Equal(t, "s1", body.Solutions[0].ID)
	require.NotNil(t, body.Solutions[0].VideoURL)
}

func TestSearchEndpointAI(t *testing.T) {
	h := newHarness()
	h.ai.answers = []gateway.Answer{{ID: gateway.AIGenerated, Text: "- Thay chổi", Title: "🤖 Phân tích từ AI (Dựa trên ảnh/video)"}}
	r, _ := newRouter(h)

	rec := postJSON(t, r, "/api/search", map[string]any{
		"query":    "robot kẹt",
		"fileData": map[string]string{"base64": base64.StdEncoding.EncodeToString(pngBytes), "mimeType": "image/png"},
		"fileType": "image",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Solutions []SolutionView `json:"solutions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Solutions, 1)
	assert.Equal(t, "ai-generated", body.Solutions[0].ID)
	assert.Equal(t, "ai, auto-generated", body.Solutions[0].Keywords)
	assert.Nil(t, body.Solutions[0].VideoURL)
	assert.Empty(t, h.kb.queries, "media skips the knowledge base")

	rec = postJSON(t, r, "/api/search", map[string]string{"query": "robot kẹt"})
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Solutions, 1)
	assert.Equal(t, "need-technician", body.Solutions[0].ID)
}

func TestWebSocketChat(t *testing.T) {
	h := newHarness()
	h.kb.sols = []knowledge.Solution{{Title: "Robot kêu bíp liên tục"}}
	r, _ := newRouter(h)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"text": "bíp"}))
	var first chatResponse
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "sess-1", first.SessionID)
	assert.Contains(t, first.Reply, "Robot kêu bíp liên tục")
	assert.Empty(t, first.Messages)

	require.NoError(t, conn.WriteJSON(map[string]string{"text": "bíp nữa"}))
	var second chatResponse
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "sess-1", second.SessionID, "connection keeps its session")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	var bad chatResponse
	require.NoError(t, conn.ReadJSON(&bad))
	assert.Equal(t, "invalid message format", bad.Error)
}
