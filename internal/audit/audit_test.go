package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giho-tech/helpdesk/internal/auth"
	"github.com/giho-tech/helpdesk/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestLogAndGetByID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	entry := Entry{
		ID:        "test-1",
		Timestamp: time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC),
		Actor:     "admin@giho.vn",
		Method:    http.MethodPost,
		Route:     "/api/admin/tickets/{id}/status",
		TargetID:  "t-1",
		Status:    http.StatusOK,
	}
	require.NoError(t, store.Log(ctx, entry))

	got, err := store.GetByID(ctx, "test-1")
	require.NoError(t, err)
	assert.Equal(t, entry.Actor, got.Actor)
	assert.Equal(t, entry.Route, got.Route)
	assert.Equal(t, "t-1", got.TargetID)
	assert.True(t, got.Timestamp.Equal(entry.Timestamp))
	assert.True(t, got.Succeeded())

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueryFiltersAndOrder(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Log(ctx, Entry{Timestamp: base, Actor: "a@giho.vn", Method: "POST", Route: "/x", TargetID: "1", Status: 200}))
	require.NoError(t, store.Log(ctx, Entry{Timestamp: base.Add(time.Minute), Actor: "b@giho.vn", Method: "DELETE", Route: "/y", TargetID: "2", Status: 204}))
	require.NoError(t, store.Log(ctx, Entry{Timestamp: base.Add(2 * time.Minute), Actor: "a@giho.vn", Method: "PUT", Route: "/z", TargetID: "2", Status: 404}))

	all, err := store.Query(ctx, QueryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "/z", all[0].Route, "newest first")

	byActor, err := store.Query(ctx, QueryFilter{Actor: "a@giho.vn"})
	require.NoError(t, err)
	assert.Len(t, byActor, 2)

	byTarget, err := store.Query(ctx, QueryFilter{TargetID: "2"})
	require.NoError(t, err)
	assert.Len(t, byTarget, 2)

	since := base.Add(30 * time.Second)
	recent, err := store.Query(ctx, QueryFilter{Since: &since})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	page, err := store.Query(ctx, QueryFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "/y", page[0].Route)

	none, err := store.Query(ctx, QueryFilter{Actor: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMiddlewareRecordsMutations(t *testing.T) {
	store := setupStore(t)

	hash, err := auth.HashPassword("secret")
	require.NoError(t, err)
	a, err := auth.New([]auth.Account{{Email: "admin@giho.vn", PasswordHash: hash}}, "k", time.Hour)
	require.NoError(t, err)
	token, err := a.Issue("admin@giho.vn")
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(a.Middleware)
		r.Use(Middleware(store, nil))
		r.Get("/api/admin/things/{id}", func(w http.ResponseWriter, r *http.Request) {})
		r.Delete("/api/admin/things/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		req := httptest.NewRequest(method, "/api/admin/things/abc", nil)
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Less(t, w.Code, 300)
	}

	entries, err := store.Query(context.Background(), QueryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1, "reads are not audited")
	e := entries[0]
	assert.Equal(t, "admin@giho.vn", e.Actor)
	assert.Equal(t, http.MethodDelete, e.Method)
	assert.Equal(t, "/api/admin/things/{id}", e.Route)
	assert.Equal(t, "abc", e.TargetID)
	assert.Equal(t, http.StatusNoContent, e.Status)
}

func TestRoutes(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.Log(ctx, Entry{ID: "e1", Actor: "admin@giho.vn", Method: "POST", Route: "/api/cleanup", Status: 200}))

	r := chi.NewRouter()
	RegisterRoutes(r, store)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/audit?actor=admin@giho.vn", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "/api/cleanup", entries[0].Route)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/audit/e1", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/audit/nope", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
