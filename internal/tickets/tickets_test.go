package tickets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giho-tech/helpdesk/internal/attachment"
	"github.com/giho-tech/helpdesk/internal/db"
	"github.com/giho-tech/helpdesk/internal/notifications"
	"github.com/giho-tech/helpdesk/internal/warranty"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

type fakeChecker struct {
	mu     sync.Mutex
	result warranty.Result
	phones []string
}

func (f *fakeChecker) Check(ctx context.Context, phone string) warranty.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phones = append(f.phones, phone)
	return f.result
}

type fakeNotifier struct {
	mu  sync.Mutex
	got []notifications.NewTicket
	err error
}

func (f *fakeNotifier) NotifyNewTicket(ctx context.Context, t notifications.NewTicket) (notifications.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, t)
	if f.err != nil {
		return notifications.ResultFailed, f.err
	}
	return notifications.ResultSent, nil
}

type fakeFiles struct {
	deleted []string
	err     error
}

func (f *fakeFiles) Owns(url string) bool {
	return strings.HasPrefix(url, "/files/tickets/")
}

func (f *fakeFiles) Delete(ctx context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return f.err
}

type ticketCounter struct {
	labels []string
}

func (c *ticketCounter) ObserveTicket(w string) { c.labels = append(c.labels, w) }

func backdate(t *testing.T, store *Store, id string, age time.Duration) {
	t.Helper()
	_, err := store.db.ExecContext(context.Background(),
		`UPDATE tickets SET created_at = ? WHERE id = ?`, time.Now().UTC().Add(-age), id)
	require.NoError(t, err)
}

func TestStoreCreateAndGet(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	created, err := store.Create(ctx, Ticket{
		CustomerName:   "A",
		Phone:          "0901111111",
		Description:    "robot không sạc",
		AttachmentURL:  "/files/tickets/temp-1/1.jpg",
		AttachmentKind: attachment.KindImage,
		WarrantyStatus: warranty.StatusActive,
		WarrantyDetails: []warranty.Product{
			{Name: "GIHO R1", WarrantyMonths: 12, ExpireDate: "2027-01-01", DaysLeft: 90},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, StatusOpen, created.Status)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.CustomerName)
	assert.Equal(t, "0901111111", got.Phone)
	assert.Equal(t, attachment.KindImage, got.AttachmentKind)
	assert.Equal(t, warranty.StatusActive, got.WarrantyStatus)
	require.Len(t, got.WarrantyDetails, 1)
	assert.Equal(t, "GIHO R1", got.WarrantyDetails[0].Name)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreListAndStatus(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	a, err := store.Create(ctx, Ticket{CustomerName: "A", Description: "one"})
	require.NoError(t, err)
	_, err = store.Create(ctx, Ticket{CustomerName: "B", Description: "two"})
	require.NoError(t, err)

	require.NoError(t, store.UpdateStatus(ctx, a.ID, StatusResolved))
	assert.ErrorIs(t, store.UpdateStatus(ctx, a.ID, "DONE"), ErrInvalidStatus)
	assert.ErrorIs(t, store.UpdateStatus(ctx, "missing", StatusResolved), ErrNotFound)

	all, err := store.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	resolved, err := store.List(ctx, ListFilter{Status: StatusResolved})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, a.ID, resolved[0].ID)

	limited, err := store.List(ctx, ListFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[StatusOpen])
	assert.Equal(t, 1, counts[StatusResolved])
	assert.Equal(t, 0, counts[StatusEscalated])
}

func TestServiceOpenWithPhone(t *testing.T) {
	store := NewStore(setupTestDB(t))
	checker := &fakeChecker{result: warranty.Result{
		Status:   warranty.StatusExpired,
		Products: []warranty.Product{{Name: "GIHO R2", WarrantyMonths: 12, ExpireDate: "2025-01-01"}},
	}}
	notifier := &fakeNotifier{}
	counter := &ticketCounter{}
	svc := NewService(store, checker, notifier, nil)
	svc.SetRecorder(counter)

	ticket, err := svc.Open(context.Background(), Intake{
		CustomerName: "  Nguyễn Văn A ",
		Phone:        "0901111111",
		Description:  "Robot không sạc",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, ticket.Status)
	assert.Equal(t, "Nguyễn Văn A", ticket.CustomerName)
	assert.Equal(t, warranty.StatusExpired, ticket.WarrantyStatus)
	assert.Equal(t, []string{"0901111111"}, checker.phones)
	assert.Equal(t, []string{"expired"}, counter.labels)

	require.Len(t, notifier.got, 1)
	assert.Equal(t, ticket.ID, notifier.got[0].ID)
	assert.Equal(t, warranty.StatusExpired, notifier.got[0].Warranty)

	stored, err := store.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, stored.WarrantyDetails, 1)
}

func TestServiceOpenWithoutPhoneSkipsWarranty(t *testing.T) {
	checker := &fakeChecker{result: warranty.Result{Status: warranty.StatusActive}}
	svc := NewService(NewStore(setupTestDB(t)), checker, nil, nil)

	ticket, err := svc.Open(context.Background(), Intake{Description: "lỗi"})
	require.NoError(t, err)
	assert.Equal(t, DefaultCustomerName, ticket.CustomerName)
	assert.Empty(t, ticket.WarrantyStatus)
	assert.Empty(t, checker.phones)
}

func TestServiceOpenRequiresDescription(t *testing.T) {
	svc := NewService(NewStore(setupTestDB(t)), nil, nil, nil)
	_, err := svc.Open(context.Background(), Intake{CustomerName: "A", Description: "   "})
	assert.ErrorIs(t, err, ErrDescriptionRequired)
}

func TestServiceOpenSurvivesNotificationFailure(t *testing.T) {
	store := NewStore(setupTestDB(t))
	notifier := &fakeNotifier{err: errors.New("telegram down")}
	svc := NewService(store, nil, notifier, nil)

	ticket, err := svc.Open(context.Background(), Intake{CustomerName: "A", Description: "x"})
	require.NoError(t, err)

	_, err = store.Get(context.Background(), ticket.ID)
	assert.NoError(t, err)
	assert.Len(t, notifier.got, 1)
}

func TestServiceOpenFailsOnPersistence(t *testing.T) {
	database := setupTestDB(t)
	svc := NewService(NewStore(database), nil, &fakeNotifier{}, nil)
	require.NoError(t, database.Close())

	_, err := svc.Open(context.Background(), Intake{CustomerName: "A", Description: "x"})
	assert.Error(t, err)
}

func TestServiceDropsKindWithoutURL(t *testing.T) {
	svc := NewService(NewStore(setupTestDB(t)), nil, nil, nil)
	ticket, err := svc.Open(context.Background(), Intake{Description: "x", AttachmentKind: attachment.KindVideo})
	require.NoError(t, err)
	assert.Empty(t, ticket.AttachmentKind)
}

func TestRetentionSweep(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	old, err := store.Create(ctx, Ticket{CustomerName: "A", Description: "old", AttachmentURL: "/files/tickets/t1/a.jpg", AttachmentKind: attachment.KindImage})
	require.NoError(t, err)
	oldNoFile, err := store.Create(ctx, Ticket{CustomerName: "B", Description: "see http://example.com"})
	require.NoError(t, err)
	fresh, err := store.Create(ctx, Ticket{CustomerName: "C", Description: "fresh"})
	require.NoError(t, err)

	backdate(t, store, old.ID, 100*time.Hour)
	backdate(t, store, oldNoFile.ID, 100*time.Hour)

	files := &fakeFiles{}
	report, err := NewRetention(store, files, 72*time.Hour, nil).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Deleted)
	assert.Equal(t, 1, report.FilesRemoved)
	assert.Equal(t, []string{"/files/tickets/t1/a.jpg"}, files.deleted)

	_, err = store.Get(ctx, old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestRetentionFileErrorStillDeletesTicket(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	old, err := store.Create(ctx, Ticket{CustomerName: "A", Description: "old", AttachmentURL: "/files/tickets/t1/a.jpg"})
	require.NoError(t, err)
	backdate(t, store, old.ID, 100*time.Hour)

	report, err := NewRetention(store, &fakeFiles{err: errors.New("denied")}, 0, nil).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, 1, report.FileErrors)
}

func TestRetentionLeavesForeignFilesAlone(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	for _, url := range []string{
		"https://bucket.s3.amazonaws.com/backups/db.sqlite",
		"/files/config.yml",
	} {
		old, err := store.Create(ctx, Ticket{CustomerName: "A", Description: "old", AttachmentURL: url})
		require.NoError(t, err)
		backdate(t, store, old.ID, 100*time.Hour)
	}

	files := &fakeFiles{}
	report, err := NewRetention(store, files, 72*time.Hour, nil).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Deleted)
	assert.Equal(t, 2, report.FilesSkipped)
	assert.Zero(t, report.FilesRemoved)
	assert.Empty(t, files.deleted)
}

func TestRetentionRunStopsOnCancel(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- NewRetention(store, nil, time.Hour, nil).Run(ctx, time.Millisecond) }()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("retention loop did not stop")
	}
}

func newTestRouter(t *testing.T) (chi.Router, *Store, *fakeChecker) {
	t.Helper()
	store := NewStore(setupTestDB(t))
	checker := &fakeChecker{result: warranty.Result{Status: warranty.StatusUnknown}}
	svc := NewService(store, checker, &fakeNotifier{}, nil)
	svc.SetFiles(&fakeFiles{})

	r := chi.NewRouter()
	RegisterRoutes(r, svc)
	RegisterAdminRoutes(r, store, NewRetention(store, nil, 0, nil))
	return r, store, checker
}

func TestCreateEndpoint(t *testing.T) {
	r, _, _ := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{"customerName": "A", "phone": "0901111111", "description": "robot kẹt"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tickets/create", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp createResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.ID)
	require.NotNil(t, resp.Warranty)
	assert.Equal(t, "UNKNOWN", *resp.Warranty)
	assert.Equal(t, "Ticket created successfully", resp.Message)
}

func TestCreateEndpointMissingDescription(t *testing.T) {
	r, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tickets/create", bytes.NewReader([]byte(`{"customerName":"A"}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Description is required")
}

func TestCreateEndpointAttachmentURL(t *testing.T) {
	r, store, _ := newTestRouter(t)

	tests := []struct {
		name    string
		fileURL string
		status  int
	}{
		{"issued by storage", "/files/tickets/temp-1/1.jpg", http.StatusOK},
		{"other bucket object", "https://bucket.s3.amazonaws.com/backups/db.sqlite", http.StatusBadRequest},
		{"outside ticket key space", "/files/config.yml", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(map[string]string{"description": "robot kẹt", "fileUrl": tt.fileURL, "fileType": "image"})
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tickets/create", bytes.NewReader(body)))
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	list, err := store.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "/files/tickets/temp-1/1.jpg", list[0].AttachmentURL)
}

func TestOpenPublicWithoutStorageRefusesURLs(t *testing.T) {
	svc := NewService(NewStore(setupTestDB(t)), nil, nil, nil)
	_, err := svc.OpenPublic(context.Background(), Intake{Description: "x", AttachmentURL: "/files/tickets/t1/1.jpg"})
	assert.ErrorIs(t, err, ErrForeignAttachment)

	ticket, err := svc.OpenPublic(context.Background(), Intake{Description: "x"})
	require.NoError(t, err)
	assert.Empty(t, ticket.AttachmentURL)
}

func TestAdminEndpoints(t *testing.T) {
	r, store, _ := newTestRouter(t)
	created, err := store.Create(context.Background(), Ticket{CustomerName: "A", Description: "x"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/tickets/?status=OPEN", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/tickets/?status=BOGUS", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/tickets/"+created.ID+"/status",
		bytes.NewReader([]byte(`{"status":"ESCALATED"}`))))
	require.Equal(t, http.StatusOK, rec.Code)
	var updated Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, StatusEscalated, updated.Status)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/tickets/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cleanup", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var report SweepReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 0, report.Deleted)
}
