package audit

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/giho-tech/helpdesk/internal/auth"
)

// Middleware logs every non-GET request that passes through it. It must
// run after auth.Middleware so the admin email is known.
func Middleware(store *Store, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			entry := Entry{
				Timestamp: time.Now().UTC(),
				Method:    r.Method,
				Route:     r.URL.Path,
				Status:    ww.Status(),
			}
			if entry.Status == 0 {
				entry.Status = http.StatusOK
			}
			if email, ok := auth.EmailFrom(r.Context()); ok {
				entry.Actor = email
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					entry.Route = p
				}
				entry.TargetID = rctx.URLParam("id")
			}

			// The request context may already be cancelled by the client.
			if err := store.Log(context.WithoutCancel(r.Context()), entry); err != nil {
				logger.Warn("audit log failed", "route", entry.Route, "error", err)
			}
		})
	}
}
