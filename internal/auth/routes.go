package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts login, logout and session check. secureCookie
// should be true behind HTTPS.
func RegisterRoutes(r chi.Router, a *Authenticator, secureCookie bool, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	r.Post("/api/admin/login", handleLogin(a, secureCookie, logger))
	r.Post("/api/admin/logout", handleLogout(secureCookie))
	r.Get("/api/admin/check", handleCheck(a))
}

func sessionCookie(value string, maxAge time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(maxAge.Seconds()),
	}
}

func handleLogin(a *Authenticator, secure bool, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		token, err := a.Login(body.Email, body.Password)
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Info("admin login rejected", "email", body.Email)
			writeError(w, http.StatusUnauthorized, "Sai email hoặc mật khẩu")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Lỗi server")
			return
		}

		http.SetCookie(w, sessionCookie(token, a.TTL(), secure))
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "email": normalizeEmail(body.Email)})
	}
}

func handleLogout(secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := sessionCookie("", 0, secure)
		c.MaxAge = -1
		http.SetCookie(w, c)
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func handleCheck(a *Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err == nil {
			if email, err := a.Verify(cookie.Value); err == nil {
				writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "email": email})
				return
			}
		}
		writeJSON(w, http.StatusUnauthorized, map[string]bool{"authenticated": false})
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
