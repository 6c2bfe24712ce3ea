package settings

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the settings API routes.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Get("/api/settings", handleGet(store))
	r.Post("/api/settings", handleSave(store))
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := store.Get(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch settings"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"settings": st})
	}
}

func handleSave(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Start from the stored row so omitted fields keep their values.
		current, err := store.Get(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to save settings"})
			return
		}
		if err := json.NewDecoder(r.Body).Decode(current); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		saved, err := store.Save(r.Context(), *current)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to save settings"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "settings": saved})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
