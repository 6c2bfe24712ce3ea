package tickets

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the public intake endpoint.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/api/tickets/create", handleCreate(svc))
}

// RegisterAdminRoutes mounts ticket administration and the retention
// trigger. The caller is expected to wrap r in the admin middleware.
func RegisterAdminRoutes(r chi.Router, store *Store, retention *Retention) {
	r.Route("/api/admin/tickets", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.Get("/stats", handleStats(store))
		r.Get("/{id}", handleGet(store))
		r.Post("/{id}/status", handleUpdateStatus(store))
	})
	if retention != nil {
		r.Post("/api/cleanup", handleCleanup(retention))
	}
}

type createResponse struct {
	Success  bool    `json:"success"`
	ID       string  `json:"id"`
	Warranty *string `json:"warranty"`
	Message  string  `json:"message"`
}

func handleCreate(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in Intake
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		t, err := svc.OpenPublic(r.Context(), in)
		if errors.Is(err, ErrDescriptionRequired) {
			writeError(w, http.StatusBadRequest, "Description is required")
			return
		}
		if errors.Is(err, ErrForeignAttachment) {
			writeError(w, http.StatusBadRequest, "Invalid file URL")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to create ticket")
			return
		}

		resp := createResponse{Success: true, ID: t.ID, Message: "Ticket created successfully"}
		if t.WarrantyStatus != "" {
			ws := string(t.WarrantyStatus)
			resp.Warranty = &ws
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := ListFilter{Status: Status(q.Get("status"))}
		if filter.Status != "" && !filter.Status.Valid() {
			writeError(w, http.StatusBadRequest, ErrInvalidStatus.Error())
			return
		}
		filter.Limit, _ = strconv.Atoi(q.Get("limit"))
		filter.Offset, _ = strconv.Atoi(q.Get("offset"))

		list, err := store.List(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if list == nil {
			list = []Ticket{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleStats(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := store.CountByStatus(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := store.Get(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func handleUpdateStatus(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Status Status `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		id := chi.URLParam(r, "id")
		err := store.UpdateStatus(r.Context(), id, body.Status)
		switch {
		case errors.Is(err, ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "not found")
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		t, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func handleCleanup(retention *Retention) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := retention.Sweep(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, report)
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
