package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/apierror"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/authfilter"
)

// job is a toy print job, giving the permission-checked handlers
// something real to operate on in place of a bare health check.
type job struct {
	ID        string    `json:"id"`
	Document  string    `json:"document"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// jobStore is an in-memory registry of submitted print jobs, keyed by id.
type jobStore struct {
	mu   sync.RWMutex
	byID map[string]job
}

func newJobStore() *jobStore {
	return &jobStore{byID: make(map[string]job)}
}

type createJobRequest struct {
	Document string `json:"document"`
}

// createJob handles POST /jobs, requiring the "submit:print" permission.
func (s *jobStore) createJob(w http.ResponseWriter, r *http.Request) {
	ac, _ := authfilter.FromContext(r.Context())

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Document == "" {
		apierror.Respond(w, slog.Default(), apierror.New(apierror.InvalidRequest, "document is required", err))
		return
	}

	j := job{
		ID:        uuid.NewString(),
		Document:  req.Document,
		CreatedBy: ac.UserID,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.byID[j.ID] = j
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(j)
}

// getJob handles GET /jobs/{id}, requiring the "read:print" permission.
func (s *jobStore) getJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.RLock()
	j, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		apierror.Respond(w, slog.Default(), apierror.New(apierror.NotFound, "print job not found", nil))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(j)
}
