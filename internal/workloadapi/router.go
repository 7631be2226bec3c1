package workloadapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/attestation"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/ca"
)

// requestTimeout bounds how long any single Workload API request may run.
const requestTimeout = 15 * time.Second

// NewRouter builds the chi.Router serving the Workload API HTTP surface,
// wiring registry and signingCA behind panic recovery and a timeout. The
// router itself does not log requests; logger receives the handlers'
// error responses.
func NewRouter(registry *attestation.Registry, signingCA *ca.CA, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := NewHandlers(registry, signingCA, logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Post("/workload/v1/attest", h.Attest)
	r.Get("/workload/v1/certificates", h.Certificates)
	r.Get("/workload/v1/health", h.Health)

	return r
}
