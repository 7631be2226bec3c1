package userauth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/apierror"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/delegation"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerResponse struct {
	UserID string `json:"user_id"`
}

type loginResponse struct {
	SessionToken string `json:"session_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Handlers serves /auth/register and /auth/login for the user-auth shell.
type Handlers struct {
	store      *Store
	signingKey []byte
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewHandlers builds Handlers. signingKey must be the same
// delegation_signing_key the Delegation Issuer uses, since the issuer
// verifies session tokens with it.
func NewHandlers(store *Store, signingKey []byte, sessionTTL time.Duration, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{store: store, signingKey: signingKey, sessionTTL: sessionTTL, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Respond(w, h.logger, apierror.New(apierror.InvalidRequest, "malformed request body", err))
		return
	}

	userID, err := h.store.Register(req.Username, req.Password)
	if err != nil {
		apierror.Respond(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(registerResponse{UserID: userID})
}

// Login handles POST /auth/login, minting a User Session Token on success.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Respond(w, h.logger, apierror.New(apierror.InvalidRequest, "malformed request body", err))
		return
	}

	userID, err := h.store.Authenticate(req.Username, req.Password)
	if err != nil {
		apierror.Respond(w, h.logger, err)
		return
	}

	token, err := delegation.SignUserSessionToken(h.signingKey, userID, h.sessionTTL)
	if err != nil {
		apierror.Respond(w, h.logger, apierror.New(apierror.SigningError, "failed to sign session token", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(loginResponse{SessionToken: token, ExpiresIn: int64(h.sessionTTL.Seconds())})
}
