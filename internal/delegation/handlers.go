package delegation

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/apierror"
)

// delegateRequest is the body of POST /auth/delegate.
type delegateRequest struct {
	UserID        string   `json:"userId"`
	TargetService string   `json:"targetService"`
	Permissions   []string `json:"permissions"`
	TTLSeconds    int64    `json:"ttlSeconds"`
}

type delegateResponse struct {
	DelegationToken string `json:"delegation_token"`
	ExpiresIn       int64  `json:"expires_in"`
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateTokenPayload struct {
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions"`
	Audience    []string `json:"audience"`
	ExpiresAt   int64    `json:"expires_at"`
}

type validateResponse struct {
	Valid bool                  `json:"valid"`
	Token *validateTokenPayload `json:"token,omitempty"`
	Error string                `json:"error,omitempty"`
}

// Handlers implements the issuer-hosted Delegation HTTP surface.
type Handlers struct {
	issuer *Issuer
	logger *slog.Logger
}

// NewHandlers builds Handlers bound to issuer. A nil logger defaults to
// slog.Default().
func NewHandlers(issuer *Issuer, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{issuer: issuer, logger: logger}
}

// Delegate handles POST /auth/delegate. The caller authenticates with a
// bearer user session token; the optional userId in the body must match
// the authenticated user or the request is rejected with PermissionDenied.
func (h *Handlers) Delegate(w http.ResponseWriter, r *http.Request) {
	authenticatedUserID, err := h.authenticateUserSession(r)
	if err != nil {
		apierror.Respond(w, h.logger, err)
		return
	}

	var req delegateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Respond(w, h.logger, apierror.New(apierror.InvalidRequest, "malformed request body", err))
		return
	}
	if req.TargetService == "" {
		apierror.Respond(w, h.logger, apierror.New(apierror.InvalidRequest, "targetService is required", nil))
		return
	}

	userID := req.UserID
	switch {
	case userID == "":
		userID = authenticatedUserID
	case userID != authenticatedUserID:
		apierror.Respond(w, h.logger, apierror.New(apierror.PermissionDenied, "requested user id does not match authenticated user", ErrUserMismatch))
		return
	}

	token, expiresIn, err := h.issuer.Mint(userID, req.TargetService, req.Permissions, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		apierror.Respond(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(delegateResponse{
		DelegationToken: token,
		ExpiresIn:       int64(expiresIn.Seconds()),
	})
}

// Validate handles POST /auth/validate. The token travels in the JSON
// body, never a query string, so tokens never leak into access logs or
// referer headers.
func (h *Handlers) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		apierror.Respond(w, h.logger, apierror.New(apierror.InvalidRequest, "token is required", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")

	claims, err := h.issuer.Verify(req.Token)
	if err != nil {
		_ = json.NewEncoder(w).Encode(validateResponse{Valid: false, Error: "token is invalid or expired"})
		return
	}

	_ = json.NewEncoder(w).Encode(validateResponse{
		Valid: true,
		Token: &validateTokenPayload{
			UserID:      claims.UserID,
			Permissions: claims.Permissions,
			Audience:    claims.Audience,
			ExpiresAt:   claims.ExpiresAt.Unix(),
		},
	})
}

func (h *Handlers) authenticateUserSession(r *http.Request) (string, error) {
	const bearerPrefix = "Bearer "
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", apierror.New(apierror.TokenInvalid, "missing bearer user session token", nil)
	}
	userID, err := h.issuer.ValidateUserSessionToken(strings.TrimPrefix(authHeader, bearerPrefix))
	if err != nil {
		return "", apierror.New(apierror.TokenInvalid, "invalid user session token", err)
	}
	return userID, nil
}
