package userauth

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/apierror"
)

type user struct {
	id           string
	username     string
	passwordHash []byte
}

// Store is an in-memory user registry keyed by username. It exists only to
// give the Delegation Issuer's /auth/delegate endpoint something real to
// authenticate a user session token against; durable user storage is out
// of scope for the trust core.
type Store struct {
	mu     sync.RWMutex
	byName map[string]*user
}

// NewStore builds an empty Store.
func NewStore() *Store {
	return &Store{byName: make(map[string]*user)}
}

// Register creates a new user, hashing password with bcrypt, and returns
// the user's newly assigned id, an end-user UUID.
func (s *Store) Register(username, password string) (string, error) {
	if username == "" || password == "" {
		return "", apierror.New(apierror.InvalidRequest, "username and password are required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byName[username]; exists {
		return "", apierror.New(apierror.InvalidRequest, "username already registered", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apierror.New(apierror.Internal, "failed to hash password", err)
	}

	u := &user{id: uuid.NewString(), username: username, passwordHash: hash}
	s.byName[username] = u
	return u.id, nil
}

// Authenticate verifies username/password and returns the matching user id.
func (s *Store) Authenticate(username, password string) (string, error) {
	s.mu.RLock()
	u, ok := s.byName[username]
	s.mu.RUnlock()
	if !ok {
		return "", apierror.New(apierror.TokenInvalid, "invalid username or password", nil)
	}
	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)); err != nil {
		return "", apierror.New(apierror.TokenInvalid, "invalid username or password", nil)
	}
	return u.id, nil
}
