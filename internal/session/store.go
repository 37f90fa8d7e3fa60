// Package session holds the process-wide authentication state.
package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/soyeahso/kirpich/internal/domain"
	"github.com/soyeahso/kirpich/internal/logging"
)

// Store is the single Anonymous → Authenticating → Authenticated state
// machine of a running client. All methods are safe for concurrent use and
// none of them block on I/O.
type Store struct {
	mu      sync.Mutex
	state   domain.SessionState
	token   string
	userID  string
	expires time.Time // zero when the token carries no exp claim

	// generation moves on every reset so callers can tell whether the
	// session they read a token from is still the current one.
	generation uint64
	onExpired  func()

	now func() time.Time
	log *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger for state transitions.
func WithLogger(log *logging.Logger) Option {
	return func(s *Store) { s.log = log.Sub("session") }
}

// New returns an Anonymous store.
func New(opts ...Option) *Store {
	s := &Store{
		now: time.Now,
		log: logging.New(nil, "silent"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Store) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BeginLogin moves Anonymous to Authenticating. It fails with
// AlreadyInProgress while another login is pending and with InvalidState
// once a session is established.
func (s *Store) BeginLogin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case domain.SessionAuthenticating:
		return domain.ErrAlreadyInProgress
	case domain.SessionAuthenticated:
		return domain.InvalidState("Already signed in")
	}
	s.transition(domain.SessionAuthenticating)
	return nil
}

// CompleteLogin stores token and moves Authenticating to Authenticated.
func (s *Store) CompleteLogin(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.SessionAuthenticating {
		return domain.InvalidState("No login in progress")
	}
	claims := inspect(token)
	s.token = token
	s.userID = claims.UserID
	if s.userID == "" {
		s.userID = claims.Subject
	}
	s.expires = time.Time{}
	if claims.ExpiresAt != nil {
		s.expires = claims.ExpiresAt.Time
	}
	s.transition(domain.SessionAuthenticated)
	return nil
}

// CompleteLoginFailed returns an Authenticating session to Anonymous and
// hands reason back so the caller can surface it unchanged.
func (s *Store) CompleteLoginFailed(reason error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.SessionAuthenticating {
		s.clear()
	}
	return reason
}

// Ticket is a token together with the session generation it was read in.
type Ticket struct {
	Token      string
	Generation uint64
}

// CurrentToken returns the session token. It fails with Unauthenticated
// unless the session is Authenticated. A token whose exp claim has passed
// resets the session.
func (s *Store) CurrentToken() (string, error) {
	t, err := s.Ticket()
	return t.Token, err
}

// Ticket is CurrentToken plus the generation, read atomically. The
// generation is filled in even when err is non-nil.
func (s *Store) Ticket() (Ticket, error) {
	s.mu.Lock()
	t := Ticket{Generation: s.generation}
	var (
		err       error
		onExpired func()
	)
	switch {
	case s.state != domain.SessionAuthenticated:
		err = domain.ErrUnauthenticated
	case !s.expires.IsZero() && !s.now().Before(s.expires):
		s.log.Info().Time("expiredAt", s.expires).Msg("session token expired")
		s.clear()
		t.Generation = s.generation
		err = domain.Unauthenticated(jwt.ErrTokenExpired)
		onExpired = s.onExpired
	default:
		t.Token = s.token
	}
	s.mu.Unlock()

	if onExpired != nil {
		onExpired()
	}
	return t, err
}

// Generation returns the current session generation.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// OnExpired registers fn to run, outside the lock, whenever a token read
// finds the token expired and resets the session.
func (s *Store) OnExpired(fn func()) {
	s.mu.Lock()
	s.onExpired = fn
	s.mu.Unlock()
}

// Reset discards any session and starts a new generation. It reports
// whether there was a session to discard.
func (s *Store) Reset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	had := s.state != domain.SessionAnonymous
	s.clear()
	return had
}

// UserID returns the user id carried by the token, or "" when the token
// is opaque or there is no session.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// ExpiresAt returns the token expiry, or the zero time when unknown.
func (s *Store) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expires
}

func (s *Store) clear() {
	s.token = ""
	s.userID = ""
	s.expires = time.Time{}
	s.generation++
	s.transition(domain.SessionAnonymous)
}

// transition must be called with mu held.
func (s *Store) transition(to domain.SessionState) {
	if s.state != to {
		s.log.Debug().Str("from", s.state.String()).Str("to", to.String()).Msg("session state")
	}
	s.state = to
}

type tokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// inspect reads the claims without verifying the signature; the backend
// remains the authority on validity. Opaque tokens yield empty claims.
func inspect(token string) tokenClaims {
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return tokenClaims{}
	}
	return claims
}
