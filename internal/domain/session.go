package domain

// Credentials are the sign-in inputs. They are never persisted.
type Credentials struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
}

// AuthToken is the result of a successful login.
type AuthToken struct {
	Token string `json:"token"`
}

// SessionState is the authentication state of the running client.
type SessionState int

const (
	SessionAnonymous SessionState = iota
	SessionAuthenticating
	SessionAuthenticated
)

// String returns the wire name of the state.
func (s SessionState) String() string {
	switch s {
	case SessionAnonymous:
		return "anonymous"
	case SessionAuthenticating:
		return "authenticating"
	case SessionAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}
