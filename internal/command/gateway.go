// Package command is the façade the presentation surface calls: one method
// per user intent, each returning a result or a typed *domain.Error.
package command

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/soyeahso/kirpich/internal/chatcache"
	"github.com/soyeahso/kirpich/internal/domain"
	"github.com/soyeahso/kirpich/internal/hooks"
	"github.com/soyeahso/kirpich/internal/logging"
	"github.com/soyeahso/kirpich/internal/session"
)

// SnapshotStore persists the chat list between runs.
type SnapshotStore interface {
	Save(ctx context.Context, chats []domain.ChatSummary) error
	Load(ctx context.Context) ([]domain.ChatSummary, time.Time, bool, error)
	Clear(ctx context.Context) error
}

// SessionInfo describes the session for the presentation surface.
type SessionInfo struct {
	State         string    `json:"state"`
	Authenticated bool      `json:"authenticated"`
	ExpiresAt     time.Time `json:"expiresAt,omitzero"`
}

// Gateway owns the session and chat cache of the running client. Its
// methods may be called concurrently; no lock is held while the remote is
// being called.
type Gateway struct {
	remote    domain.Remote
	presenter domain.Presenter
	session   *session.Store
	chats     *chatcache.Cache
	snapshots SnapshotStore
	hooks     *hooks.Manager
	observer  func([]domain.ChatSummary)
	log       *logging.Logger

	// mu orders cache writes, snapshot saves and logout, so a command that
	// started before a logout cannot write its result back afterwards.
	mu sync.Mutex
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithSession injects the session store.
func WithSession(s *session.Store) Option {
	return func(g *Gateway) { g.session = s }
}

// WithCache injects the chat cache.
func WithCache(c *chatcache.Cache) Option {
	return func(g *Gateway) { g.chats = c }
}

// WithSnapshots persists every chat list change to s.
func WithSnapshots(s SnapshotStore) Option {
	return func(g *Gateway) { g.snapshots = s }
}

// WithHooks emits lifecycle events on m.
func WithHooks(m *hooks.Manager) Option {
	return func(g *Gateway) { g.hooks = m }
}

// WithChatsObserver calls fn with the new list after every cache change.
func WithChatsObserver(fn func([]domain.ChatSummary)) Option {
	return func(g *Gateway) { g.observer = fn }
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(g *Gateway) { g.log = log }
}

// New creates a Gateway with an Anonymous session and an empty cache
// unless options supply them.
func New(remote domain.Remote, presenter domain.Presenter, opts ...Option) *Gateway {
	g := &Gateway{
		remote:    remote,
		presenter: presenter,
		log:       logging.New(nil, "silent"),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.Sub("commands")
	if g.session == nil {
		g.session = session.New(session.WithLogger(g.log))
	}
	if g.chats == nil {
		g.chats = chatcache.New()
	}
	g.session.OnExpired(g.expired)
	return g
}

// Restore fills an empty cache from the stored snapshot so getChats can
// degrade before the first successful refresh.
func (g *Gateway) Restore(ctx context.Context) error {
	if g.snapshots == nil || g.chats.Known() {
		return nil
	}
	chats, savedAt, ok, err := g.snapshots.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	g.chats.Refresh(chats)
	g.log.Info().Int("chats", len(chats)).Time("savedAt", savedAt).Msg("chat snapshot restored")
	return nil
}

// Chats returns the cached list without contacting the remote.
func (g *Gateway) Chats() []domain.ChatSummary {
	return g.chats.List()
}

// State reports the current session.
func (g *Gateway) State() SessionInfo {
	st := g.session.State()
	info := SessionInfo{
		State:         st.String(),
		Authenticated: st == domain.SessionAuthenticated,
	}
	if info.Authenticated {
		info.ExpiresAt = g.session.ExpiresAt()
	}
	return info
}

// classify turns a remote failure into a typed error. A typed error passes
// through except AuthRejected, which outside of login means the token was
// refused.
func classify(err error) *domain.Error {
	var de *domain.Error
	if errors.As(err, &de) {
		if de.Kind == domain.KindAuthRejected {
			return domain.Unauthenticated(err)
		}
		return de
	}
	return domain.RemoteUnavailable("", err)
}

// remoteFailure classifies err and drops the session when the remote
// refused the token.
func (g *Gateway) remoteFailure(ctx context.Context, err error) *domain.Error {
	de := classify(err)
	if de.Kind == domain.KindUnauthenticated && g.session.Reset() {
		g.log.Warn().Err(err).Msg("remote rejected session token, signing out")
		g.emit(ctx, hooks.EventSessionReset, map[string]any{"reason": "remote_unauthorized"})
	}
	return de
}

// apply runs update against the cache, persists the result and tells the
// observer, unless the session has been reset since generation gen was
// read. It reports whether update ran.
func (g *Gateway) apply(ctx context.Context, gen uint64, update func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.session.Generation() != gen {
		g.log.Debug().Msg("session reset while in flight, result dropped")
		return false
	}
	update()
	g.changed(ctx)
	return true
}

// changed persists the current cache and tells the observer. Callers hold
// mu.
func (g *Gateway) changed(ctx context.Context) {
	list := g.chats.List()
	if g.snapshots != nil {
		if err := g.snapshots.Save(context.WithoutCancel(ctx), list); err != nil {
			g.log.Warn().Err(err).Msg("saving chat snapshot")
		}
	}
	if g.observer != nil {
		g.observer(list)
	}
}

// expired runs when a token read finds the session token past its exp.
func (g *Gateway) expired() {
	g.log.Info().Msg("session token expired, signing out")
	g.emit(context.Background(), hooks.EventSessionReset, map[string]any{"reason": "expired"})
}

func (g *Gateway) emit(ctx context.Context, event string, data map[string]any) {
	g.hooks.EmitAsync(context.WithoutCancel(ctx), event, data)
}

// done logs the outcome of a command.
func done(log *logging.Logger, start time.Time, err error) {
	elapsed := time.Since(start).Milliseconds()
	if err == nil {
		log.Debug().Int64("durationMs", elapsed).Msg("ok")
		return
	}
	kind := domain.KindOf(err)
	ev := log.Info()
	if kind == domain.KindRemoteUnavailable {
		ev = log.Warn()
	}
	ev.Err(err).Str("kind", string(kind)).Int64("durationMs", elapsed).Msg("failed")
}
