package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soyeahso/kirpich/internal/domain"
	"github.com/soyeahso/kirpich/internal/logging"
)

// TokenSource returns the current session token or an error when there is
// no session.
type TokenSource func() (string, error)

// InboundHandler receives every message pushed by the backend.
type InboundHandler func(ctx context.Context, msg domain.InboundMessage) error

// wsFrame is the backend's realtime envelope. Only new_message is consumed.
type wsFrame struct {
	Type    string     `json:"type"`
	Message *wsMessage `json:"message,omitempty"`
}

type wsMessage struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	SenderID  *string   `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Subscriber keeps a WebSocket to the backend open while a session exists
// and forwards pushed messages to a handler, reconnecting with exponential
// backoff.
type Subscriber struct {
	url        string
	token      TokenSource
	handle     InboundHandler
	self       func() string
	dialer     *websocket.Dialer
	backoffMin time.Duration
	backoffMax time.Duration
	log        *logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// SubscriberOption configures a Subscriber.
type SubscriberOption func(*Subscriber)

// WithBackoff sets the reconnect delay bounds.
func WithBackoff(min, max time.Duration) SubscriberOption {
	return func(s *Subscriber) {
		s.backoffMin = min
		s.backoffMax = max
	}
}

// WithSelf skips messages whose sender is the id self returns.
func WithSelf(self func() string) SubscriberOption {
	return func(s *Subscriber) { s.self = self }
}

// NewSubscriber creates a subscriber for the backend at baseURL. The
// realtime endpoint is <baseURL>/ws with http(s) swapped for ws(s).
func NewSubscriber(baseURL string, token TokenSource, handle InboundHandler, log *logging.Logger, opts ...SubscriberOption) *Subscriber {
	s := &Subscriber{
		url:        RealtimeURL(baseURL),
		token:      token,
		handle:     handle,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		backoffMin: time.Second,
		backoffMax: 30 * time.Second,
		log:        log.Sub("realtime"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RealtimeURL maps an API base URL onto its WebSocket endpoint.
func RealtimeURL(baseURL string) string {
	u := strings.TrimSuffix(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

// Start runs the subscriber in the background until Stop or until parent
// ends. Starting a running subscriber does nothing.
func (s *Subscriber) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
}

// Stop ends a background run and waits for it to exit.
func (s *Subscriber) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether a background run is active.
func (s *Subscriber) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Run connects and reconnects until ctx ends.
func (s *Subscriber) Run(ctx context.Context) error {
	wait := s.backoffMin
	for {
		connected, err := s.connect(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			wait = s.backoffMin
		}
		s.log.Warn().Err(err).Dur("retryIn", wait).Msg("realtime connection lost")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait = min(wait*2, s.backoffMax)
	}
}

// connect holds one connection until it fails. connected reports whether
// the dial succeeded.
func (s *Subscriber) connect(ctx context.Context) (connected bool, err error) {
	token, err := s.token()
	if err != nil {
		return false, err
	}

	target := s.url + "?token=" + url.QueryEscape(token)
	conn, resp, err := s.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return false, domain.Unauthenticated(err)
		}
		return false, fmt.Errorf("dialing realtime: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	s.log.Info().Msg("realtime connected")

	for {
		var f wsFrame
		if err := conn.ReadJSON(&f); err != nil {
			return true, err
		}
		if f.Type != "new_message" || f.Message == nil {
			continue
		}

		msg := domain.InboundMessage{
			ID:        f.Message.ID,
			ChatID:    f.Message.ChatID,
			Body:      f.Message.Content,
			Timestamp: f.Message.CreatedAt,
		}
		if f.Message.SenderID != nil {
			msg.SenderID = *f.Message.SenderID
		}
		if s.self != nil && msg.SenderID != "" && msg.SenderID == s.self() {
			continue
		}
		if err := s.handle(ctx, msg); err != nil {
			s.log.Debug().Err(err).Str("messageId", msg.ID).Msg("inbound message rejected")
		}
	}
}
