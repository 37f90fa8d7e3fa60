package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/soyeahso/kirpich/internal/domain"
)

// DefaultMediaBase is where the loopback backend pretends uploads live.
const DefaultMediaBase = "https://media.kirpich.app"

// LoopbackToken is the token every loopback login returns.
const LoopbackToken = "dev-token"

// Loopback is an in-process backend for development and demos. It accepts
// any credentials and keeps chats in memory.
type Loopback struct {
	mediaBase string

	mu    sync.Mutex
	seq   int
	chats []domain.ChatSummary
}

// NewLoopback returns a loopback backend seeded with the General chat.
func NewLoopback(mediaBase string) *Loopback {
	if mediaBase == "" {
		mediaBase = DefaultMediaBase
	}
	return &Loopback{
		mediaBase: mediaBase,
		chats: []domain.ChatSummary{{
			ID:          "general",
			Title:       "General",
			LastMessage: lo.ToPtr("Welcome to KirpichMessanger"),
		}},
	}
}

var _ domain.Remote = (*Loopback)(nil)

func (l *Loopback) Authenticate(_ context.Context, _ domain.Credentials) (string, error) {
	return LoopbackToken, nil
}

func (l *Loopback) Send(ctx context.Context, token, chatID, body string) (string, error) {
	if err := l.check(ctx, token); err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++

	_, idx, ok := lo.FindIndexOf(l.chats, func(c domain.ChatSummary) bool { return c.ID == chatID })
	if ok {
		l.chats[idx].LastMessage = lo.ToPtr(body)
	} else {
		l.chats = append(l.chats, domain.ChatSummary{ID: chatID, Title: chatID, LastMessage: lo.ToPtr(body)})
	}
	return fmt.Sprintf("msg-%s-%d", chatID, l.seq), nil
}

func (l *Loopback) Upload(ctx context.Context, token string, asset domain.MediaAsset) (string, error) {
	if err := l.check(ctx, token); err != nil {
		return "", err
	}
	return MediaURL(l.mediaBase, asset.ChatID, asset.FileName), nil
}

func (l *Loopback) ListChats(ctx context.Context, _ string) ([]domain.ChatSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.RemoteUnavailable("", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return lo.Map(l.chats, func(c domain.ChatSummary, _ int) domain.ChatSummary {
		if c.LastMessage != nil {
			c.LastMessage = lo.ToPtr(*c.LastMessage)
		}
		return c
	}), nil
}

func (l *Loopback) MarkRead(ctx context.Context, token, chatID string) error {
	if err := l.check(ctx, token); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, idx, ok := lo.FindIndexOf(l.chats, func(c domain.ChatSummary) bool { return c.ID == chatID })
	if ok {
		l.chats[idx].UnreadCount = 0
	}
	return nil
}

// Deliver simulates a message from another participant: the chat's unread
// count goes up and the message is returned for a subscriber to forward.
func (l *Loopback) Deliver(chatID, body string) domain.InboundMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++

	_, idx, ok := lo.FindIndexOf(l.chats, func(c domain.ChatSummary) bool { return c.ID == chatID })
	if !ok {
		l.chats = append(l.chats, domain.ChatSummary{ID: chatID, Title: chatID})
		idx = len(l.chats) - 1
	}
	l.chats[idx].LastMessage = lo.ToPtr(body)
	l.chats[idx].UnreadCount++

	return domain.InboundMessage{
		ID:     fmt.Sprintf("in-%s-%d", chatID, l.seq),
		ChatID: chatID,
		Body:   body,
	}
}

func (l *Loopback) check(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return domain.RemoteUnavailable("", err)
	}
	if token != LoopbackToken {
		return domain.Unauthenticated(nil)
	}
	return nil
}
