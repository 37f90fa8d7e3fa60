package command

import (
	"context"
	"errors"
	"time"

	"github.com/soyeahso/kirpich/internal/chatcache"
	"github.com/soyeahso/kirpich/internal/domain"
	"github.com/soyeahso/kirpich/internal/hooks"
	"github.com/soyeahso/kirpich/internal/validate"
)

// Login exchanges credentials for a session token.
func (g *Gateway) Login(ctx context.Context, creds domain.Credentials) (_ domain.AuthToken, err error) {
	log := g.log.Command("login")
	defer func(start time.Time) { done(log, start, err) }(time.Now())

	if err := validate.Credentials(creds); err != nil {
		return domain.AuthToken{}, err
	}
	if err := g.session.BeginLogin(); err != nil {
		return domain.AuthToken{}, err
	}

	token, rerr := g.remote.Authenticate(ctx, creds)
	if rerr == nil && token == "" {
		rerr = domain.RemoteUnavailable("Messaging service returned no token", nil)
	}
	if rerr != nil {
		failure := g.session.CompleteLoginFailed(loginFailure(rerr))
		g.emit(ctx, hooks.EventLoginFailed, map[string]any{"kind": string(domain.KindOf(failure))})
		return domain.AuthToken{}, failure
	}

	if err := g.session.CompleteLogin(token); err != nil {
		// a logout raced the login
		return domain.AuthToken{}, err
	}
	g.emit(ctx, hooks.EventLoginSucceeded, nil)
	return domain.AuthToken{Token: token}, nil
}

// loginFailure keeps typed remote errors and treats anything else as a
// refusal of the credentials.
func loginFailure(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		if de.Kind == domain.KindUnauthenticated {
			return domain.AuthRejected("", err)
		}
		return de
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.RemoteUnavailable("", err)
	}
	return domain.AuthRejected("", err)
}

// SendMessage posts a text message and records it as the chat's last
// message.
func (g *Gateway) SendMessage(ctx context.Context, msg domain.OutboundMessage) (_ domain.MessageReceipt, err error) {
	log := g.log.Command("sendMessage")
	defer func(start time.Time) { done(log.With("chatId", msg.ChatID), start, err) }(time.Now())

	if err := validate.OutboundMessage(msg); err != nil {
		return domain.MessageReceipt{}, err
	}
	if err := validate.ChatID(msg.ChatID); err != nil {
		return domain.MessageReceipt{}, err
	}
	ticket, err := g.session.Ticket()
	if err != nil {
		return domain.MessageReceipt{}, err
	}

	id, rerr := g.remote.Send(ctx, ticket.Token, msg.ChatID, msg.Body)
	if rerr != nil {
		return domain.MessageReceipt{}, g.remoteFailure(ctx, rerr)
	}

	// the message went out even if the session was reset meanwhile
	g.apply(ctx, ticket.Generation, func() { g.chats.ApplySentMessage(msg.ChatID, msg.Body) })
	g.emit(ctx, hooks.EventMessageSent, map[string]any{"chatId": msg.ChatID, "messageId": id})
	return domain.MessageReceipt{MessageID: id}, nil
}

// UploadMedia stores a file on the backend and returns its URL.
func (g *Gateway) UploadMedia(ctx context.Context, asset domain.MediaAsset) (_ domain.MediaReference, err error) {
	log := g.log.Command("uploadMedia")
	defer func(start time.Time) {
		done(log.With("chatId", asset.ChatID).With("size", len(asset.Bytes)), start, err)
	}(time.Now())

	if err := validate.MediaAsset(asset); err != nil {
		return domain.MediaReference{}, err
	}
	token, err := g.session.CurrentToken()
	if err != nil {
		return domain.MediaReference{}, err
	}

	url, rerr := g.remote.Upload(ctx, token, asset)
	if rerr != nil {
		return domain.MediaReference{}, g.remoteFailure(ctx, rerr)
	}

	g.emit(ctx, hooks.EventMediaUploaded, map[string]any{
		"chatId":   asset.ChatID,
		"fileName": asset.FileName,
		"size":     len(asset.Bytes),
	})
	return domain.MediaReference{URL: url}, nil
}

// GetChats refreshes the cache from the remote and returns it. When the
// remote fails and a list is already known, that list is returned instead
// of an error.
func (g *Gateway) GetChats(ctx context.Context) (_ []domain.ChatSummary, err error) {
	log := g.log.Command("getChats")
	defer func(start time.Time) { done(log, start, err) }(time.Now())

	// listing is allowed without a session
	ticket, _ := g.session.Ticket()

	remote, rerr := g.remote.ListChats(ctx, ticket.Token)
	if rerr != nil {
		failure := g.remoteFailure(ctx, rerr)
		if failure.Kind == domain.KindUnauthenticated {
			// the session is gone now; to the caller the listing failed
			failure = domain.RemoteUnavailable("", failure)
		}
		if g.chats.Known() {
			stale := g.chats.List()
			log.Warn().Err(rerr).Int("chats", len(stale)).Msg("serving last known chat list")
			g.emit(ctx, hooks.EventChatsStale, map[string]any{"kind": string(failure.Kind)})
			return stale, nil
		}
		return []domain.ChatSummary{}, failure
	}

	var list []domain.ChatSummary
	if !g.apply(ctx, ticket.Generation, func() {
		g.chats.Refresh(remote)
		list = g.chats.List()
	}) {
		// signed out while listing: answer without caching
		return chatcache.Normalize(remote), nil
	}
	g.emit(ctx, hooks.EventChatsRefreshed, map[string]any{"count": len(list)})
	return list, nil
}

// DeliverNotification shows n on the notification surface.
func (g *Gateway) DeliverNotification(ctx context.Context, n domain.Notification) (err error) {
	log := g.log.Command("deliverNotification")
	defer func(start time.Time) { done(log, start, err) }(time.Now())

	if err := validate.Notification(n); err != nil {
		return err
	}
	g.presenter.Notify(n)
	g.emit(ctx, hooks.EventNotificationDelivered, nil)
	return nil
}

// Logout drops the session together with the cached and stored chat list.
// It always succeeds.
func (g *Gateway) Logout(ctx context.Context) {
	log := g.log.Command("logout")

	g.mu.Lock()
	had := g.session.Reset()
	g.chats.Clear()
	if g.snapshots != nil {
		if err := g.snapshots.Clear(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("clearing chat snapshot")
		}
	}
	if g.observer != nil {
		g.observer([]domain.ChatSummary{})
	}
	g.mu.Unlock()

	log.Info().Bool("hadSession", had).Msg("signed out")
	g.emit(ctx, hooks.EventSessionReset, map[string]any{"reason": "logout"})
}

// MarkRead clears a chat's unread count on the backend and in the cache.
func (g *Gateway) MarkRead(ctx context.Context, chatID string) (err error) {
	log := g.log.Command("markRead")
	defer func(start time.Time) { done(log.With("chatId", chatID), start, err) }(time.Now())

	if err := validate.ChatID(chatID); err != nil {
		return err
	}
	ticket, err := g.session.Ticket()
	if err != nil {
		return err
	}

	if rerr := g.remote.MarkRead(ctx, ticket.Token, chatID); rerr != nil {
		return g.remoteFailure(ctx, rerr)
	}

	if chat, ok := g.chats.Get(chatID); ok && chat.UnreadCount > 0 {
		g.apply(ctx, ticket.Generation, func() { g.chats.RecordUnread(chatID, -chat.UnreadCount) })
	}
	g.emit(ctx, hooks.EventChatRead, map[string]any{"chatId": chatID})
	return nil
}

// Receive applies a message pushed by the backend: the chat moves to the
// front with one more unread and a notification is shown.
func (g *Gateway) Receive(ctx context.Context, msg domain.InboundMessage) error {
	if err := validate.ChatID(msg.ChatID); err != nil {
		g.log.Warn().Str("messageId", msg.ID).Msg("inbound message without chat id dropped")
		return err
	}

	g.mu.Lock()
	chat := g.chats.ApplyReceivedMessage(msg.ChatID, msg.Body)
	g.changed(ctx)
	g.mu.Unlock()
	g.emit(ctx, hooks.EventMessageReceived, map[string]any{
		"chatId":    msg.ChatID,
		"messageId": msg.ID,
		"unread":    chat.UnreadCount,
	})

	title := chat.Title
	if title == "" {
		title = "New message"
	}
	g.presenter.Notify(domain.Notification{Title: title, Body: msg.Body})
	return nil
}
