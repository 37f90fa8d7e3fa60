// Package chatcache keeps the in-memory, recency-ordered list of
// conversation summaries shown by the chat list.
package chatcache

import (
	"sync"

	"github.com/samber/lo"

	"github.com/soyeahso/kirpich/internal/domain"
)

// Cache is a mutex-guarded slice of summaries, most recent first. Readers
// get copies and never observe a partially applied update.
type Cache struct {
	mu    sync.RWMutex
	chats []domain.ChatSummary
	known bool
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{}
}

// List returns a copy of the summaries in recency order.
func (c *Cache) List() []domain.ChatSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAll(c.chats)
}

// Get returns one summary by id.
func (c *Cache) Get(chatID string) (domain.ChatSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	chat, ok := lo.Find(c.chats, func(s domain.ChatSummary) bool { return s.ID == chatID })
	if !ok {
		return domain.ChatSummary{}, false
	}
	return clone(chat), true
}

// Known reports whether the cache holds a list obtained from the backend or
// restored from a snapshot, as opposed to never having been filled.
func (c *Cache) Known() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.known
}

// Refresh replaces the whole list with remote, keeping its order.
func (c *Cache) Refresh(remote []domain.ChatSummary) {
	next := Normalize(remote)

	c.mu.Lock()
	c.chats = next
	c.known = true
	c.mu.Unlock()
}

// ApplySentMessage records the user's own message as the chat's last
// message and moves the chat to the front. The unread count is untouched.
// A chat the cache has not seen yet is added with its id as title.
func (c *Cache) ApplySentMessage(chatID, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	chat, idx := c.lookup(chatID)
	chat.LastMessage = lo.ToPtr(message)
	c.moveToFront(chat, idx)
}

// ApplyReceivedMessage records a message from another participant: it sets
// the last message, adds one unread and moves the chat to the front. It
// returns the updated summary.
func (c *Cache) ApplyReceivedMessage(chatID, message string) domain.ChatSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	chat, idx := c.lookup(chatID)
	chat.LastMessage = lo.ToPtr(message)
	chat.UnreadCount++
	c.moveToFront(chat, idx)
	return clone(chat)
}

// RecordUnread adjusts a chat's unread count by delta, clamped at zero.
// Unknown chats are ignored. It reports whether the chat was found.
func (c *Cache) RecordUnread(chatID string, delta int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, idx, ok := lo.FindIndexOf(c.chats, func(s domain.ChatSummary) bool { return s.ID == chatID })
	if !ok {
		return false
	}
	c.chats[idx].UnreadCount = max(c.chats[idx].UnreadCount+delta, 0)
	return true
}

// Clear empties the cache and forgets that it was ever filled.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.chats = nil
	c.known = false
	c.mu.Unlock()
}

// lookup returns the chat and its index, or a new summary and -1. Callers
// hold mu.
func (c *Cache) lookup(chatID string) (domain.ChatSummary, int) {
	chat, idx, ok := lo.FindIndexOf(c.chats, func(s domain.ChatSummary) bool { return s.ID == chatID })
	if !ok {
		return domain.ChatSummary{ID: chatID, Title: chatID}, -1
	}
	return chat, idx
}

// moveToFront writes chat at position 0, removing it from idx first.
// Callers hold mu.
func (c *Cache) moveToFront(chat domain.ChatSummary, idx int) {
	next := make([]domain.ChatSummary, 0, len(c.chats)+1)
	next = append(next, chat)
	for i, s := range c.chats {
		if i != idx {
			next = append(next, s)
		}
	}
	c.chats = next
}

// Normalize copies a backend list the way Refresh stores it: negative
// unread counts become zero. A nil list yields an empty one.
func Normalize(remote []domain.ChatSummary) []domain.ChatSummary {
	next := cloneAll(remote)
	for i := range next {
		next[i].UnreadCount = max(next[i].UnreadCount, 0)
	}
	return next
}

func clone(s domain.ChatSummary) domain.ChatSummary {
	if s.LastMessage != nil {
		s.LastMessage = lo.ToPtr(*s.LastMessage)
	}
	return s
}

func cloneAll(in []domain.ChatSummary) []domain.ChatSummary {
	return lo.Map(in, func(s domain.ChatSummary, _ int) domain.ChatSummary { return clone(s) })
}
