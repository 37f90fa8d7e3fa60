package chatcache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/kirpich/internal/domain"
)

func summary(id string, unread int, last string) domain.ChatSummary {
	s := domain.ChatSummary{ID: id, Title: "Chat " + id, UnreadCount: unread}
	if last != "" {
		s.LastMessage = lo.ToPtr(last)
	}
	return s
}

func ids(list []domain.ChatSummary) []string {
	return lo.Map(list, func(s domain.ChatSummary, _ int) string { return s.ID })
}

func TestEmptyCache(t *testing.T) {
	c := New()
	list := c.List()
	assert.NotNil(t, list)
	assert.Empty(t, list)
	assert.False(t, c.Known())
}

func TestRefreshReplacesExactly(t *testing.T) {
	c := New()
	c.Refresh([]domain.ChatSummary{summary("old", 3, "bye")})

	remote := []domain.ChatSummary{summary("b", 0, ""), summary("a", 2, "hello")}
	c.Refresh(remote)

	assert.Equal(t, remote, c.List())
	assert.True(t, c.Known())
}

func TestRefreshCopiesInput(t *testing.T) {
	c := New()
	remote := []domain.ChatSummary{summary("a", 1, "x")}
	c.Refresh(remote)

	*remote[0].LastMessage = "mutated"
	remote[0].UnreadCount = 9

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "x", got.Preview())
	assert.Equal(t, 1, got.UnreadCount)
}

func TestRefreshClampsNegativeUnread(t *testing.T) {
	c := New()
	c.Refresh([]domain.ChatSummary{summary("a", -4, "")})
	got, _ := c.Get("a")
	assert.Equal(t, 0, got.UnreadCount)
}

func TestNormalize(t *testing.T) {
	got := Normalize([]domain.ChatSummary{summary("a", -2, "x"), summary("b", 3, "")})
	assert.Equal(t, []int{0, 3}, lo.Map(got, func(s domain.ChatSummary, _ int) int { return s.UnreadCount }))

	empty := Normalize(nil)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestListReturnsCopy(t *testing.T) {
	c := New()
	c.Refresh([]domain.ChatSummary{summary("a", 1, "x")})

	list := c.List()
	list[0].UnreadCount = 42
	*list[0].LastMessage = "changed"

	got, _ := c.Get("a")
	assert.Equal(t, 1, got.UnreadCount)
	assert.Equal(t, "x", got.Preview())
}

func TestApplySentMessage(t *testing.T) {
	c := New()
	c.Refresh([]domain.ChatSummary{summary("a", 0, ""), summary("c1", 5, "old")})

	c.ApplySentMessage("c1", "hi")

	list := c.List()
	assert.Equal(t, []string{"c1", "a"}, ids(list))
	assert.Equal(t, "hi", list[0].Preview())
	assert.Equal(t, 5, list[0].UnreadCount, "own message never counts as unread")
	assert.Equal(t, "Chat c1", list[0].Title)
}

func TestApplySentMessageUnknownChat(t *testing.T) {
	c := New()
	c.Refresh([]domain.ChatSummary{summary("a", 1, "")})

	c.ApplySentMessage("new", "first")

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, domain.ChatSummary{ID: "new", Title: "new", LastMessage: lo.ToPtr("first")}, list[0])
}

func TestApplyReceivedMessage(t *testing.T) {
	c := New()
	c.Refresh([]domain.ChatSummary{summary("a", 0, ""), summary("b", 2, "")})

	got := c.ApplyReceivedMessage("b", "ping")

	assert.Equal(t, 3, got.UnreadCount)
	assert.Equal(t, "ping", got.Preview())
	assert.Equal(t, []string{"b", "a"}, ids(c.List()))
}

func TestRecordUnread(t *testing.T) {
	tests := []struct {
		name  string
		start int
		delta int
		want  int
	}{
		{"increment", 0, 1, 1},
		{"add many", 2, 3, 5},
		{"decrement", 5, -2, 3},
		{"clamped at zero", 1, -10, 0},
		{"zero delta", 4, 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			c.Refresh([]domain.ChatSummary{summary("a", tt.start, "")})
			assert.True(t, c.RecordUnread("a", tt.delta))
			got, _ := c.Get("a")
			assert.Equal(t, tt.want, got.UnreadCount)
		})
	}
}

func TestRecordUnreadUnknownChat(t *testing.T) {
	c := New()
	assert.False(t, c.RecordUnread("ghost", 1))
	assert.Empty(t, c.List())
}

func TestClear(t *testing.T) {
	c := New()
	c.Refresh([]domain.ChatSummary{summary("a", 0, "")})
	c.Clear()
	assert.Empty(t, c.List())
	assert.False(t, c.Known())
}

func TestConcurrentMutationNeverNegative(t *testing.T) {
	c := New()
	c.Refresh([]domain.ChatSummary{summary("a", 0, ""), summary("b", 0, "")})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); c.RecordUnread("a", -1) }()
		go func(i int) { defer wg.Done(); c.ApplySentMessage("b", fmt.Sprintf("m%d", i)) }(i)
		go func() { defer wg.Done(); _ = c.List() }()
	}
	wg.Wait()

	for _, s := range c.List() {
		assert.GreaterOrEqual(t, s.UnreadCount, 0)
	}
	assert.Len(t, c.List(), 2)
}
