package domain

// ChatSummary is the list-view projection of a conversation.
type ChatSummary struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	LastMessage *string `json:"lastMessage,omitempty"`
	UnreadCount int     `json:"unreadCount"`
}

// Preview returns the last message text, or "" when none is known.
func (c ChatSummary) Preview() string {
	if c.LastMessage == nil {
		return ""
	}
	return *c.LastMessage
}
