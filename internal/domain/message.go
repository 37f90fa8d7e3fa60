package domain

import "time"

// OutboundMessage is a text message the user sends to a chat.
type OutboundMessage struct {
	ChatID string `json:"chatId"`
	Body   string `json:"message" validate:"notblank"`
}

// MessageReceipt acknowledges a message accepted by the backend.
type MessageReceipt struct {
	MessageID string `json:"messageId"`
}

// MediaAsset is a file the user attaches to a chat.
type MediaAsset struct {
	ChatID   string `json:"chatId"`
	FileName string `json:"fileName"`
	Bytes    []byte `json:"bytes" validate:"notblank"`
}

// MediaReference points at an uploaded asset on the backend.
type MediaReference struct {
	URL string `json:"mediaUrl"`
}

// InboundMessage is a message another participant posted, as reported by
// the backend's realtime feed.
type InboundMessage struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	SenderID  string    `json:"senderId,omitempty"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// Notification is shown once by the presentation surface and never stored.
type Notification struct {
	Title string `json:"title" validate:"notblank"`
	Body  string `json:"body"`
}
