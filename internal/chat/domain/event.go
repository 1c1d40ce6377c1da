package domain

import "time"

// EventType realtime event type
type EventType string

const (
	// EventNewMessage a message was durably created
	EventNewMessage EventType = "new_message"
	// EventTyping sender is composing
	EventTyping EventType = "typing"
	// EventTypingStop sender stopped composing, sent after a successful send
	EventTypingStop EventType = "typing_stop"
)

// RealtimeEvent payload published on thread and user topics
type RealtimeEvent struct {
	Type     EventType `json:"type"`
	ThreadID string    `json:"thread_id"`
	UserID   string    `json:"user_id,omitempty"`
	Message  *Message  `json:"message,omitempty"`
	SentAt   time.Time `json:"sent_at"`
}

// InsertNotification bare row-insert notification from the fallback feed
type InsertNotification struct {
	Table     string `json:"table,omitempty"`
	MessageID string `json:"id"`
	ThreadID  string `json:"thread_id"`
}

// ThreadTopic per-thread channel
func ThreadTopic(threadID string) string {
	return "chat:thread:" + threadID
}

// UserTopic per-user aggregate channel
func UserTopic(userID string) string {
	return "chat:user:" + userID
}
