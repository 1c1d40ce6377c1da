package domain

// Action websocket request action
type Action string

const (
	// ListThreads websocket action list_threads
	ListThreads Action = "list_threads"
	// CreateDirect websocket action create_direct
	CreateDirect Action = "create_direct"
	// CreateGroup websocket action create_group
	CreateGroup Action = "create_group"

	// OpenThread websocket action open_thread
	OpenThread Action = "open_thread"
	// CloseThread websocket action close_thread
	CloseThread Action = "close_thread"

	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// Typing websocket action typing, content is the composer text
	Typing Action = "typing"
	// Translate websocket action translate
	Translate Action = "translate"

	// MarkRead websocket action mark_read
	MarkRead Action = "mark_read"
	// GetUnread websocket action get_unread
	GetUnread Action = "get_unread"
)

// server push actions
const (
	// PushNewMessage new message reached the session store
	PushNewMessage Action = "new_message"
	// PushTyping typing indicator changed
	PushTyping Action = "typing"
	// PushUnread unread counts reconciled
	PushUnread Action = "unread"
	// PushThreads thread previews changed
	PushThreads Action = "threads"
)

// WSRequest websocket Request
type WSRequest struct {
	Action      string   `json:"action"`
	ThreadID    string   `json:"thread_id"`
	OtherUserID string   `json:"other_user_id"`
	GroupName   string   `json:"group_name"`
	Members     []string `json:"members"`
	Content     string   `json:"content"`
	MessageID   string   `json:"message_id"`
	Language    string   `json:"language"`
	Limit       int      `json:"limit"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Code    string                 `json:"code,omitempty"`
}
