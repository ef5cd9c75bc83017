package domain

// Action websocket request action
type Action string

const (
	// ActionSendMessage websocket action send_message
	ActionSendMessage Action = "send_message"
	// ActionMarkRead websocket action mark_read
	ActionMarkRead Action = "mark_read"
	// ActionTyping websocket action typing
	ActionTyping Action = "typing"
)

// Event websocket outbound event name
type Event string

const (
	// EventAuthSuccess emitted once after the connection is authenticated
	EventAuthSuccess Event = "auth_success"
	// EventNewMessage resolved message pushed to the receiver
	EventNewMessage Event = "new_message"
	// EventConversationUpdate refreshed conversation view for the receiver
	EventConversationUpdate Event = "conversation_update"
	// EventMessageSent send acknowledgement back to the sender
	EventMessageSent Event = "message_sent"
	// EventMessageError synchronous validation failure on the sender side
	EventMessageError Event = "message_error"
	// EventMessagesRead read confirmation to the other participant
	EventMessagesRead Event = "messages_read"
	// EventUserTyping relayed typing indicator
	EventUserTyping Event = "user_typing"
	// EventUserStatus presence change broadcast
	EventUserStatus Event = "user_status"
	// EventNotification live social-action notification
	EventNotification Event = "notification"
	// EventUnreadCount refreshed unread-notification count
	EventUnreadCount Event = "unread_count"
)

// WSRequest websocket Request
type WSRequest struct {
	Action         string            `json:"action"`
	ReceiverID     string            `json:"receiver_id,omitempty"`
	Content        string            `json:"content,omitempty"`
	Media          []MediaAttachment `json:"media,omitempty"`
	ConversationID string            `json:"conversation_id,omitempty"`
	MessageID      string            `json:"message_id,omitempty"`
	IsTyping       bool              `json:"is_typing,omitempty"`
}

// WSResponse websocket Response
type WSResponse struct {
	Event   string                 `json:"event"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// ClientConn is the slice of a websocket connection the realtime core
// needs; *websocket.Conn satisfies it, tests use fakes.
type ClientConn interface {
	WriteJSON(v interface{}) error
	Close() error
}
