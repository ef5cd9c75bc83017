package domain

// MediaKind definition message attachment kind
type MediaKind string

const (
	//MediaImage image attachment
	MediaImage MediaKind = "image"
	//MediaVideo video attachment
	MediaVideo MediaKind = "video"
	//MediaAudio audio attachment
	MediaAudio MediaKind = "audio"
)

// MediaAttachment one attachment carried by a direct message
type MediaAttachment struct {
	Kind    MediaKind `bson:"kind" json:"kind"`
	URL     string    `bson:"url" json:"url"`
	Caption string    `bson:"caption,omitempty" json:"caption,omitempty"`
}

// Message one direct message; immutable once written except the read flag
type Message struct {
	ID         string            `bson:"_id" json:"id"`
	SenderID   string            `bson:"sender_id" json:"sender_id"`
	ReceiverID string            `bson:"receiver_id" json:"receiver_id"`
	Content    string            `bson:"content" json:"content"`
	Media      []MediaAttachment `bson:"media,omitempty" json:"media,omitempty"`
	IsRead     bool              `bson:"is_read" json:"is_read"`
	CreatedAt  int64             `bson:"created_at" json:"created_at"`
}

// Empty reports whether the message carries neither text nor media
func (m *Message) Empty() bool {
	return m.Content == "" && len(m.Media) == 0
}

// ParticipantState per-participant view state inside a conversation.
// Exactly one entry per participant; one participant's entry is never
// touched by the other participant's actions.
type ParticipantState struct {
	UserID string `bson:"user_id" json:"user_id"`
	Unread int    `bson:"unread" json:"unread"`
	Pinned bool   `bson:"pinned" json:"pinned"`
	Muted  bool   `bson:"muted" json:"muted"`
}

// Conversation persisted aggregate for one unordered pair of users.
// At most one document exists per pair (find-or-create on first message).
type Conversation struct {
	ID string `bson:"_id,omitempty" json:"id"`
	// PairKey canonical "lo|hi" join of the sorted pair; carries the unique
	// index, participants stays queryable per user
	PairKey         string             `bson:"pair_key" json:"-"`
	Participants    []string           `bson:"participants" json:"participants"`
	LastMessageID   string             `bson:"last_message_id,omitempty" json:"last_message_id,omitempty"`
	LastMessageText string             `bson:"last_message_text,omitempty" json:"last_message_text,omitempty"`
	LastMessageAt   int64              `bson:"last_message_at,omitempty" json:"last_message_at,omitempty"`
	States          []ParticipantState `bson:"states" json:"states"`
	CreatedAt       int64              `bson:"created_at" json:"created_at"`
}

// StateOf returns the view state entry for userID, zero value if absent
func (c *Conversation) StateOf(userID string) ParticipantState {
	for _, s := range c.States {
		if s.UserID == userID {
			return s
		}
	}
	return ParticipantState{UserID: userID}
}

// HasParticipant reports whether userID is one of the two participants
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// ConversationView participant-scoped projection of a Conversation.
// Built by the same transform for list queries, single fetches and live
// conversation_update events.
type ConversationView struct {
	ID               string `json:"id"`
	OtherParticipant string `json:"other_participant"`
	LastMessageID    string `json:"last_message_id,omitempty"`
	LastMessageText  string `json:"last_message_text,omitempty"`
	LastMessageAt    int64  `json:"last_message_at,omitempty"`
	UnreadCount      int    `json:"unread_count"`
	IsPinned         bool   `json:"is_pinned"`
	IsMuted          bool   `json:"is_muted"`
}

// Profile display data resolved for outbound payload enrichment
type Profile struct {
	UserID      string `bson:"_id" json:"user_id"`
	Username    string `bson:"username" json:"username"`
	DisplayName string `bson:"display_name" json:"display_name"`
	Avatar      string `bson:"avatar" json:"avatar"`
}
