package domain

// NotificationKind definition social-action notification kind
type NotificationKind string

const (
	//NotifyLike someone liked a post
	NotifyLike NotificationKind = "like"
	//NotifyReply someone replied to a post
	NotifyReply NotificationKind = "reply"
	//NotifyMention someone mentioned the user in a post
	NotifyMention NotificationKind = "mention"
	//NotifyFollow someone followed the user
	NotifyFollow NotificationKind = "follow"
)

// Notification social-action notification (not a direct message).
// Never created when sender equals recipient.
type Notification struct {
	ID          string           `bson:"_id" json:"id"`
	RecipientID string           `bson:"recipient_id" json:"recipient_id"`
	SenderID    string           `bson:"sender_id" json:"sender_id"`
	Kind        NotificationKind `bson:"kind" json:"kind"`
	PostID      string           `bson:"post_id,omitempty" json:"post_id,omitempty"`
	Message     string           `bson:"message" json:"message"`
	IsRead      bool             `bson:"is_read" json:"is_read"`
	CreatedAt   int64            `bson:"created_at" json:"created_at"`
}

// TargetURL derives the client destination for a notification
func (n *Notification) TargetURL() string {
	switch n.Kind {
	case NotifyFollow:
		return "/profile/" + n.SenderID
	default:
		return "/post/" + n.PostID
	}
}

// SubscriptionKeys browser-supplied encryption keys for one push endpoint
type SubscriptionKeys struct {
	P256dh string `bson:"p256dh" json:"p256dh"`
	Auth   string `bson:"auth" json:"auth"`
}

// PushSubscription one (user, endpoint) opt-in; unique on that compound key
type PushSubscription struct {
	UserID    string           `bson:"user_id" json:"user_id"`
	Endpoint  string           `bson:"endpoint" json:"endpoint"`
	Keys      SubscriptionKeys `bson:"keys" json:"keys"`
	CreatedAt int64            `bson:"created_at" json:"created_at"`
}

// PushPayload structured body handed to the push provider
type PushPayload struct {
	Title string       `json:"title"`
	Body  string       `json:"body"`
	Tag   string       `json:"tag"`
	Data  PushLinkData `json:"data"`
}

// PushLinkData definition push payload data field
type PushLinkData struct {
	URL            string `json:"url"`
	NotificationID string `json:"notificationId,omitempty"`
	MessageID      string `json:"messageId,omitempty"`
}
