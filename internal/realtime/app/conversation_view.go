package app

import "uthread_service/internal/realtime/domain"

// ViewFor projects a conversation onto one participant's point of view:
// the other participant, the requester's own unread/pin/mute state and the
// last-message snapshot. Pure transform, applied identically for list
// queries, single fetches and live conversation_update events.
func ViewFor(conv *domain.Conversation, requesterID string) domain.ConversationView {
	state := conv.StateOf(requesterID)
	return domain.ConversationView{
		ID:               conv.ID,
		OtherParticipant: conv.OtherParticipant(requesterID),
		LastMessageID:    conv.LastMessageID,
		LastMessageText:  conv.LastMessageText,
		LastMessageAt:    conv.LastMessageAt,
		UnreadCount:      state.Unread,
		IsPinned:         state.Pinned,
		IsMuted:          state.Muted,
	}
}
