package app

import (
	"testing"

	"uthread_service/internal/realtime/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestViewFor_EachSideSeesOwnState(t *testing.T) {
	userA := uuid.New().String()
	userB := uuid.New().String()
	conv := &domain.Conversation{
		ID:              uuid.New().String(),
		Participants:    []string{userA, userB},
		LastMessageText: "see you tomorrow",
		LastMessageAt:   1700000000,
		States: []domain.ParticipantState{
			{UserID: userA, Unread: 2, Pinned: true},
			{UserID: userB, Muted: true},
		},
	}

	viewA := ViewFor(conv, userA)
	assert.Equal(t, userB, viewA.OtherParticipant)
	assert.Equal(t, 2, viewA.UnreadCount)
	assert.True(t, viewA.IsPinned)
	assert.False(t, viewA.IsMuted)
	assert.Equal(t, "see you tomorrow", viewA.LastMessageText)

	viewB := ViewFor(conv, userB)
	assert.Equal(t, userA, viewB.OtherParticipant)
	assert.Equal(t, 0, viewB.UnreadCount)
	assert.False(t, viewB.IsPinned)
	assert.True(t, viewB.IsMuted)
}

func TestViewFor_MissingStateDefaultsToZero(t *testing.T) {
	userA := uuid.New().String()
	userB := uuid.New().String()
	conv := &domain.Conversation{
		ID:           uuid.New().String(),
		Participants: []string{userA, userB},
	}

	view := ViewFor(conv, userA)
	assert.Equal(t, 0, view.UnreadCount)
	assert.False(t, view.IsPinned)
	assert.False(t, view.IsMuted)
}

func TestBuildPaginationMeta(t *testing.T) {
	meta := buildPaginationMeta(1, 20, 45)
	assert.Equal(t, int64(45), meta.Total)
	assert.Equal(t, 3, meta.Pages)
	assert.True(t, meta.HasMore)

	meta = buildPaginationMeta(3, 20, 45)
	assert.False(t, meta.HasMore)

	meta = buildPaginationMeta(1, 20, 0)
	assert.Equal(t, 0, meta.Pages)
	assert.False(t, meta.HasMore)
}
