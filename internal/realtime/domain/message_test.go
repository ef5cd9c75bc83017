package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageEmpty(t *testing.T) {
	msg := &Message{}
	assert.True(t, msg.Empty())

	msg.Content = "hello"
	assert.False(t, msg.Empty())

	msg = &Message{Media: []MediaAttachment{{Kind: MediaImage, URL: "https://cdn.example/a.png"}}}
	assert.False(t, msg.Empty())
}

func TestConversationParticipants(t *testing.T) {
	conv := &Conversation{
		Participants: []string{"user-a", "user-b"},
		States: []ParticipantState{
			{UserID: "user-a", Unread: 2},
			{UserID: "user-b", Pinned: true},
		},
	}

	assert.True(t, conv.HasParticipant("user-a"))
	assert.False(t, conv.HasParticipant("user-c"))

	assert.Equal(t, "user-b", conv.OtherParticipant("user-a"))
	assert.Equal(t, "user-a", conv.OtherParticipant("user-b"))

	assert.Equal(t, 2, conv.StateOf("user-a").Unread)
	assert.True(t, conv.StateOf("user-b").Pinned)

	// absent user resolves to a zero state, never a panic
	assert.Equal(t, ParticipantState{UserID: "user-c"}, conv.StateOf("user-c"))
}
