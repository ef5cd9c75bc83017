package app

import (
	"sync"
	"testing"

	"uthread_service/internal/realtime/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSessionRegistry_RegisterAndPresence(t *testing.T) {
	registry := NewSessionRegistry()
	userA := uuid.New().String()
	userB := uuid.New().String()

	assert.False(t, registry.IsOnline(userA))

	registry.Register(userA, &fakeConn{})
	assert.True(t, registry.IsOnline(userA))

	statuses := registry.OnlineStatusBatch([]string{userA, userB})
	assert.True(t, statuses[userA])
	assert.False(t, statuses[userB])
}

func TestSessionRegistry_BroadcastsPresenceChanges(t *testing.T) {
	registry := NewSessionRegistry()
	userA := uuid.New().String()
	userB := uuid.New().String()

	connA := &fakeConn{}
	registry.Register(userA, connA)

	connB := &fakeConn{}
	registry.Register(userB, connB)

	online := connA.eventsOf(domain.EventUserStatus)
	assert.Len(t, online, 1)
	assert.Equal(t, userB, online[0].Payload["user_id"])
	assert.Equal(t, "online", online[0].Payload["status"])

	// one's own registration is not echoed back
	assert.Empty(t, connB.eventsOf(domain.EventUserStatus))

	registry.Remove(userB, connB)
	statuses := connA.eventsOf(domain.EventUserStatus)
	assert.Len(t, statuses, 2)
	assert.Equal(t, "offline", statuses[1].Payload["status"])
}

func TestSessionRegistry_SecondLoginEvictsFirst(t *testing.T) {
	registry := NewSessionRegistry()
	userID := uuid.New().String()

	first := &fakeConn{}
	registry.Register(userID, first)

	second := &fakeConn{}
	registry.Register(userID, second)

	assert.True(t, first.isClosed())
	assert.False(t, second.isClosed())
	assert.True(t, registry.IsOnline(userID))

	// the evicted connection's teardown must not drop the live session,
	// and its caller must learn it owned nothing
	assert.False(t, registry.Remove(userID, first))
	assert.True(t, registry.IsOnline(userID))

	assert.True(t, registry.Remove(userID, second))
	assert.False(t, registry.IsOnline(userID))
}

func TestSessionRegistry_RemoveUnknownIsNoop(t *testing.T) {
	registry := NewSessionRegistry()

	assert.False(t, registry.Remove(uuid.New().String(), &fakeConn{}))
}

func TestSessionRegistry_PushErrorGoesThroughSession(t *testing.T) {
	registry := NewSessionRegistry()
	userID := uuid.New().String()

	assert.False(t, registry.PushError(userID, "invalid payload"))

	conn := &fakeConn{}
	registry.Register(userID, conn)

	assert.True(t, registry.PushError(userID, "invalid payload"))
	events := conn.eventsOf(domain.EventMessageError)
	assert.Len(t, events, 1)
	assert.Equal(t, "invalid payload", events[0].Error)
}

func TestSessionRegistry_ConcurrentWritesAreSerialized(t *testing.T) {
	registry := NewSessionRegistry()
	userID := uuid.New().String()
	conn := &fakeConn{}
	registry.Register(userID, conn)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.Push(userID, domain.EventNotification, map[string]interface{}{"k": "v"})
			registry.PushError(userID, "boom")
		}()
	}
	wg.Wait()

	assert.Len(t, conn.eventsOf(domain.EventNotification), 20)
	assert.Len(t, conn.eventsOf(domain.EventMessageError), 20)
}

func TestSessionRegistry_PushReportsSessionExistence(t *testing.T) {
	registry := NewSessionRegistry()
	userID := uuid.New().String()

	assert.False(t, registry.Push(userID, domain.EventNotification, nil))

	conn := &fakeConn{}
	registry.Register(userID, conn)

	assert.True(t, registry.Push(userID, domain.EventNotification, map[string]interface{}{"k": "v"}))
	events := conn.eventsOf(domain.EventNotification)
	assert.Len(t, events, 1)
	assert.Equal(t, "v", events[0].Payload["k"])
}
