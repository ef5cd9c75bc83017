package app

import (
	"sync"
	"time"

	"uthread_service/internal/realtime/domain"
	"uthread_service/pkg/logger"

	"go.uber.org/zap"
)

// Session one live connection for one user, process-local only
type Session struct {
	UserID   string
	Conn     domain.ClientConn
	JoinedAt time.Time

	// serializes writes; websocket connections do not allow concurrent writers
	writeMu sync.Mutex
}

func (s *Session) write(resp domain.WSResponse) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.Conn.WriteJSON(resp)
}

// SessionRegistry in-memory user -> live connection map; the single source
// of truth for "is this user online in this process". Nothing here is
// persisted: a restart empties the registry and every client re-registers
// on reconnect.
//
// One slot per user: a second login replaces the first and the evicted
// connection is closed explicitly rather than silently starved.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionRegistry create an empty SessionRegistry
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*Session),
	}
}

// Register records or replaces the live connection for a user and
// broadcasts the presence change to every other connected peer.
func (r *SessionRegistry) Register(userID string, conn domain.ClientConn) {
	r.mu.Lock()
	evicted := r.sessions[userID]
	r.sessions[userID] = &Session{
		UserID:   userID,
		Conn:     conn,
		JoinedAt: time.Now(),
	}
	r.mu.Unlock()

	if evicted != nil {
		logger.Log.Info("session replaced, closing previous connection", zap.String("user_id", userID))
		if err := evicted.Conn.Close(); err != nil {
			logger.Log.Debug("evicted connection close", zap.Error(err))
		}
	}

	r.broadcastStatus(userID, "online")
}

// Remove drops the user's session on disconnect, reporting whether it
// removed one. No-op if absent or if the registered connection is not conn
// (a replacement already happened), so an evicted connection's teardown
// cannot touch state owned by its replacement.
func (r *SessionRegistry) Remove(userID string, conn domain.ClientConn) bool {
	r.mu.Lock()
	sess, ok := r.sessions[userID]
	if !ok || (conn != nil && sess.Conn != conn) {
		r.mu.Unlock()
		return false
	}
	delete(r.sessions, userID)
	r.mu.Unlock()

	r.broadcastStatus(userID, "offline")
	return true
}

// IsOnline reports whether the user has a live session in this process
func (r *SessionRegistry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[userID]
	return ok
}

// OnlineStatusBatch resolves presence for a set of users in one pass
func (r *SessionRegistry) OnlineStatusBatch(userIDs []string) map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		_, ok := r.sessions[id]
		statuses[id] = ok
	}
	return statuses
}

// Push delivers one event to the user's session if present. Fire and
// forget: a write failure is logged, never propagated. Returns whether a
// session existed at all.
func (r *SessionRegistry) Push(userID string, event domain.Event, payload map[string]interface{}) bool {
	r.mu.RLock()
	sess, ok := r.sessions[userID]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	if err := sess.write(domain.WSResponse{Event: string(event), Payload: payload}); err != nil {
		logger.Log.Errorf("live push write failed:", err, zap.String("user_id", userID), zap.String("event", string(event)))
	}
	return true
}

// PushError delivers a message_error event through the serialized session
// writer; a direct connection write here would race concurrent pushes.
func (r *SessionRegistry) PushError(userID, errMsg string) bool {
	r.mu.RLock()
	sess, ok := r.sessions[userID]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	if err := sess.write(domain.WSResponse{Event: string(domain.EventMessageError), Error: errMsg}); err != nil {
		logger.Log.Errorf("error event write failed:", err, zap.String("user_id", userID))
	}
	return true
}

// broadcastStatus informs every other connected peer of a presence change.
// Unscoped by design note: acceptable at current scale, the boundary to
// revisit before sharding sessions across processes.
func (r *SessionRegistry) broadcastStatus(userID, status string) {
	r.mu.RLock()
	peers := make([]*Session, 0, len(r.sessions))
	for id, sess := range r.sessions {
		if id != userID {
			peers = append(peers, sess)
		}
	}
	r.mu.RUnlock()

	resp := domain.WSResponse{
		Event: string(domain.EventUserStatus),
		Payload: map[string]interface{}{
			"user_id": userID,
			"status":  status,
		},
	}
	for _, peer := range peers {
		if err := peer.write(resp); err != nil {
			logger.Log.Debug("presence broadcast write", zap.String("to", peer.UserID), zap.Error(err))
		}
	}
}
