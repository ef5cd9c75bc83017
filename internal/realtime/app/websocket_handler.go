package app

import (
	"context"
	"encoding/json"
	"time"

	"uthread_service/internal/realtime/domain"
	"uthread_service/internal/realtime/repository"
	"uthread_service/pkg/logger"
	"uthread_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// RealtimeWebsocketHandler owns the live connection lifecycle: auth gate,
// session registration, inbound action dispatch and teardown.
type RealtimeWebsocketHandler struct {
	registry  *SessionRegistry
	messageUC *SendMessageUseCase
	notifUC   *NotificationUseCase
	profiles  repository.ProfileRepository
}

// NewRealtimeWebsocketHandler create RealtimeWebsocketHandler
func NewRealtimeWebsocketHandler(
	registry *SessionRegistry,
	messageUC *SendMessageUseCase,
	notifUC *NotificationUseCase,
	profiles repository.ProfileRepository,
) *RealtimeWebsocketHandler {
	return &RealtimeWebsocketHandler{
		registry:  registry,
		messageUC: messageUC,
		notifUC:   notifUC,
		profiles:  profiles,
	}
}

// HandleConnection entry point for one authenticated WebSocket connection
func (h *RealtimeWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	tokenUser := conn.Locals(middlewares.TokenUserID)
	userID, ok := tokenUser.(string)
	if !ok || userID == "" {
		// reject before any session state exists; no session means this is
		// the connection's only writer, a direct write is safe here
		logger.Log.Warn("websocket connection without verified identity")
		if err := conn.WriteJSON(domain.WSResponse{
			Event: string(domain.EventMessageError),
			Error: "unauthorized",
		}); err != nil {
			logger.Log.Errorf("write message error:", err)
		}
		conn.Close()
		return
	}
	logger.Log.Info("websocket connected", zap.String("user_id", userID))

	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(context.Background())

	defer func() {
		ticker.Stop()
		logger.Log.Info("websocket close", zap.String("user_id", userID))
		// an evicted connection's teardown must not clear typing state the
		// user set through the replacement session
		if h.registry.Remove(userID, conn) {
			h.messageUC.ClearTyping(userID)
		}
		conn.Close()
		cancel()
	}()

	// fiber handles close/ping/pong internally, hook them out for logging
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	conn.SetPongHandler(func(appData string) error {
		logger.Log.Debug("received pong", zap.String("user_id", userID))
		return nil
	})

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	h.registry.Register(userID, conn)
	h.sendAuthSuccess(ctx, userID)

	go func() {
		for {
			select {
			case <-ticker.C:
				// WriteControl is safe alongside the registry's data writes
				deadline := time.Now().Add(time.Second)
				if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Info("connection closed", zap.String("user_id", userID))
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		h.execWebsocketAction(ctx, userID, mt, message)
	}
}

// action dispatch replies through the registry so error events stay
// serialized with concurrent live pushes to the same connection
func (h *RealtimeWebsocketHandler) execWebsocketAction(ctx context.Context, userID string, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, userID, msg)
	default:
		h.registry.PushError(userID, "unknown message type")
	}
}

func (h *RealtimeWebsocketHandler) textMessageAction(ctx context.Context, userID string, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		h.registry.PushError(userID, "invalid payload")
		return
	}

	switch req.Action {
	case string(domain.ActionSendMessage):
		// validation errors bounce back synchronously; the message_sent
		// ack for the success path is pushed by the use case
		if _, err := h.messageUC.SendMessage(ctx, userID, req.ReceiverID, req.Content, req.Media); err != nil {
			logger.Log.Error("websocket send failed",
				zap.String("user_id", userID), zap.String("err", err.Error()))
			h.registry.PushError(userID, err.Error())
		}

	case string(domain.ActionMarkRead):
		var err error
		switch {
		case req.ConversationID != "":
			err = h.messageUC.MarkConversationRead(ctx, userID, req.ConversationID)
		case req.MessageID != "":
			err = h.messageUC.MarkMessageRead(ctx, userID, req.MessageID)
		default:
			err = ErrConversationNotFound
		}
		if err != nil {
			h.registry.PushError(userID, err.Error())
		}

	case string(domain.ActionTyping):
		if req.ReceiverID != "" {
			h.messageUC.Typing(userID, req.ReceiverID, req.IsTyping)
		}

	default:
		h.registry.PushError(userID, "unknown action")
	}
}

// sendAuthSuccess confirms the registered session with the resolved own
// profile and the current unread-notification count. Goes through the
// registry so writes stay serialized with live pushes.
func (h *RealtimeWebsocketHandler) sendAuthSuccess(ctx context.Context, userID string) {
	payload := map[string]interface{}{
		"user_id": userID,
	}
	if profile, err := h.profiles.Resolve(ctx, userID); err == nil {
		payload["user"] = profile
	}
	if count, err := h.notifUC.UnreadCount(ctx, userID); err == nil {
		payload["unread_count"] = count
	}

	h.registry.Push(userID, domain.EventAuthSuccess, payload)
}
