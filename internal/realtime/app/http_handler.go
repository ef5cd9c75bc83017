package app

import (
	"errors"
	"strings"

	"uthread_service/internal/realtime/domain"
	"uthread_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 50
)

// PaginationMeta list-response paging block
type PaginationMeta struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Pages   int   `json:"pages"`
	HasMore bool  `json:"hasMore"`
}

func buildPaginationMeta(page, limit int, total int64) PaginationMeta {
	pages := 0
	if total > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PaginationMeta{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   pages,
		HasMore: page < pages,
	}
}

func parsePaging(c *fiber.Ctx) (int, int) {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", defaultPageLimit)
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

// MessagingHTTPHandler REST surface over the same use cases the
// WebSocket path drives
type MessagingHTTPHandler struct {
	registry  *SessionRegistry
	messageUC *SendMessageUseCase
	notifUC   *NotificationUseCase
	pushUC    *PushUseCase
}

// NewMessagingHTTPHandler create MessagingHTTPHandler
func NewMessagingHTTPHandler(
	registry *SessionRegistry,
	messageUC *SendMessageUseCase,
	notifUC *NotificationUseCase,
	pushUC *PushUseCase,
) *MessagingHTTPHandler {
	return &MessagingHTTPHandler{
		registry:  registry,
		messageUC: messageUC,
		notifUC:   notifUC,
		pushUC:    pushUC,
	}
}

func currentUserID(c *fiber.Ctx) string {
	if id, ok := c.Locals(middlewares.TokenUserID).(string); ok {
		return id
	}
	return ""
}

// statusOf maps the use-case error taxonomy onto HTTP statuses
func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrMissingReceiver),
		errors.Is(err, ErrInvalidSubscription):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrConversationNotFound),
		errors.Is(err, ErrMessageNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrNotParticipant):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusOf(err)).JSON(fiber.Map{"error": err.Error()})
}

// ListConversations list the requester's conversations
// @Summary List conversations
// @Description Participant-scoped conversation list, newest activity first
// @Tags Messaging
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Router /conversations [get]
func (h *MessagingHTTPHandler) ListConversations(c *fiber.Ctx) error {
	userID := currentUserID(c)
	page, limit := parsePaging(c)

	views, total, err := h.messageUC.ListConversations(c.Context(), userID, page, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"conversations": views,
		"meta":          buildPaginationMeta(page, limit, total),
	})
}

// GetConversation fetch one conversation
// @Summary Get conversation
// @Tags Messaging
// @Param id path string true "Conversation ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /conversations/{id} [get]
func (h *MessagingHTTPHandler) GetConversation(c *fiber.Ctx) error {
	view, err := h.messageUC.GetConversation(c.Context(), currentUserID(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"conversation": view})
}

// GetMessages message history of one conversation
// @Summary Get message history
// @Tags Messaging
// @Param id path string true "Conversation ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Router /conversations/{id}/messages [get]
func (h *MessagingHTTPHandler) GetMessages(c *fiber.Ctx) error {
	userID := currentUserID(c)
	page, limit := parsePaging(c)

	msgs, total, err := h.messageUC.History(c.Context(), userID, c.Params("id"), page, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"messages": msgs,
		"meta":     buildPaginationMeta(page, limit, total),
	})
}

type sendMessageRequest struct {
	ReceiverID string                   `json:"receiver_id"`
	Content    string                   `json:"content"`
	Media      []domain.MediaAttachment `json:"media,omitempty"`
}

// SendMessage send a direct message over the request/response channel.
// Same router as the WebSocket path: persistence always, live delivery
// when the receiver is connected.
// @Summary Send a direct message
// @Tags Messaging
// @Param payload body sendMessageRequest true "Message"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /messages [post]
func (h *MessagingHTTPHandler) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}

	msg, err := h.messageUC.SendMessage(c.Context(), currentUserID(c), req.ReceiverID, req.Content, req.Media)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msg})
}

// MarkConversationRead mark the whole conversation read for the requester
// @Summary Mark conversation read
// @Tags Messaging
// @Param id path string true "Conversation ID"
// @Success 200 {object} map[string]interface{}
// @Router /conversations/{id}/read [post]
func (h *MessagingHTTPHandler) MarkConversationRead(c *fiber.Ctx) error {
	if err := h.messageUC.MarkConversationRead(c.Context(), currentUserID(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// TogglePin flip the requester's pin flag
// @Summary Toggle conversation pin
// @Tags Messaging
// @Param id path string true "Conversation ID"
// @Success 200 {object} map[string]interface{}
// @Router /conversations/{id}/pin [post]
func (h *MessagingHTTPHandler) TogglePin(c *fiber.Ctx) error {
	pinned, err := h.messageUC.TogglePin(c.Context(), currentUserID(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"pinned": pinned})
}

// ToggleMute flip the requester's mute flag
// @Summary Toggle conversation mute
// @Tags Messaging
// @Param id path string true "Conversation ID"
// @Success 200 {object} map[string]interface{}
// @Router /conversations/{id}/mute [post]
func (h *MessagingHTTPHandler) ToggleMute(c *fiber.Ctx) error {
	muted, err := h.messageUC.ToggleMute(c.Context(), currentUserID(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"muted": muted})
}

// DeleteConversation delete the whole conversation document
// @Summary Delete conversation
// @Tags Messaging
// @Param id path string true "Conversation ID"
// @Success 200 {object} map[string]interface{}
// @Router /conversations/{id} [delete]
func (h *MessagingHTTPHandler) DeleteConversation(c *fiber.Ctx) error {
	if err := h.messageUC.DeleteConversation(c.Context(), currentUserID(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// PresenceBatch resolve online status for a comma-separated id list
// @Summary Batch presence lookup
// @Tags Presence
// @Param ids query string true "Comma-separated user ids"
// @Success 200 {object} map[string]interface{}
// @Router /presence [get]
func (h *MessagingHTTPHandler) PresenceBatch(c *fiber.Ctx) error {
	raw := c.Query("ids")
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return c.JSON(fiber.Map{"statuses": h.registry.OnlineStatusBatch(ids)})
}

// NotificationUnreadCount current unread-notification count
// @Summary Unread notification count
// @Tags Notifications
// @Success 200 {object} map[string]interface{}
// @Router /notifications/unread-count [get]
func (h *MessagingHTTPHandler) NotificationUnreadCount(c *fiber.Ctx) error {
	count, err := h.notifUC.UnreadCount(c.Context(), currentUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

// MarkNotificationsRead mark every notification read for the requester
// @Summary Mark notifications read
// @Tags Notifications
// @Success 200 {object} map[string]interface{}
// @Router /notifications/read [post]
func (h *MessagingHTTPHandler) MarkNotificationsRead(c *fiber.Ctx) error {
	if err := h.notifUC.MarkAllRead(c.Context(), currentUserID(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// PushPublicKey VAPID public key for client-side subscription
// @Summary Push public key
// @Tags Push
// @Success 200 {object} map[string]interface{}
// @Router /push/public-key [get]
func (h *MessagingHTTPHandler) PushPublicKey(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"publicKey": h.pushUC.PublicKey()})
}

// PushSubscribe register a push endpoint for the requester
// @Summary Subscribe to push
// @Tags Push
// @Param payload body domain.PushSubscription true "Subscription"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /push/subscribe [post]
func (h *MessagingHTTPHandler) PushSubscribe(c *fiber.Ctx) error {
	var sub domain.PushSubscription
	if err := c.BodyParser(&sub); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}

	if err := h.pushUC.Subscribe(c.Context(), currentUserID(c), sub); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true})
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// PushUnsubscribe remove a push endpoint for the requester
// @Summary Unsubscribe from push
// @Tags Push
// @Param payload body unsubscribeRequest true "Endpoint"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /push/unsubscribe [post]
func (h *MessagingHTTPHandler) PushUnsubscribe(c *fiber.Ctx) error {
	var req unsubscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}

	removed, err := h.pushUC.Unsubscribe(c.Context(), currentUserID(c), req.Endpoint)
	if err != nil {
		return fail(c, err)
	}
	if !removed {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "subscription not found"})
	}
	return c.JSON(fiber.Map{"success": true})
}
