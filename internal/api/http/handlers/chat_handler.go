package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/chat"
)

// ChatHandler exposes the conversational assistant. Error responses
// keep the reply shape so clients can always render a bubble.
type ChatHandler struct {
	manager      *chat.Manager
	historyLimit int
}

// NewChatHandler constructs handler.
func NewChatHandler(manager *chat.Manager, historyLimit int) *ChatHandler {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &ChatHandler{manager: manager, historyLimit: historyLimit}
}

// StartSession handles POST /chat/sessions.
func (h *ChatHandler) StartSession(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	session, err := h.manager.StartSession(c.Context(), user.ID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.ChatSessionResponse{
		SessionID: session.ID,
		CreatedAt: session.CreatedAt,
	})
}

// Message handles POST /chat.
func (h *ChatHandler) Message(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.ChatMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.SessionID == "" || strings.TrimSpace(req.Message) == "" {
		return fiber.NewError(http.StatusBadRequest, "sessionId and message required")
	}

	reply, err := h.manager.HandleTurn(c.UserContext(), user, req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			return c.Status(http.StatusNotFound).JSON(dto.ChatReplyResponse{Reply: "Chat session not found."})
		}
		return c.Status(http.StatusInternalServerError).JSON(dto.ChatReplyResponse{Reply: "Internal chatbot error."})
	}
	return c.JSON(dto.ChatReplyResponse{Reply: reply})
}

// History handles GET /chat/sessions/:id/messages.
func (h *ChatHandler) History(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	limit := c.QueryInt("limit", h.historyLimit)
	messages, err := h.manager.History(c.Context(), user, c.Params("id"), limit)
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			return fiber.NewError(http.StatusNotFound, "chat session not found")
		}
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromChatMessages(messages)})
}
