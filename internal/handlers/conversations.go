package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"prompt-image-studio/internal/models"
	"prompt-image-studio/internal/services"
)

type ConversationHandler struct {
	conversations *services.ConversationService
}

func NewConversationHandler(conversations *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// CreateConversation godoc
// @Summary Create a conversation
// @Tags    conversations
// @Accept  json
// @Produce json
// @Param   request body models.CreateConversationRequest false "Optional title or first prompt"
// @Success 201 {object} models.Conversation
// @Router  /conversations [post]
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	var req models.CreateConversationRequest
	// an empty body is a valid request for an untitled conversation
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body", err)
			return
		}
	}

	conv, err := h.conversations.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (h *ConversationHandler) ListConversations(c *gin.Context) {
	convs, err := h.conversations.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	c.JSON(http.StatusOK, models.ConversationListResponse{Conversations: convs})
}

func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conv, err := h.conversations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// ListMessages godoc
// @Summary Messages of a conversation, oldest first
// @Tags    conversations
// @Produce json
// @Param   id path string true "Conversation ID"
// @Success 200 {object} models.MessageListResponse
// @Failure 404 {object} models.ErrorResponse
// @Router  /conversations/{id}/messages [get]
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	msgs, err := h.conversations.Messages(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, models.MessageListResponse{Messages: msgs})
}
