package handler

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nvalmar/luma/internal/pkg/errcode"
	"github.com/nvalmar/luma/internal/pkg/response"
	"github.com/nvalmar/luma/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type sendMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message" binding:"required"`
}

func (h *ChatHandler) Send(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrEmptyMessage, "message is required")
		return
	}
	result, err := h.chat.SendMessage(c.Request.Context(), getUserID(c), req.ConversationID, req.Message)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// SendStream replies over server-sent events. Once the stream is open all
// errors travel in-band as event payloads.
func (h *ChatHandler) SendStream(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrEmptyMessage, "message is required")
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	w := c.Writer
	h.chat.SendMessageStream(c.Request.Context(), getUserID(c), req.ConversationID, req.Message, func(ev service.StreamEvent) {
		payload, err := json.Marshal(ev)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		w.Flush()
	})
}

func (h *ChatHandler) Conversations(c *gin.Context) {
	limit := parseUintQuery(c, "limit", 50)
	offset := parseUintQuery(c, "offset", 0)
	convs, err := h.chat.Conversations(c.Request.Context(), getUserID(c), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, convs)
}

func (h *ChatHandler) Messages(c *gin.Context) {
	msgs, err := h.chat.Messages(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, msgs)
}

func (h *ChatHandler) DeleteConversation(c *gin.Context) {
	if err := h.chat.DeleteConversation(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nil)
}

func parseUintQuery(c *gin.Context, key string, def uint) uint {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return def
	}
	return uint(v)
}
