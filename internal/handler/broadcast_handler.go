package handler

import (
	"context"
	"errors"
	"net/http"

	"convo-chat/internal/services"
	"convo-chat/internal/transport/httpdto"
	convo_errors "convo-chat/pkg/errors"

	"github.com/gin-gonic/gin"
)

const broadcastFieldsRequired = "Both message and senderId are required."

type BroadcastHandler struct {
	service *services.BroadcastService
}

func NewBroadcastHandler(service *services.BroadcastService) *BroadcastHandler {
	return &BroadcastHandler{service: service}
}

// Broadcast runs the whole fan-out before answering. The request context is
// detached so a client that hangs up does not cut the run short.
func (h *BroadcastHandler) Broadcast(c *gin.Context) {
	var req httpdto.BroadcastRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Message == "" || req.SenderID == 0 {
		c.JSON(http.StatusBadRequest, httpdto.BroadcastResponse{Message: broadcastFieldsRequired})
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	report, err := h.service.Broadcast(ctx, req.ToInput())
	if errors.Is(err, convo_errors.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, httpdto.BroadcastResponse{Message: broadcastFieldsRequired})
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	if report.Message != services.BroadcastCompleted {
		c.JSON(http.StatusOK, httpdto.BroadcastResponse{Message: report.Message})
		return
	}
	c.JSON(http.StatusOK, httpdto.BroadcastResponse{Message: report.Message, Status: true, Report: report})
}
