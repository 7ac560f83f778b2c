package handler

import (
	"net/http"

	"convo-chat/internal/services"
	"convo-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	service *services.AvatarService
}

func NewUploadHandler(service *services.AvatarService) *UploadHandler {
	return &UploadHandler{service: service}
}

// AvatarUploadURL hands out a presigned PUT for a new profile picture. The
// returned fileUrl is what clients send back as image or profilePicture.
func (h *UploadHandler) AvatarUploadURL(c *gin.Context) {
	var req httpdto.AvatarUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewStatusResponse("fileName and contentType are required", false))
		return
	}

	up, err := h.service.CreateUploadURL(c.Request.Context(), req.FileName, req.ContentType, req.Size)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.AvatarUploadResponse{
		UploadURL: up.UploadURL,
		FileURL:   up.FileURL,
		Key:       up.Key,
		Headers:   up.Headers,
	})
}
