package handler

import (
	"errors"
	"net/http"

	"convo-chat/internal/services"
	"convo-chat/internal/transport/httpdto"
	convo_errors "convo-chat/pkg/errors"

	"github.com/gin-gonic/gin"
)

type TokenHandler struct {
	service *services.TokenService
}

func NewTokenHandler(service *services.TokenService) *TokenHandler {
	return &TokenHandler{service: service}
}

func (h *TokenHandler) Generate(c *gin.Context) {
	tok, err := h.service.Generate(c.Param("userId"))
	if errors.Is(err, convo_errors.ErrMissingCredentials) {
		c.String(http.StatusBadRequest, "User id, app id and server secret is required")
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.TokenResponse{Token: tok})
}
