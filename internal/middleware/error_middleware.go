package middleware

import (
	"net/http"

	"convo-chat/internal/transport/httpdto"
	convo_errors "convo-chat/pkg/errors"
	"convo-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler answers for errors handlers pushed with c.Error. Sentinels from
// pkg/errors pick the status; anything else is a 500 whose cause is logged
// but not echoed.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := convo_errors.HTTPStatus(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			msg = "Internal server error"
		}
		if l != nil {
			l.WithContext(c.Request.Context()).Error("request error",
				zap.String("route", c.FullPath()),
				zap.Int("status", status),
				zap.Error(err))
		}
		c.JSON(status, httpdto.NewStatusResponse(msg, false))
	}
}
