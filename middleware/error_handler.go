package middleware

import (
	"net/http"
	"runtime/debug"

	"matte/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorHandler turns panics into the standard error body.
type ErrorHandler struct {
	environment string
	logger      *logrus.Logger
}

func NewErrorHandler(environment string, logger *logrus.Logger) *ErrorHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ErrorHandler{
		environment: environment,
		logger:      logger,
	}
}

// Handle returns the error handling middleware
func (eh *ErrorHandler) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				eh.handlePanic(c, err)
			}
		}()

		c.Next()
	}
}

func (eh *ErrorHandler) handlePanic(c *gin.Context, err interface{}) {
	fields := logrus.Fields{
		"panic":      err,
		"request_id": c.GetString("request_id"),
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"user_id":    c.GetString("userID"),
	}
	if eh.environment == "development" {
		fields["stack"] = string(debug.Stack())
	}
	eh.logger.WithFields(fields).Error("Panic recovered")

	c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:     "Internal server error",
		Code:      models.ErrCodeInternal,
		RequestID: c.GetString("request_id"),
	})
}
