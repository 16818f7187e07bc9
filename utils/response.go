package utils

import (
	"matte/models"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorResponse writes the standard {"error": ...} body.
func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, models.ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: c.GetString("request_id"),
	})
}

func InternalServerErrorResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	ErrorResponse(c, http.StatusInternalServerError, models.ErrCodeInternal, message)
}

func TooManyRequestsResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusTooManyRequests, models.ErrCodeRateLimit, message)
}

// HandleServiceError answers with the status a ServiceError carries. Anything
// else, and any 5xx, is logged and answered with a generic message.
func HandleServiceError(c *gin.Context, err error, operation string) {
	serviceErr, ok := GetServiceError(err)
	if !ok || serviceErr.StatusCode >= http.StatusInternalServerError || serviceErr.StatusCode == 0 {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"user_id":    c.GetString("userID"),
			"operation":  operation,
		}).Errorf("%s failed: %v", operation, err)
		InternalServerErrorResponse(c, "")
		return
	}

	if serviceErr.Details != "" {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"operation":  operation,
			"details":    serviceErr.Details,
		}).Debug("Request rejected")
	}

	ErrorResponse(c, serviceErr.StatusCode, serviceErr.Code, serviceErr.Message)
}

// HealthCheckResponse creates a health check response
func HealthCheckResponse(services map[string]string, version, uptime string) models.HealthResponse {
	status := "healthy"
	for _, serviceStatus := range services {
		if serviceStatus != "healthy" {
			status = "unhealthy"
			break
		}
	}

	return models.HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Services:  services,
		Version:   version,
		Uptime:    uptime,
	}
}
