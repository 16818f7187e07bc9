package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"matte/models"
	"matte/services"
	"matte/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxSOSBodyBytes = 1 << 20

type EmergencyController struct {
	emergencyService *services.EmergencyService
}

func NewEmergencyController(emergencyService *services.EmergencyService) *EmergencyController {
	return &EmergencyController{
		emergencyService: emergencyService,
	}
}

// HandleSOS serves every verb of /api/emergency/sos. The operation is picked
// by the action query parameter on GET and by the body's action on POST/PUT.
func (ec *EmergencyController) HandleSOS(c *gin.Context) {
	if c.Request.Method == http.MethodOptions {
		c.Status(http.StatusOK)
		return
	}

	var body models.SOSRequest
	if c.Request.Method == http.MethodPost || c.Request.Method == http.MethodPut {
		if err := readSOSBody(c, &body); err != nil {
			utils.HandleServiceError(c, utils.ErrInvalidRequestBody, "sos")
			return
		}
	}

	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		userID = strings.TrimSpace(body.UserID)
	}
	if userID == "" {
		utils.HandleServiceError(c, utils.ErrUserIDRequired, "sos")
		return
	}
	c.Set("userID", userID)

	switch c.Request.Method {
	case http.MethodGet:
		ec.handleGet(c, userID, c.Query("action"))
	case http.MethodPost:
		ec.handlePost(c, userID, body)
	case http.MethodPut:
		ec.handlePut(c, userID, body)
	default:
		utils.HandleServiceError(c, utils.ErrMethodNotAllowed, "sos")
	}
}

// =================== GET ===================

func (ec *EmergencyController) handleGet(c *gin.Context, userID, action string) {
	ctx := c.Request.Context()

	switch action {
	case "settings":
		settings, err := ec.emergencyService.GetSettings(ctx, userID)
		if err != nil {
			utils.HandleServiceError(c, err, "get settings")
			return
		}
		c.JSON(http.StatusOK, gin.H{"settings": settings})

	case "history":
		history, err := ec.emergencyService.GetHistory(ctx, userID)
		if err != nil {
			utils.HandleServiceError(c, err, "get history")
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": history})

	case "active":
		active, err := ec.emergencyService.GetActiveEmergency(ctx, userID)
		if err != nil {
			utils.HandleServiceError(c, err, "get active emergency")
			return
		}
		c.JSON(http.StatusOK, gin.H{"active": active})

	case "status":
		status, err := ec.emergencyService.GetStatus(ctx, userID)
		if err != nil {
			utils.HandleServiceError(c, err, "get status")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": status})

	default:
		utils.HandleServiceError(c, utils.ErrInvalidAction, "sos")
	}
}

// =================== POST ===================

func (ec *EmergencyController) handlePost(c *gin.Context, userID string, body models.SOSRequest) {
	action := sosAction(c, body)

	switch action {
	case models.SOSActionTrigger:
		var req models.TriggerSOSRequest
		if !decodeData(c, body.Data, &req) {
			return
		}

		result, err := ec.emergencyService.TriggerSOS(c.Request.Context(), userID, req)
		if err != nil {
			utils.HandleServiceError(c, err, "trigger sos")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"emergency": result.Emergency,
			"actions":   result.Actions,
			"message":   "Emergency SOS activated successfully",
		})

	case "update-settings":
		var update models.SettingsUpdate
		if !decodeData(c, body.Data, &update) {
			return
		}

		settings, err := ec.emergencyService.UpdateSettings(c.Request.Context(), userID, update)
		if err != nil {
			utils.HandleServiceError(c, err, "update settings")
			return
		}
		c.JSON(http.StatusOK, gin.H{"settings": settings})

	case "add-contact":
		var req models.AddContactRequest
		if !decodeData(c, body.Data, &req) {
			return
		}

		contact, err := ec.emergencyService.AddContact(c.Request.Context(), userID, req)
		if err != nil {
			utils.HandleServiceError(c, err, "add contact")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"contact": contact})

	default:
		logrus.Debugf("Unknown POST action %q for user %s", action, userID)
		utils.HandleServiceError(c, utils.ErrInvalidAction, "sos")
	}
}

// =================== PUT ===================

func (ec *EmergencyController) handlePut(c *gin.Context, userID string, body models.SOSRequest) {
	action := sosAction(c, body)

	switch action {
	case "update-contact":
		var req models.UpdateContactRequest
		if !decodeData(c, body.Data, &req) {
			return
		}

		contact, err := ec.emergencyService.UpdateContact(c.Request.Context(), userID, req)
		if err != nil {
			utils.HandleServiceError(c, err, "update contact")
			return
		}
		c.JSON(http.StatusOK, gin.H{"contact": contact})

	case models.SOSActionResolve:
		var req models.ResolveEmergencyRequest
		if !decodeData(c, body.Data, &req) {
			return
		}

		emergency, err := ec.emergencyService.ResolveEmergency(c.Request.Context(), userID, req)
		if err != nil {
			utils.HandleServiceError(c, err, "resolve emergency")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":   "Emergency resolved",
			"emergency": emergency,
		})

	default:
		logrus.Debugf("Unknown PUT action %q for user %s", action, userID)
		utils.HandleServiceError(c, utils.ErrInvalidAction, "sos")
	}
}

// =================== HELPER METHODS ===================

// readSOSBody decodes the request envelope. An empty body is not an error.
func readSOSBody(c *gin.Context, body *models.SOSRequest) error {
	if c.Request.Body == nil {
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSOSBodyBytes))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return json.Unmarshal(raw, body)
}

// sosAction prefers the body's action and falls back to the query string.
func sosAction(c *gin.Context, body models.SOSRequest) string {
	if body.Action != "" {
		return body.Action
	}
	return c.Query("action")
}

// decodeData unmarshals the data field into dst. Absent or null data leaves
// dst at its zero value. It answers 400 itself and returns false on failure.
func decodeData(c *gin.Context, data json.RawMessage, dst interface{}) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		logrus.Debugf("Invalid SOS data: %v", err)
		utils.HandleServiceError(c, utils.ErrInvalidRequestBody, "sos")
		return false
	}
	return true
}
