package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"matte/models"

	"github.com/gin-gonic/gin"
)

func TestPhoneValidation(t *testing.T) {
	vs := NewValidationService()

	valid := []string{"090-1111-2222", "+81 90 1111 2222", "(03) 1234.5678", "110"}
	invalid := []string{"", "call me", "12", "+1234567890123456", "090_1111"}

	for _, phone := range valid {
		if err := vs.ValidateVar(phone, "phone", "phone"); err != nil {
			t.Errorf("%q rejected: %v", phone, err)
		}
	}
	for _, phone := range invalid {
		if err := vs.ValidateVar(phone, "phone", "phone"); err == nil {
			t.Errorf("%q accepted", phone)
		}
	}
}

func TestClockValidation(t *testing.T) {
	vs := NewValidationService()

	if err := vs.Validate(models.QuietHours{StartTime: "22:00", EndTime: "07:00"}); err != nil {
		t.Errorf("valid quiet hours rejected: %v", err)
	}

	err := vs.Validate(models.QuietHours{StartTime: "24:00", EndTime: "7:00"})
	serviceErr, ok := GetServiceError(err)
	if !ok || serviceErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected validation error, got %v", err)
	}
	if serviceErr.Message != "StartTime must be a HH:MM time" {
		t.Errorf("unexpected message %q", serviceErr.Message)
	}
}

func TestValidateVarOneOf(t *testing.T) {
	vs := NewValidationService()

	err := vs.ValidateVar("wink", "triggerMethod", "oneof=button voice")
	serviceErr, _ := GetServiceError(err)
	if serviceErr.Message != "triggerMethod must be one of: button voice" {
		t.Errorf("unexpected message %q", serviceErr.Message)
	}
}

func TestSentinelsMatchWithErrorsIs(t *testing.T) {
	wrapped := WrapStorageError(ErrContactNotFound, "update contact")
	if !errors.Is(wrapped, ErrContactNotFound) {
		t.Error("WrapStorageError hid a service error")
	}
	if errors.Is(ErrContactNotFound, ErrNoActiveEmergency) {
		t.Error("different not-found sentinels matched")
	}

	cause := errors.New("connection refused")
	storageErr := WrapStorageError(cause, "get settings")
	if !errors.Is(storageErr, cause) {
		t.Error("storage error lost its cause")
	}
	if WrapStorageError(nil, "noop") != nil {
		t.Error("wrapping nil should stay nil")
	}
}

func TestHandleServiceErrorHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"not found", ErrNoActiveEmergency, 404, `{"error":"No active emergency found","code":"NOT_FOUND"}`},
		{"conflict", ErrEmergencyActive, 409, `{"error":"An emergency is already active","code":"CONFLICT"}`},
		{"storage", NewStorageError("get settings", errors.New("secret dsn")), 500, `{"error":"Internal server error","code":"INTERNAL_ERROR"}`},
		{"plain error", errors.New("boom"), 500, `{"error":"Internal server error","code":"INTERNAL_ERROR"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleServiceError(c, tt.err, "test")

			if w.Code != tt.status || w.Body.String() != tt.body {
				t.Errorf("expected %d %s, got %d %s", tt.status, tt.body, w.Code, w.Body.String())
			}
		})
	}
}

func TestMaskPhoneNumber(t *testing.T) {
	if got := MaskPhoneNumber("090-1111-2222"); got != "*******2222" {
		t.Errorf("unexpected mask %q", got)
	}
	if got := MaskPhoneNumber("11"); got != "**" {
		t.Errorf("unexpected mask %q", got)
	}
}
