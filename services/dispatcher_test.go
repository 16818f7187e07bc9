package services

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"matte/models"
)

var dispatchTime = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func familySettings(contacts []models.EmergencyContact) *models.EmergencySettings {
	return &models.EmergencySettings{
		IsEnabled: true,
		Contacts:  contacts,
		AutoActions: models.AutoActions{
			CallEnabled:            true,
			MessageEnabled:         true,
			LocationSharingEnabled: true,
			CustomMessage:          "help",
		},
	}
}

func familyContacts() []models.EmergencyContact {
	return []models.EmergencyContact{
		{ID: "c1", Name: "Mother", Phone: "090-1111-2222", IsPrimary: true},
		{ID: "c2", Name: "Brother", Phone: "090-3333-4444"},
	}
}

func TestPlanAutoActionsFamilyScenario(t *testing.T) {
	settings := familySettings(familyContacts())
	emergency := &models.Emergency{ID: "e1", Location: &models.Location{Latitude: 35.0, Longitude: 139.0}}

	actions := PlanAutoActions(emergency, settings, dispatchTime)
	if len(actions) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(actions))
	}

	call, ok := actions[0].(models.CallAction)
	if !ok {
		t.Fatalf("expected call action first, got %T", actions[0])
	}
	if call.Target == nil || *call.Target != "090-1111-2222" {
		t.Errorf("unexpected call target: %v", call.Target)
	}

	sms, ok := actions[1].(models.SMSAction)
	if !ok {
		t.Fatalf("expected sms action second, got %T", actions[1])
	}
	if len(sms.Targets) != 2 || sms.Targets[0] != "090-1111-2222" || sms.Targets[1] != "090-3333-4444" {
		t.Errorf("unexpected sms targets: %v", sms.Targets)
	}
	if sms.Message != "help" {
		t.Errorf("expected custom message, got %q", sms.Message)
	}

	share, ok := actions[2].(models.LocationShareAction)
	if !ok {
		t.Fatalf("expected location_share action third, got %T", actions[2])
	}
	if len(share.Targets) != 2 {
		t.Errorf("expected 2 location targets, got %d", len(share.Targets))
	}
	if share.Location.Latitude != 35.0 || share.Location.Longitude != 139.0 {
		t.Errorf("unexpected location: %+v", share.Location)
	}

	for _, action := range actions {
		raw, _ := json.Marshal(action)
		var decoded map[string]interface{}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatal(err)
		}
		if decoded["status"] != "pending" {
			t.Errorf("%s: expected pending status, got %v", action.ActionType(), decoded["status"])
		}
		if decoded["type"] != string(action.ActionType()) {
			t.Errorf("type field %v does not match %s", decoded["type"], action.ActionType())
		}
	}
}

func TestPlanAutoActionsWithoutContacts(t *testing.T) {
	settings := familySettings([]models.EmergencyContact{})
	emergency := &models.Emergency{ID: "e1", Location: &models.Location{Latitude: 35.0, Longitude: 139.0}}

	actions := PlanAutoActions(emergency, settings, dispatchTime)
	if len(actions) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(actions))
	}

	raw, err := json.Marshal(actions[0])
	if err != nil {
		t.Fatal(err)
	}
	var call map[string]interface{}
	json.Unmarshal(raw, &call)
	if _, present := call["target"]; present {
		t.Errorf("call action without contacts should have no target, got %s", raw)
	}

	raw, err = json.Marshal(actions[1])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(raw, []byte(`"target":[]`)) {
		t.Errorf("sms action without contacts should target [], got %s", raw)
	}
}

func TestPlanAutoActionsPrimaryFallsBackToFirstContact(t *testing.T) {
	contacts := familyContacts()
	contacts[0].IsPrimary = false

	actions := PlanAutoActions(&models.Emergency{}, familySettings(contacts), dispatchTime)
	call := actions[0].(models.CallAction)
	if call.Target == nil || *call.Target != "090-1111-2222" {
		t.Errorf("expected first contact as call target, got %v", call.Target)
	}
}

func TestPlanAutoActionsAllDisabled(t *testing.T) {
	settings := familySettings(familyContacts())
	settings.AutoActions = models.AutoActions{}

	actions := PlanAutoActions(&models.Emergency{Location: &models.Location{}}, settings, dispatchTime)
	if actions == nil || len(actions) != 0 {
		t.Fatalf("expected empty non-nil action list, got %#v", actions)
	}

	raw, _ := json.Marshal(actions)
	if string(raw) != "[]" {
		t.Errorf("expected [], got %s", raw)
	}
}

func TestPlanAutoActionsSkipsShareWithoutLocation(t *testing.T) {
	actions := PlanAutoActions(&models.Emergency{}, familySettings(familyContacts()), dispatchTime)

	for _, action := range actions {
		if action.ActionType() == models.ActionTypeLocationShare {
			t.Fatal("location_share planned without a location")
		}
	}
	if len(actions) != 2 {
		t.Errorf("expected call and sms only, got %d actions", len(actions))
	}
}

func TestPlanAutoActionsDefaultMessage(t *testing.T) {
	settings := familySettings(familyContacts())
	settings.AutoActions.CustomMessage = ""

	actions := PlanAutoActions(&models.Emergency{}, settings, dispatchTime)
	sms := actions[1].(models.SMSAction)
	if sms.Message != models.DefaultEmergencyMessage {
		t.Errorf("expected default message, got %q", sms.Message)
	}
}

func TestPlanAutoActionsIsDeterministic(t *testing.T) {
	settings := familySettings(familyContacts())
	emergency := &models.Emergency{ID: "e1", Location: &models.Location{Latitude: 35.0, Longitude: 139.0}}

	first, err := json.Marshal(PlanAutoActions(emergency, settings, dispatchTime))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := json.Marshal(PlanAutoActions(emergency, settings, dispatchTime))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("run %d differs:\n%s\n%s", i, first, again)
		}
	}
}

func TestPlanAutoActionsDoesNotAliasSettings(t *testing.T) {
	settings := familySettings(familyContacts())
	emergency := &models.Emergency{Location: &models.Location{Latitude: 1, Longitude: 2}}

	actions := PlanAutoActions(emergency, settings, dispatchTime)
	settings.Contacts[0].Name = "Changed"
	emergency.Location.Latitude = 50

	share := actions[2].(models.LocationShareAction)
	if share.Targets[0].Name != "Mother" {
		t.Error("location share targets follow later settings edits")
	}
	if share.Location.Latitude != 1 {
		t.Error("location share follows later location edits")
	}
}
