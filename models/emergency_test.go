package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestLocationAcceptsShortAndLongKeys(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		lat, lng float64
	}{
		{"short keys", `{"lat":35.0,"lng":139.0}`, 35.0, 139.0},
		{"long keys", `{"latitude":-33.5,"longitude":151.2}`, -33.5, 151.2},
		{"long keys win", `{"lat":1,"lng":2,"latitude":3,"longitude":4}`, 3, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var loc Location
			if err := json.Unmarshal([]byte(tt.input), &loc); err != nil {
				t.Fatal(err)
			}
			if loc.Latitude != tt.lat || loc.Longitude != tt.lng {
				t.Errorf("expected (%v, %v), got %+v", tt.lat, tt.lng, loc)
			}
		})
	}

	raw, _ := json.Marshal(Location{Latitude: 35, Longitude: 139})
	if string(raw) != `{"latitude":35,"longitude":139}` {
		t.Errorf("unexpected encoding %s", raw)
	}
}

func TestEmergencyResolve(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	emergency := &Emergency{Status: EmergencyStatusActive}

	emergency.Resolve("", at)
	if emergency.IsActive() || *emergency.Resolution != DefaultResolution || !emergency.ResolvedAt.Equal(at) {
		t.Errorf("unexpected resolved emergency %+v", emergency)
	}

	emergency.Resolve("again", at.Add(time.Hour))
	if *emergency.Resolution != DefaultResolution || !emergency.ResolvedAt.Equal(at) {
		t.Error("second resolve changed the record")
	}
}

func TestPrimaryContact(t *testing.T) {
	settings := &EmergencySettings{}
	if settings.PrimaryContact() != nil {
		t.Error("expected no primary contact")
	}

	settings.Contacts = []EmergencyContact{{ID: "a"}, {ID: "b", IsPrimary: true}}
	if got := settings.PrimaryContact(); got.ID != "b" {
		t.Errorf("expected flagged contact, got %s", got.ID)
	}

	settings.Contacts[1].IsPrimary = false
	if got := settings.PrimaryContact(); got.ID != "a" {
		t.Errorf("expected first contact, got %s", got.ID)
	}

	if settings.FindContact("b") != 1 || settings.FindContact("z") != -1 {
		t.Error("FindContact returned the wrong index")
	}
}

func TestSettingsUpdateDecoding(t *testing.T) {
	var update SettingsUpdate
	if err := json.Unmarshal([]byte(`{"isEnabled":false,"quietHours":null,"unknown":1}`), &update); err != nil {
		t.Fatal(err)
	}
	if update.IsEnabled == nil || *update.IsEnabled {
		t.Error("isEnabled not decoded")
	}
	if !update.QuietHoursSet || update.QuietHours != nil {
		t.Error("null quietHours should be recorded as a clear")
	}
	if update.Contacts != nil || update.AutoActions != nil || update.TriggerMethod != nil {
		t.Error("absent keys decoded as present")
	}

	merged := update.Apply(*DefaultEmergencySettings())
	if merged.IsEnabled || merged.QuietHours != nil {
		t.Errorf("unexpected merge %+v", merged)
	}
	if merged.AutoActions.CustomMessage != DefaultEmergencyMessage {
		t.Error("untouched field changed")
	}

	var empty SettingsUpdate
	if err := json.Unmarshal([]byte(`{}`), &empty); err != nil {
		t.Fatal(err)
	}
	if !empty.IsEmpty() {
		t.Error("empty object should be an empty update")
	}

	var contacts SettingsUpdate
	json.Unmarshal([]byte(`{"contacts":null}`), &contacts)
	if contacts.Contacts == nil || len(*contacts.Contacts) != 0 {
		t.Error("null contacts should clear the list")
	}

	var bad SettingsUpdate
	if err := json.Unmarshal([]byte(`{"isEnabled":"yes"}`), &bad); err == nil {
		t.Error("expected error for wrong field type")
	}
}

func TestUpdateContactRequestApply(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	contact := EmergencyContact{ID: "c1", Name: "Mother", Phone: "090-1111-2222", CreatedAt: created}

	primary := true
	name := "Mom"
	req := UpdateContactRequest{ID: "other", Name: &name, IsPrimary: &primary}

	updated := req.Apply(contact)
	if updated.ID != "c1" || !updated.CreatedAt.Equal(created) {
		t.Error("immutable fields changed")
	}
	if updated.Name != "Mom" || !updated.IsPrimary || updated.Phone != "090-1111-2222" {
		t.Errorf("unexpected merge %+v", updated)
	}
}
