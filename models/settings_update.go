package models

import (
	"encoding/json"
	"fmt"
)

// SettingsUpdate is a shallow patch: every top-level key present in the request
// replaces the stored field as a whole, absent keys are left alone.
type SettingsUpdate struct {
	IsEnabled     *bool
	TriggerMethod *TriggerMethod
	Contacts      *[]EmergencyContact
	AutoActions   *AutoActions

	// QuietHoursSet distinguishes "quietHours": null (clear) from an absent key.
	QuietHoursSet bool
	QuietHours    *QuietHours
}

func (u *SettingsUpdate) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	for key, raw := range fields {
		var err error
		switch key {
		case "isEnabled":
			err = json.Unmarshal(raw, &u.IsEnabled)
		case "triggerMethod":
			err = json.Unmarshal(raw, &u.TriggerMethod)
		case "contacts":
			var contacts []EmergencyContact
			if err = json.Unmarshal(raw, &contacts); err == nil {
				if contacts == nil {
					contacts = []EmergencyContact{}
				}
				u.Contacts = &contacts
			}
		case "autoActions":
			err = json.Unmarshal(raw, &u.AutoActions)
		case "quietHours":
			u.QuietHoursSet = true
			err = json.Unmarshal(raw, &u.QuietHours)
		}
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	return nil
}

// IsEmpty reports whether the patch would change nothing.
func (u *SettingsUpdate) IsEmpty() bool {
	return u.IsEnabled == nil && u.TriggerMethod == nil && u.Contacts == nil &&
		u.AutoActions == nil && !u.QuietHoursSet
}

// Apply returns a copy of settings with the patch merged in.
func (u *SettingsUpdate) Apply(settings EmergencySettings) EmergencySettings {
	if u.IsEnabled != nil {
		settings.IsEnabled = *u.IsEnabled
	}
	if u.TriggerMethod != nil {
		settings.TriggerMethod = *u.TriggerMethod
	}
	if u.Contacts != nil {
		settings.Contacts = append([]EmergencyContact{}, (*u.Contacts)...)
	}
	if u.AutoActions != nil {
		settings.AutoActions = *u.AutoActions
	}
	if u.QuietHoursSet {
		if u.QuietHours == nil {
			settings.QuietHours = nil
		} else {
			qh := *u.QuietHours
			settings.QuietHours = &qh
		}
	}
	return settings
}
