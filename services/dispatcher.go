package services

import (
	"matte/models"
	"time"
)

// PlanAutoActions decides which notifications an emergency should fire. It
// only plans; nothing is sent. The result depends on its inputs alone, with
// every action stamped at the given dispatch time and returned in the fixed
// order call, sms, location_share.
func PlanAutoActions(emergency *models.Emergency, settings *models.EmergencySettings, at time.Time) []models.EmergencyAction {
	actions := []models.EmergencyAction{}
	auto := settings.AutoActions

	if auto.CallEnabled {
		call := models.CallAction{
			Type:      models.ActionTypeCall,
			Status:    models.ActionStatusPending,
			Timestamp: at,
		}
		if primary := settings.PrimaryContact(); primary != nil {
			phone := primary.Phone
			call.Target = &phone
		}
		actions = append(actions, call)
	}

	if auto.MessageEnabled {
		phones := make([]string, 0, len(settings.Contacts))
		for _, contact := range settings.Contacts {
			phones = append(phones, contact.Phone)
		}

		message := auto.CustomMessage
		if message == "" {
			message = models.DefaultEmergencyMessage
		}

		actions = append(actions, models.SMSAction{
			Type:      models.ActionTypeSMS,
			Targets:   phones,
			Message:   message,
			Status:    models.ActionStatusPending,
			Timestamp: at,
		})
	}

	// No location, no share: skipped silently whatever the toggle says.
	if auto.LocationSharingEnabled && emergency.Location != nil {
		actions = append(actions, models.LocationShareAction{
			Type:      models.ActionTypeLocationShare,
			Targets:   append([]models.EmergencyContact{}, settings.Contacts...),
			Location:  *emergency.Location,
			Status:    models.ActionStatusPending,
			Timestamp: at,
		})
	}

	return actions
}
