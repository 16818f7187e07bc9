package models

import (
	"encoding/json"
	"time"
)

// TriggerMethod is the configured way a user raises an SOS from the device.
type TriggerMethod string

const (
	TriggerMethodButton       TriggerMethod = "button"
	TriggerMethodPowerButton  TriggerMethod = "powerButton"
	TriggerMethodVolumeButton TriggerMethod = "volumeButton"
	TriggerMethodShake        TriggerMethod = "shake"
	TriggerMethodVoice        TriggerMethod = "voice"
)

// EmergencyStatus is the lifecycle state of a single SOS episode.
type EmergencyStatus string

const (
	EmergencyStatusActive   EmergencyStatus = "active"
	EmergencyStatusResolved EmergencyStatus = "resolved"
)

const (
	DefaultEmergencyMessage = "緊急事態が発生しました。至急連絡してください。"
	DefaultTriggerMethod    = "manual"
	DefaultResolution       = "User resolved"
)

type EmergencySettings struct {
	IsEnabled     bool               `json:"isEnabled"`
	TriggerMethod TriggerMethod      `json:"triggerMethod"`
	Contacts      []EmergencyContact `json:"contacts"`
	AutoActions   AutoActions        `json:"autoActions"`
	QuietHours    *QuietHours        `json:"quietHours"`
}

type EmergencyContact struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Relationship string    `json:"relationship"`
	IsPrimary    bool      `json:"isPrimary"`
	CreatedAt    time.Time `json:"createdAt"`
}

type AutoActions struct {
	CallEnabled            bool   `json:"callEnabled"`
	MessageEnabled         bool   `json:"messageEnabled"`
	LocationSharingEnabled bool   `json:"locationSharingEnabled"`
	CustomMessage          string `json:"customMessage"`
}

// QuietHours is stored for callers; the SOS flow itself never suppresses anything.
type QuietHours struct {
	Enabled   bool   `json:"enabled"`
	StartTime string `json:"startTime" validate:"clock"`
	EndTime   string `json:"endTime" validate:"clock"`
}

// DefaultEmergencySettings is what a user gets before saving anything.
func DefaultEmergencySettings() *EmergencySettings {
	return &EmergencySettings{
		IsEnabled:     true,
		TriggerMethod: TriggerMethodButton,
		Contacts:      []EmergencyContact{},
		AutoActions: AutoActions{
			CallEnabled:            true,
			MessageEnabled:         true,
			LocationSharingEnabled: true,
			CustomMessage:          DefaultEmergencyMessage,
		},
		QuietHours: &QuietHours{
			Enabled:   false,
			StartTime: "22:00",
			EndTime:   "07:00",
		},
	}
}

// PrimaryContact returns the first contact flagged primary, else the first contact.
func (s *EmergencySettings) PrimaryContact() *EmergencyContact {
	for i := range s.Contacts {
		if s.Contacts[i].IsPrimary {
			return &s.Contacts[i]
		}
	}
	if len(s.Contacts) > 0 {
		return &s.Contacts[0]
	}
	return nil
}

// FindContact returns the index of the contact with the given id, or -1.
func (s *EmergencySettings) FindContact(id string) int {
	for i := range s.Contacts {
		if s.Contacts[i].ID == id {
			return i
		}
	}
	return -1
}

// Location accepts both the long and the short (lat/lng) coordinate keys.
type Location struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

func (l *Location) UnmarshalJSON(data []byte) error {
	var raw struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Lat       *float64 `json:"lat"`
		Lng       *float64 `json:"lng"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch {
	case raw.Latitude != nil:
		l.Latitude = *raw.Latitude
	case raw.Lat != nil:
		l.Latitude = *raw.Lat
	}
	switch {
	case raw.Longitude != nil:
		l.Longitude = *raw.Longitude
	case raw.Lng != nil:
		l.Longitude = *raw.Lng
	}
	return nil
}

// Emergency is one SOS episode. Contacts and AutoActions are copied from the
// settings at trigger time and never follow later edits.
type Emergency struct {
	ID            string             `json:"id"`
	UserID        string             `json:"userId"`
	TriggerMethod string             `json:"triggerMethod"`
	Location      *Location          `json:"location"`
	Timestamp     time.Time          `json:"timestamp"`
	Status        EmergencyStatus    `json:"status"`
	Contacts      []EmergencyContact `json:"contacts"`
	AutoActions   AutoActions        `json:"autoActions"`
	ResolvedAt    *time.Time         `json:"resolvedAt"`
	Resolution    *string            `json:"resolution"`
}

func (e *Emergency) IsActive() bool {
	return e.Status == EmergencyStatusActive
}

// Resolve stamps the emergency as resolved. It is a no-op on a resolved emergency.
func (e *Emergency) Resolve(resolution string, at time.Time) {
	if !e.IsActive() {
		return
	}
	if resolution == "" {
		resolution = DefaultResolution
	}
	e.Status = EmergencyStatusResolved
	e.ResolvedAt = &at
	e.Resolution = &resolution
}

type SOSStatus struct {
	IsEnabled          bool       `json:"isEnabled"`
	HasActiveEmergency bool       `json:"hasActiveEmergency"`
	LastTriggered      *time.Time `json:"lastTriggered"`
}

type TriggerResult struct {
	Emergency *Emergency        `json:"emergency"`
	Actions   []EmergencyAction `json:"actions"`
}

// =================== REQUEST MODELS ===================

// SOSRequest is the envelope every POST/PUT body arrives in.
// SOS actions that change emergency state.
const (
	SOSActionTrigger = "trigger"
	SOSActionResolve = "resolve-emergency"
)

type SOSRequest struct {
	Action string          `json:"action"`
	UserID string          `json:"userId"`
	Data   json.RawMessage `json:"data"`
}

type TriggerSOSRequest struct {
	TriggerMethod string    `json:"triggerMethod" validate:"omitempty,max=64"`
	Location      *Location `json:"location" validate:"omitempty"`
}

type AddContactRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Phone        string `json:"phone" validate:"required,phone"`
	Relationship string `json:"relationship" validate:"max=50"`
	IsPrimary    bool   `json:"isPrimary"`
}

// UpdateContactRequest carries only the fields present in the request body.
type UpdateContactRequest struct {
	ID           string  `json:"id" validate:"required"`
	Name         *string `json:"name" validate:"omitempty,min=1,max=100"`
	Phone        *string `json:"phone" validate:"omitempty,phone"`
	Relationship *string `json:"relationship" validate:"omitempty,max=50"`
	IsPrimary    *bool   `json:"isPrimary"`
}

// Apply merges the present fields into the contact; id and creation time stay.
func (r *UpdateContactRequest) Apply(contact EmergencyContact) EmergencyContact {
	if r.Name != nil {
		contact.Name = *r.Name
	}
	if r.Phone != nil {
		contact.Phone = *r.Phone
	}
	if r.Relationship != nil {
		contact.Relationship = *r.Relationship
	}
	if r.IsPrimary != nil {
		contact.IsPrimary = *r.IsPrimary
	}
	return contact
}

type ResolveEmergencyRequest struct {
	Resolution string `json:"resolution" validate:"max=500"`
}
