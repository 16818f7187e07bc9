package models

import "time"

type ActionType string

const (
	ActionTypeCall          ActionType = "call"
	ActionTypeSMS           ActionType = "sms"
	ActionTypeLocationShare ActionType = "location_share"
)

type ActionStatus string

const (
	ActionStatusPending ActionStatus = "pending"
)

// EmergencyAction is one planned notification. Each kind carries its own
// target shape; the wire field is always "target".
type EmergencyAction interface {
	ActionType() ActionType
}

// CallAction has a nil Target when the user has no contacts.
type CallAction struct {
	Type      ActionType   `json:"type"`
	Target    *string      `json:"target,omitempty"`
	Status    ActionStatus `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
}

func (CallAction) ActionType() ActionType { return ActionTypeCall }

type SMSAction struct {
	Type      ActionType   `json:"type"`
	Targets   []string     `json:"target"`
	Message   string       `json:"message"`
	Status    ActionStatus `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
}

func (SMSAction) ActionType() ActionType { return ActionTypeSMS }

type LocationShareAction struct {
	Type      ActionType         `json:"type"`
	Targets   []EmergencyContact `json:"target"`
	Location  Location           `json:"location"`
	Status    ActionStatus       `json:"status"`
	Timestamp time.Time          `json:"timestamp"`
}

func (LocationShareAction) ActionType() ActionType { return ActionTypeLocationShare }

// ActionPlan is what the trigger hands off for asynchronous delivery.
type ActionPlan struct {
	EmergencyID string            `json:"emergencyId"`
	UserID      string            `json:"userId"`
	Actions     []EmergencyAction `json:"actions"`
	PlannedAt   time.Time         `json:"plannedAt"`
}
