package services

import (
	"context"
	"fmt"
	"matte/models"
	"matte/repositories"
	"matte/utils"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ActionSink receives planned actions for delivery outside the request path.
// Enqueue must not block; it reports false when the plan was not accepted.
type ActionSink interface {
	Enqueue(plan models.ActionPlan) bool
}

type EmergencyServiceConfig struct {
	// AllowOverwrite restores the legacy double-trigger behaviour: the previous
	// active emergency is dropped from the active slot instead of a Conflict.
	AllowOverwrite bool
}

// EmergencyService is the per-user SOS state machine:
// NoActiveEmergency --trigger--> Active --resolve--> NoActiveEmergency.
type EmergencyService struct {
	settingsRepo  *repositories.SettingsRepository
	activeRepo    *repositories.ActiveEmergencyRepository
	historyRepo   *repositories.HistoryRepository
	emergencyRepo *repositories.EmergencyRepository
	actionSink    ActionSink
	validator     *utils.ValidationService
	config        EmergencyServiceConfig

	locks *userLocks
	now   func() time.Time
}

func NewEmergencyService(
	settingsRepo *repositories.SettingsRepository,
	activeRepo *repositories.ActiveEmergencyRepository,
	historyRepo *repositories.HistoryRepository,
	emergencyRepo *repositories.EmergencyRepository,
	actionSink ActionSink,
	config EmergencyServiceConfig,
) *EmergencyService {
	return &EmergencyService{
		settingsRepo:  settingsRepo,
		activeRepo:    activeRepo,
		historyRepo:   historyRepo,
		emergencyRepo: emergencyRepo,
		actionSink:    actionSink,
		validator:     utils.NewValidationService(),
		config:        config,
		locks:         newUserLocks(),
		now:           time.Now,
	}
}

// =================== SETTINGS & CONTACTS ===================

func (es *EmergencyService) GetSettings(ctx context.Context, userID string) (*models.EmergencySettings, error) {
	return es.settingsRepo.Get(ctx, userID)
}

func (es *EmergencyService) UpdateSettings(ctx context.Context, userID string, update models.SettingsUpdate) (*models.EmergencySettings, error) {
	if err := es.validateSettingsUpdate(update); err != nil {
		return nil, err
	}

	if update.IsEmpty() {
		return es.settingsRepo.Get(ctx, userID)
	}

	unlock := es.locks.Lock(userID)
	defer unlock()

	settings, err := es.settingsRepo.Update(ctx, userID, update)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"is_enabled": settings.IsEnabled,
		"contacts":   len(settings.Contacts),
	}).Info("Emergency settings updated")

	return settings, nil
}

func (es *EmergencyService) AddContact(ctx context.Context, userID string, req models.AddContactRequest) (*models.EmergencyContact, error) {
	if err := es.validator.Validate(req); err != nil {
		return nil, err
	}

	unlock := es.locks.Lock(userID)
	defer unlock()

	contact, err := es.settingsRepo.AddContact(ctx, userID, models.EmergencyContact{
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		Relationship: req.Relationship,
		IsPrimary:    req.IsPrimary,
	})
	if err != nil {
		return nil, err
	}

	logrus.Infof("Emergency contact %s added for user %s", contact.ID, userID)
	return contact, nil
}

func (es *EmergencyService) UpdateContact(ctx context.Context, userID string, req models.UpdateContactRequest) (*models.EmergencyContact, error) {
	if err := es.validator.Validate(req); err != nil {
		return nil, err
	}

	unlock := es.locks.Lock(userID)
	defer unlock()

	return es.settingsRepo.UpdateContact(ctx, userID, req)
}

// =================== SOS STATE MACHINE ===================

// TriggerSOS moves the user from NoActiveEmergency to Active. The emergency
// snapshots the current contacts and auto-actions, is recorded in history
// straight away, and the planned actions are handed off without waiting.
func (es *EmergencyService) TriggerSOS(ctx context.Context, userID string, req models.TriggerSOSRequest) (*models.TriggerResult, error) {
	if err := es.validator.Validate(req); err != nil {
		return nil, err
	}

	unlock := es.locks.Lock(userID)
	defer unlock()

	settings, err := es.settingsRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !settings.IsEnabled {
		return nil, utils.ErrSOSDisabled
	}

	existing, err := es.activeRepo.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if !es.config.AllowOverwrite {
			return nil, utils.ErrEmergencyActive
		}
		logrus.Warnf("Overwriting active emergency %s for user %s", existing.ID, userID)
		if _, err := es.activeRepo.ClearActive(ctx, userID); err != nil {
			return nil, err
		}
	}

	emergency, err := es.newEmergency(userID, req, settings)
	if err != nil {
		return nil, err
	}

	if err := es.activeRepo.SetActive(ctx, userID, emergency); err != nil {
		return nil, err
	}

	if err := es.historyRepo.Append(ctx, userID, emergency); err != nil {
		es.rollbackTrigger(ctx, userID, emergency)
		return nil, err
	}

	actions := PlanAutoActions(emergency, settings, es.now())
	es.handOff(emergency, actions)

	logrus.WithFields(logrus.Fields{
		"user_id":        userID,
		"emergency_id":   emergency.ID,
		"trigger_method": emergency.TriggerMethod,
		"actions":        len(actions),
		"has_location":   emergency.Location != nil,
	}).Warn("Emergency SOS triggered")

	return &models.TriggerResult{
		Emergency: emergency,
		Actions:   actions,
	}, nil
}

// ResolveEmergency moves the user from Active back to NoActiveEmergency. The
// canonical record is updated in place so the history entry reflects it.
func (es *EmergencyService) ResolveEmergency(ctx context.Context, userID string, req models.ResolveEmergencyRequest) (*models.Emergency, error) {
	if err := es.validator.Validate(req); err != nil {
		return nil, err
	}

	unlock := es.locks.Lock(userID)
	defer unlock()

	emergency, err := es.activeRepo.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if emergency == nil {
		return nil, utils.ErrNoActiveEmergency
	}

	emergency.Resolve(strings.TrimSpace(req.Resolution), es.now())

	if err := es.emergencyRepo.Save(ctx, emergency); err != nil {
		return nil, err
	}
	if _, err := es.activeRepo.ClearActive(ctx, userID); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":      userID,
		"emergency_id": emergency.ID,
		"resolution":   *emergency.Resolution,
		"duration":     utils.FormatDuration(emergency.ResolvedAt.Sub(emergency.Timestamp)),
	}).Info("Emergency resolved")

	return emergency, nil
}

func (es *EmergencyService) GetStatus(ctx context.Context, userID string) (*models.SOSStatus, error) {
	settings, err := es.settingsRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	active, err := es.activeRepo.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	latest, err := es.historyRepo.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}

	status := &models.SOSStatus{
		IsEnabled:          settings.IsEnabled,
		HasActiveEmergency: active != nil,
	}
	if latest != nil {
		triggered := latest.Timestamp
		status.LastTriggered = &triggered
	}
	return status, nil
}

func (es *EmergencyService) GetHistory(ctx context.Context, userID string) ([]models.Emergency, error) {
	return es.historyRepo.List(ctx, userID)
}

func (es *EmergencyService) GetActiveEmergency(ctx context.Context, userID string) (*models.Emergency, error) {
	return es.activeRepo.GetActive(ctx, userID)
}

// =================== HELPER METHODS ===================

func (es *EmergencyService) newEmergency(userID string, req models.TriggerSOSRequest, settings *models.EmergencySettings) (*models.Emergency, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, utils.NewInternalError(fmt.Sprintf("failed to generate emergency id: %v", err))
	}

	triggerMethod := strings.TrimSpace(req.TriggerMethod)
	if triggerMethod == "" {
		triggerMethod = models.DefaultTriggerMethod
	}

	var location *models.Location
	if req.Location != nil {
		loc := *req.Location
		location = &loc
	}

	return &models.Emergency{
		ID:            id.String(),
		UserID:        userID,
		TriggerMethod: triggerMethod,
		Location:      location,
		Timestamp:     es.now(),
		Status:        models.EmergencyStatusActive,
		Contacts:      append([]models.EmergencyContact{}, settings.Contacts...),
		AutoActions:   settings.AutoActions,
	}, nil
}

// rollbackTrigger undoes SetActive after a later step of the trigger failed.
func (es *EmergencyService) rollbackTrigger(ctx context.Context, userID string, emergency *models.Emergency) {
	if _, err := es.activeRepo.ClearActive(ctx, userID); err != nil {
		logrus.Errorf("Failed to release active slot for emergency %s: %v", emergency.ID, err)
	}
	if err := es.emergencyRepo.Delete(ctx, emergency.ID); err != nil {
		logrus.Errorf("Failed to drop emergency %s: %v", emergency.ID, err)
	}
}

func (es *EmergencyService) handOff(emergency *models.Emergency, actions []models.EmergencyAction) {
	if es.actionSink == nil || len(actions) == 0 {
		return
	}

	accepted := es.actionSink.Enqueue(models.ActionPlan{
		EmergencyID: emergency.ID,
		UserID:      emergency.UserID,
		Actions:     actions,
		PlannedAt:   es.now(),
	})
	if !accepted {
		logrus.Warnf("Action plan for emergency %s was not queued", emergency.ID)
	}
}

func (es *EmergencyService) validateSettingsUpdate(update models.SettingsUpdate) error {
	if update.TriggerMethod != nil {
		if err := es.validator.ValidateVar(string(*update.TriggerMethod), "triggerMethod", "oneof=button powerButton volumeButton shake voice"); err != nil {
			return err
		}
	}

	if update.QuietHours != nil {
		if err := es.validator.Validate(update.QuietHours); err != nil {
			return err
		}
	}

	if update.Contacts != nil {
		seen := make(map[string]bool, len(*update.Contacts))
		for _, contact := range *update.Contacts {
			if contact.ID == "" {
				continue
			}
			if seen[contact.ID] {
				return utils.NewValidationError(fmt.Sprintf("Duplicate contact id %s", contact.ID))
			}
			seen[contact.ID] = true
		}
	}

	return nil
}
