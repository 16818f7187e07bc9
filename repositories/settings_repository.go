package repositories

import (
	"context"
	"errors"
	"matte/models"
	"matte/utils"
	"time"

	"github.com/google/uuid"
)

// SettingsRepository owns each user's EmergencySettings.
type SettingsRepository struct {
	store Store
	keys  Keyspace
}

func NewSettingsRepository(store Store, keys Keyspace) *SettingsRepository {
	return &SettingsRepository{
		store: store,
		keys:  keys,
	}
}

// Get returns the stored settings, or the defaults for a user who never saved any.
func (sr *SettingsRepository) Get(ctx context.Context, userID string) (*models.EmergencySettings, error) {
	var settings models.EmergencySettings
	err := sr.store.Get(ctx, sr.keys.Settings(userID), &settings)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return models.DefaultEmergencySettings(), nil
		}
		return nil, utils.WrapStorageError(err, "get settings")
	}

	if settings.Contacts == nil {
		settings.Contacts = []models.EmergencyContact{}
	}
	return &settings, nil
}

func (sr *SettingsRepository) Save(ctx context.Context, userID string, settings *models.EmergencySettings) error {
	if err := sr.store.Set(ctx, sr.keys.Settings(userID), settings); err != nil {
		return utils.WrapStorageError(err, "save settings")
	}
	return nil
}

// Update merges the patch into the current (or default) settings and persists
// the result. Contacts supplied without an id get one assigned.
func (sr *SettingsRepository) Update(ctx context.Context, userID string, update models.SettingsUpdate) (*models.EmergencySettings, error) {
	current, err := sr.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	merged := update.Apply(*current)
	if update.Contacts != nil {
		now := time.Now()
		for i := range merged.Contacts {
			if merged.Contacts[i].ID == "" {
				merged.Contacts[i].ID = uuid.NewString()
			}
			if merged.Contacts[i].CreatedAt.IsZero() {
				merged.Contacts[i].CreatedAt = now
			}
		}
	}

	if err := sr.Save(ctx, userID, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// AddContact appends a contact with a fresh id at the lowest priority.
func (sr *SettingsRepository) AddContact(ctx context.Context, userID string, contact models.EmergencyContact) (*models.EmergencyContact, error) {
	settings, err := sr.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	contact.ID = uuid.NewString()
	contact.CreatedAt = time.Now()
	settings.Contacts = append(settings.Contacts, contact)

	if err := sr.Save(ctx, userID, settings); err != nil {
		return nil, err
	}
	return &contact, nil
}

// UpdateContact merges the present fields into the contact with the given id.
// An unknown id returns ErrContactNotFound and leaves the list untouched.
func (sr *SettingsRepository) UpdateContact(ctx context.Context, userID string, req models.UpdateContactRequest) (*models.EmergencyContact, error) {
	settings, err := sr.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	index := settings.FindContact(req.ID)
	if index == -1 {
		return nil, utils.ErrContactNotFound
	}

	updated := req.Apply(settings.Contacts[index])
	settings.Contacts[index] = updated

	if err := sr.Save(ctx, userID, settings); err != nil {
		return nil, err
	}
	return &updated, nil
}
