package repositories

import (
	"context"
	"errors"
	"matte/models"
	"matte/utils"

	"github.com/sirupsen/logrus"
)

// ActiveEmergencyRepository tracks at most one active emergency per user.
type ActiveEmergencyRepository struct {
	store       Store
	keys        Keyspace
	emergencies *EmergencyRepository
}

type activeSlot struct {
	EmergencyID string `json:"emergencyId"`
}

func NewActiveEmergencyRepository(store Store, keys Keyspace, emergencies *EmergencyRepository) *ActiveEmergencyRepository {
	return &ActiveEmergencyRepository{
		store:       store,
		keys:        keys,
		emergencies: emergencies,
	}
}

// GetActive returns the user's active emergency, or nil. A slot whose record
// is gone or already resolved reads as empty. It never writes.
func (ar *ActiveEmergencyRepository) GetActive(ctx context.Context, userID string) (*models.Emergency, error) {
	slot, err := ar.getSlot(ctx, userID)
	if err != nil || slot == nil {
		return nil, err
	}

	emergency, err := ar.emergencies.GetByID(ctx, slot.EmergencyID)
	if err != nil {
		return nil, err
	}
	if emergency == nil || !emergency.IsActive() {
		return nil, nil
	}
	return emergency, nil
}

// SetActive stores the emergency record and claims the user's active slot for
// it. It fails with ErrEmergencyActive when the slot is taken. Callers must
// hold the user's write lock, since a stale slot is released here.
func (ar *ActiveEmergencyRepository) SetActive(ctx context.Context, userID string, emergency *models.Emergency) error {
	// The record goes first so a slot never points at a missing record.
	if err := ar.emergencies.Save(ctx, emergency); err != nil {
		return err
	}

	err := ar.claim(ctx, userID, emergency.ID)
	if errors.Is(err, ErrKeyExists) {
		var released bool
		released, err = ar.releaseStale(ctx, userID)
		if err == nil {
			err = ErrKeyExists
			if released {
				err = ar.claim(ctx, userID, emergency.ID)
			}
		}
	}
	if err == nil {
		return nil
	}

	if delErr := ar.emergencies.Delete(ctx, emergency.ID); delErr != nil {
		logrus.Errorf("Failed to drop unclaimed emergency %s: %v", emergency.ID, delErr)
	}
	if errors.Is(err, ErrKeyExists) {
		return utils.ErrEmergencyActive
	}
	return utils.WrapStorageError(err, "set active emergency")
}

// ClearActive empties the user's active slot and returns the record it pointed
// at, or nil when the slot was empty.
func (ar *ActiveEmergencyRepository) ClearActive(ctx context.Context, userID string) (*models.Emergency, error) {
	slot, err := ar.getSlot(ctx, userID)
	if err != nil || slot == nil {
		return nil, err
	}

	emergency, err := ar.emergencies.GetByID(ctx, slot.EmergencyID)
	if err != nil {
		return nil, err
	}

	if err := ar.store.Delete(ctx, ar.keys.Active(userID)); err != nil {
		return nil, utils.WrapStorageError(err, "clear active emergency")
	}
	return emergency, nil
}

func (ar *ActiveEmergencyRepository) claim(ctx context.Context, userID, emergencyID string) error {
	return ar.store.Create(ctx, ar.keys.Active(userID), activeSlot{EmergencyID: emergencyID})
}

// releaseStale frees a slot left behind by an interrupted resolve. It reports
// whether the slot was released.
func (ar *ActiveEmergencyRepository) releaseStale(ctx context.Context, userID string) (bool, error) {
	slot, err := ar.getSlot(ctx, userID)
	if err != nil {
		return false, err
	}
	if slot == nil {
		return true, nil
	}

	emergency, err := ar.emergencies.GetByID(ctx, slot.EmergencyID)
	if err != nil {
		return false, err
	}
	if emergency != nil && emergency.IsActive() {
		return false, nil
	}

	logrus.Warnf("Releasing stale active slot for user %s (emergency %s)", userID, slot.EmergencyID)
	if err := ar.store.Delete(ctx, ar.keys.Active(userID)); err != nil {
		return false, err
	}
	return true, nil
}

func (ar *ActiveEmergencyRepository) getSlot(ctx context.Context, userID string) (*activeSlot, error) {
	var slot activeSlot
	err := ar.store.Get(ctx, ar.keys.Active(userID), &slot)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}
		return nil, utils.WrapStorageError(err, "get active emergency")
	}
	return &slot, nil
}
