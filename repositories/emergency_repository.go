package repositories

import (
	"context"
	"errors"
	"matte/models"
	"matte/utils"
)

// EmergencyRepository holds the one canonical record per emergency. The
// active slot and the history only store ids that point here, so a resolve
// is visible everywhere without copying the record.
type EmergencyRepository struct {
	store Store
	keys  Keyspace
}

func NewEmergencyRepository(store Store, keys Keyspace) *EmergencyRepository {
	return &EmergencyRepository{
		store: store,
		keys:  keys,
	}
}

func (er *EmergencyRepository) Save(ctx context.Context, emergency *models.Emergency) error {
	if emergency.ID == "" {
		return utils.NewInternalError("emergency has no id")
	}
	if err := er.store.Set(ctx, er.keys.Emergency(emergency.ID), emergency); err != nil {
		return utils.WrapStorageError(err, "save emergency")
	}
	return nil
}

// GetByID returns nil without error when the record does not exist.
func (er *EmergencyRepository) GetByID(ctx context.Context, emergencyID string) (*models.Emergency, error) {
	var emergency models.Emergency
	err := er.store.Get(ctx, er.keys.Emergency(emergencyID), &emergency)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}
		return nil, utils.WrapStorageError(err, "get emergency")
	}
	return &emergency, nil
}

func (er *EmergencyRepository) Delete(ctx context.Context, emergencyID string) error {
	if err := er.store.Delete(ctx, er.keys.Emergency(emergencyID)); err != nil {
		return utils.WrapStorageError(err, "delete emergency")
	}
	return nil
}
