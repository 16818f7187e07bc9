package repositories

import (
	"context"
	"errors"
	"matte/models"
	"matte/utils"

	"github.com/sirupsen/logrus"
)

// HistoryRepository is the append-only, most-recent-first list of a user's
// emergencies. Entries are ids into EmergencyRepository.
type HistoryRepository struct {
	store       Store
	keys        Keyspace
	emergencies *EmergencyRepository
}

func NewHistoryRepository(store Store, keys Keyspace, emergencies *EmergencyRepository) *HistoryRepository {
	return &HistoryRepository{
		store:       store,
		keys:        keys,
		emergencies: emergencies,
	}
}

// Append stores the emergency record and puts it at the head of the history.
func (hr *HistoryRepository) Append(ctx context.Context, userID string, emergency *models.Emergency) error {
	if err := hr.emergencies.Save(ctx, emergency); err != nil {
		return err
	}

	ids, err := hr.ids(ctx, userID)
	if err != nil {
		return err
	}

	ids = append([]string{emergency.ID}, ids...)
	if err := hr.store.Set(ctx, hr.keys.History(userID), ids); err != nil {
		return utils.WrapStorageError(err, "append history")
	}
	return nil
}

// List returns the current state of every emergency in the user's history,
// newest first. It never returns nil.
func (hr *HistoryRepository) List(ctx context.Context, userID string) ([]models.Emergency, error) {
	ids, err := hr.ids(ctx, userID)
	if err != nil {
		return nil, err
	}

	history := make([]models.Emergency, 0, len(ids))
	for _, id := range ids {
		emergency, err := hr.emergencies.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if emergency == nil {
			logrus.Warnf("History for user %s references missing emergency %s", userID, id)
			continue
		}
		history = append(history, *emergency)
	}
	return history, nil
}

// Latest returns the head of the history, or nil when it is empty.
func (hr *HistoryRepository) Latest(ctx context.Context, userID string) (*models.Emergency, error) {
	ids, err := hr.ids(ctx, userID)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	return hr.emergencies.GetByID(ctx, ids[0])
}

func (hr *HistoryRepository) ids(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := hr.store.Get(ctx, hr.keys.History(userID), &ids)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return []string{}, nil
		}
		return nil, utils.WrapStorageError(err, "get history")
	}
	return ids, nil
}
