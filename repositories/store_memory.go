package repositories

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore keeps values for the lifetime of the process only.
type MemoryStore struct {
	mutex sync.RWMutex
	data  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (ms *MemoryStore) Get(ctx context.Context, key string, dst interface{}) error {
	ms.mutex.RLock()
	raw, ok := ms.data[key]
	ms.mutex.RUnlock()

	if !ok {
		return ErrKeyNotFound
	}
	return json.Unmarshal(raw, dst)
}

func (ms *MemoryStore) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	ms.mutex.Lock()
	ms.data[key] = raw
	ms.mutex.Unlock()
	return nil
}

func (ms *MemoryStore) Create(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	if _, exists := ms.data[key]; exists {
		return ErrKeyExists
	}
	ms.data[key] = raw
	return nil
}

func (ms *MemoryStore) Delete(ctx context.Context, key string) error {
	ms.mutex.Lock()
	delete(ms.data, key)
	ms.mutex.Unlock()
	return nil
}

func (ms *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (ms *MemoryStore) Name() string {
	return "memory"
}
