package repositories

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrKeyExists   = errors.New("key already exists")
)

// Store is the key-value abstraction every SOS repository is built on. Values
// are JSON-encoded, so callers always get their own copy back.
type Store interface {
	// Get decodes the value stored at key into dst, or returns ErrKeyNotFound.
	Get(ctx context.Context, key string, dst interface{}) error
	// Set stores value at key, replacing whatever was there.
	Set(ctx context.Context, key string, value interface{}) error
	// Create stores value at key only if the key is absent, else ErrKeyExists.
	Create(ctx context.Context, key string, value interface{}) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Name() string
}

const defaultKeyPrefix = "sos"

// Keyspace builds the storage keys for one deployment.
type Keyspace struct {
	prefix string
}

func NewKeyspace(prefix string) Keyspace {
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return Keyspace{prefix: prefix}
}

func (k Keyspace) Settings(userID string) string {
	return k.prefix + ":settings:" + userID
}

func (k Keyspace) Active(userID string) string {
	return k.prefix + ":active:" + userID
}

func (k Keyspace) History(userID string) string {
	return k.prefix + ":history:" + userID
}

func (k Keyspace) Emergency(emergencyID string) string {
	return k.prefix + ":emergency:" + emergencyID
}
