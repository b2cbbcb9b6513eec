package backend

import (
	"context"

	"subtrack/internal/storage"
)

// BackendType represents the type of persistence backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String returns the string representation of the backend type
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid checks if the backend type is supported
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Backend is everything the services need from persistence.
type Backend interface {
	storage.SubscriptionStore
	storage.PaymentMethodStore
	storage.SettingsStore
	storage.RateStore
	storage.ReminderLog

	Ping(ctx context.Context) error
	Close() error
}

// Config contains configuration for all backend types
type Config struct {
	Type BackendType

	SQLiteDBPath string

	// SeedFile is a JSON array of subscriptions loaded by the memory backend.
	SeedFile string

	// FXCache selects where the fx rate is cached: "sqlite" keeps it in the
	// backend itself, "redis" shares it through RedisURL.
	FXCache  string
	RedisURL string
}

// BackendResult contains the created backend and cleanup function
type BackendResult struct {
	Backend Backend
	// Rates is where the fx provider caches its last rate. It is the
	// backend itself unless a redis cache was configured.
	Rates   storage.RateStore
	Cleanup func() error
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
