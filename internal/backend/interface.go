// Package backend wires the configured store and the optional outbound
// adapters (AMQP publisher, Sheets exporter).
package backend

import (
	"context"

	"sismobi/internal/services"
	"sismobi/internal/sheets"
	gsheet "sismobi/internal/sheets/google"
	"sismobi/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store, the optional adapters and their cleanup.
// Publisher and Exporter are nil when not configured or unreachable.
type BackendResult struct {
	Store     storage.Store
	Publisher services.EventPublisher
	Exporter  sheets.Exporter
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend opens the store and connects the optional adapters.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory specific, empty means start empty
	SeedFile string

	// Optional adapters
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	Sheets       gsheet.Config
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
