package backend

import (
	"context"
	"errors"
	"fmt"

	"sismobi/internal/amqp"
	applog "sismobi/internal/log"
	gsheet "sismobi/internal/sheets/google"
	"sismobi/internal/storage"
	"sismobi/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend. A failing store is an
// error; failing optional adapters are logged and left nil.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(ctx, config)
	if err != nil {
		return nil, err
	}
	result := &BackendResult{Store: store}
	closers := []func() error{store.Close}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", applog.FieldError, err.Error())
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.Publisher = client
			closers = append(closers, client.Close)
		}
	}

	if config.Sheets.SpreadsheetID != "" {
		exporter, err := gsheet.NewExporter(ctx, config.Sheets, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize Google Sheets exporter, continuing without export", applog.FieldError, err.Error())
		} else {
			result.Exporter = exporter
		}
	}

	result.Cleanup = func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	f.logger.InfoContext(ctx, "Initialized backend",
		"type", config.Type.String(),
		"amqp_enabled", result.Publisher != nil,
		"sheets_enabled", result.Exporter != nil)

	return result, nil
}

func (f *DefaultFactory) createStore(ctx context.Context, config Config) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Opened SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case MemoryBackend:
		if config.SeedFile == "" {
			return memory.New(), nil
		}
		store, err := memory.NewFromFile(config.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load seed file: %w", err)
		}
		f.logger.InfoContext(ctx, "Loaded memory store", "seed_file", config.SeedFile)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
