package backend

import (
	"context"
	"errors"
	"fmt"

	"billtrack/internal/amqp"
	applog "billtrack/internal/log"
	"billtrack/internal/services"
	"billtrack/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateBackend opens the configured repository and wires the row service.
// An unreachable broker is logged and the backend runs without events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := f.openRepository(config)
	if err != nil {
		return nil, err
	}

	files, err := storage.NewUploadDir(config.UploadDir)
	if err != nil {
		repo.Close()
		return nil, err
	}

	opts := []services.Option{services.WithLogger(f.logger)}
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events", applog.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			opts = append(opts, services.WithPublisher(amqpClient))
		}
	}

	svc := services.NewRowService(repo, files, opts...)

	f.logger.InfoContext(ctx, "Initialized backend",
		"type", config.Type,
		"upload_dir", files.Root(),
		"amqp_enabled", amqpClient != nil)

	return &BackendResult{
		Service:    svc,
		Files:      files,
		Publishing: amqpClient != nil,
		Cleanup: func() error {
			var errs []error
			if err := repo.Close(); err != nil {
				errs = append(errs, fmt.Errorf("storage: %w", err))
			}
			if amqpClient != nil {
				if err := amqpClient.Close(); err != nil {
					errs = append(errs, fmt.Errorf("amqp: %w", err))
				}
			}
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) openRepository(config Config) (storage.Repository, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		return repo, nil
	case MemoryBackend:
		return storage.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
