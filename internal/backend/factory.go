package backend

import (
	"context"
	"errors"
	"fmt"

	"bankledger/internal/log"
	"bankledger/internal/storage/file"
	"bankledger/internal/storage/memory"
	"bankledger/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// Open is a shorthand for NewFactory(logger).CreateBackend.
func Open(ctx context.Context, config Config, logger *log.Logger) (*Backend, error) {
	return NewFactory(logger).CreateBackend(ctx, config)
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case FileBackend:
		return f.createFileBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createFileBackend(ctx context.Context, config Config) (*Backend, error) {
	accounts, err := file.OpenAccounts(config.AccountsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open accounts file: %w", err)
	}
	txlog, err := file.OpenTransactions(config.TransactionsFile)
	if err != nil {
		accounts.Close()
		return nil, fmt.Errorf("failed to open transactions file: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized file backend",
		log.FieldPath, config.AccountsFile,
		"transactions_path", config.TransactionsFile)

	return &Backend{
		Accounts: accounts,
		Log:      txlog,
		Cleanup: func() error {
			return errors.Join(accounts.Close(), txlog.Close())
		},
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Backend, error) {
	repo, err := sqlite.NewRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", log.FieldPath, config.SQLiteDBPath)

	return &Backend{
		Accounts: repo,
		Log:      repo,
		Cleanup:  repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context) (*Backend, error) {
	store := memory.NewStore()
	txlog := memory.NewLog()

	f.logger.InfoContext(ctx, "Initialized memory backend")

	return &Backend{
		Accounts: store,
		Log:      txlog,
		Cleanup: func() error {
			return errors.Join(store.Close(), txlog.Close())
		},
	}, nil
}
