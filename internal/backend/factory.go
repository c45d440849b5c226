package backend

import (
	"context"
	"fmt"

	"feedesk/internal/ledger/memory"
	"feedesk/internal/ledger/remote"
	applog "feedesk/internal/log"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentLedger)}
}

// Create implements Factory.Create
func (f *DefaultFactory) Create(ctx context.Context, cfg Config) (*Result, error) {
	switch cfg.Type {
	case RemoteBackend:
		return f.createRemote(cfg)
	case MemoryBackend:
		return f.createMemory(cfg)
	default:
		return nil, fmt.Errorf("invalid backend type: %s", cfg.Type)
	}
}

func (f *DefaultFactory) createRemote(cfg Config) (*Result, error) {
	opts := []remote.Option{remote.WithLogger(f.logger)}
	if cfg.Indicator != nil {
		opts = append(opts, remote.WithIndicator(cfg.Indicator))
	}
	client, err := remote.New(cfg.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize remote ledger: %w", err)
	}
	f.logger.Info("Initialized remote ledger", "backend", cfg.Type.String())
	return &Result{Ledger: client}, nil
}

func (f *DefaultFactory) createMemory(cfg Config) (*Result, error) {
	var (
		store *memory.Store
		err   error
	)
	if cfg.SeedFile != "" {
		store, err = memory.NewFromFile(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("initialize memory ledger: %w", err)
		}
	} else {
		store = memory.New()
	}
	f.logger.Info("Initialized memory ledger", "backend", cfg.Type.String(), "seed_file", cfg.SeedFile)
	return &Result{Ledger: store}, nil
}
