package backend

import (
	"context"
	"fmt"

	"feedesk/internal/config"
	"feedesk/internal/ledger"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result contains the ledger instance and an optional cleanup function.
type Result struct {
	Ledger  ledger.Ledger
	Cleanup CleanupFunc
}

// Factory creates ledgers based on configuration
type Factory interface {
	Create(ctx context.Context, cfg Config) (*Result, error)
}

// Config holds configuration for ledger creation
type Config struct {
	Type Type

	// Remote
	Endpoint  string
	Indicator ledger.Indicator

	// Memory
	SeedFile string
}

// Type selects the ledger implementation.
type Type string

const (
	RemoteBackend Type = config.BackendRemote
	MemoryBackend Type = config.BackendMemory
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case RemoteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	t := Type(appConfig.LedgerBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.LedgerBackend)
	}
	return Config{
		Type:     t,
		Endpoint: appConfig.LedgerEndpoint,
		SeedFile: appConfig.LedgerSeedFile,
	}, nil
}
