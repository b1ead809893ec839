package core

import (
	"fmt"

	"deskcore/internal/config"
	"deskcore/internal/infra/persistence/memory"
	"deskcore/internal/infra/persistence/postgres"
	"deskcore/internal/infra/persistence/sqlite"
	"deskcore/internal/infra/persistence/surreal"
	"deskcore/pkg/domain"
)

// OpenPersistentStore constructs the persistence backend named by the storage
// configuration, wired with the default rules engine. The returned closer
// releases backend resources and is a no-op for the memory driver.
func OpenPersistentStore(cfg config.Storage) (domain.PersistentStore, func() error, error) {
	engine := DefaultRulesEngine()
	switch cfg.Driver {
	case "", "memory":
		return memory.NewStore(engine), func() error { return nil }, nil
	case "sqlite":
		store, err := sqlite.NewStore(cfg.SQLitePath, engine)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, store.Close, nil
	case "postgres":
		store, err := postgres.NewStore(cfg.PostgresDSN, engine)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, store.Close, nil
	case "surreal":
		store, err := surreal.NewStore(surreal.Config{
			URL:       cfg.SurrealURL,
			Namespace: cfg.SurrealNamespace,
			Database:  cfg.SurrealDatabase,
			User:      cfg.SurrealUser,
			Pass:      cfg.SurrealPass,
		}, engine)
		if err != nil {
			return nil, nil, fmt.Errorf("open surreal store: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
