package store

import (
	"context"
	"fmt"

	"github.com/wonny/dinger/backend/internal/contracts"
	"github.com/wonny/dinger/backend/internal/store/firestore"
	"github.com/wonny/dinger/backend/internal/store/memory"
	"github.com/wonny/dinger/backend/internal/store/postgres"
	"github.com/wonny/dinger/backend/internal/store/sqlite"
	"github.com/wonny/dinger/backend/pkg/config"
	"github.com/wonny/dinger/backend/pkg/database"
	"github.com/wonny/dinger/backend/pkg/logger"
)

// Backend names accepted by STORE_BACKEND and the export --to flag
const (
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

var (
	_ contracts.MetricsRepository = (*postgres.Repository)(nil)
	_ contracts.MetricsRepository = (*sqlite.Store)(nil)
	_ contracts.MetricsRepository = (*firestore.Store)(nil)
	_ contracts.MetricsRepository = (*memory.Store)(nil)
	_ contracts.RowSource         = (*postgres.Repository)(nil)
	_ contracts.RowSource         = (*sqlite.Store)(nil)
	_ contracts.RowSource         = (*memory.Store)(nil)
)

// Open returns the repository configured by cfg.Store.Backend
// ⭐ SSOT: 저장소 선택은 여기서만
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (contracts.MetricsRepository, error) {
	return OpenBackend(ctx, cfg.Store.Backend, cfg, log)
}

// OpenBackend opens a named backend using the connection settings in cfg
func OpenBackend(ctx context.Context, backend string, cfg *config.Config, log *logger.Logger) (contracts.MetricsRepository, error) {
	var (
		repo contracts.MetricsRepository
		err  error
	)

	switch backend {
	case BackendPostgres:
		var db *database.DB
		db, err = database.New(cfg)
		if err != nil {
			return nil, err
		}
		repo, err = postgres.New(ctx, db)
		if err != nil {
			db.Close()
		}
	case BackendSQLite:
		repo, err = sqlite.Open(cfg.SQLite.Path)
	case BackendFirestore:
		repo, err = firestore.New(ctx, cfg.Firebase)
	case BackendMemory:
		repo = memory.New()
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", backend, err)
	}

	log.WithField("backend", backend).Info("Metrics store opened")
	return repo, nil
}
