package app

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/Devanshprabhakar24/Scatch/internal/storage"
	"github.com/Devanshprabhakar24/Scatch/internal/storage/memory"
	"github.com/Devanshprabhakar24/Scatch/internal/storage/mongo"
	"github.com/Devanshprabhakar24/Scatch/internal/storage/postgres"
)

// OpenStorage connects to the configured backend and prepares its schema.
func OpenStorage(ctx context.Context, cfg *Config) (*storage.Repositories, error) {
	lg := zctx.From(ctx).With(zap.String("storage", cfg.Storage))
	switch cfg.Storage {
	case storage.BackendPostgres:
		lg.Info("Connecting to PostgreSQL")
		repos, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "open postgres")
		}
		return repos, nil
	case storage.BackendMongo:
		lg.Info("Connecting to MongoDB", zap.String("database", cfg.MongoDatabase))
		repos, err := mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, errors.Wrap(err, "open mongo")
		}
		return repos, nil
	case storage.BackendMemory:
		lg.Warn("Using in-memory storage, data is lost on restart")
		return memory.NewStore().Repositories(), nil
	default:
		return nil, errors.Errorf("unknown storage backend %q", cfg.Storage)
	}
}
