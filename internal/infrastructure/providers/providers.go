package providers

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/totegamma/gamecatalog/internal/config"
	"github.com/totegamma/gamecatalog/internal/infrastructure/cache"
	"github.com/totegamma/gamecatalog/internal/infrastructure/database"
	"github.com/totegamma/gamecatalog/internal/infrastructure/repository"
	"github.com/totegamma/gamecatalog/internal/service"
	"github.com/totegamma/gamecatalog/internal/usecase"
)

// NewStore opens the configured document store. Postgres schemas are
// migrated on open.
func NewStore(ctx context.Context, conf config.Server) (usecase.Store, error) {
	switch conf.StoreDriver {
	case config.DriverPostgres:
		db, err := database.NewPostgres(conf.PostgresDsn)
		if err != nil {
			return nil, errors.Wrap(err, "connecting to postgres")
		}
		if err := database.Migrate(db); err != nil {
			return nil, errors.Wrap(err, "migrating postgres")
		}
		return repository.NewGormStore(db, conf.StoreTimeoutDuration), nil

	case config.DriverMongo:
		client, err := database.NewMongo(ctx, conf.MongoURI)
		if err != nil {
			return nil, err
		}
		return repository.NewMongoStore(client, conf.MongoDatabase, conf.StoreTimeoutDuration), nil
	}
	return nil, errors.Errorf("unknown store driver %q", conf.StoreDriver)
}

// NewRecordCache shares records through memcached when configured and keeps
// them in process otherwise.
func NewRecordCache(conf config.Server) usecase.RecordCache {
	if conf.MemcachedAddr != "" {
		return cache.NewMemcache(database.NewMemcached(conf.MemcachedAddr), conf.CacheTTLDuration)
	}
	return cache.NewLocal(conf.CacheTTLDuration)
}

// NewSignal returns nil when no redis server is configured; change events
// and the realtime feed are then disabled.
func NewSignal(ctx context.Context, conf config.Server) *service.SignalService {
	if conf.RedisAddr == "" {
		return nil
	}

	rdb := database.NewRedis(conf.RedisAddr, "", conf.RedisDB)
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.WarnContext(
			ctx, "redis is unreachable, continuing without it",
			slog.String("error", err.Error()),
			slog.String("module", "providers"),
		)
	}
	return service.NewSignalService(rdb)
}
