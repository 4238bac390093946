// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mealforge/mealforge/internal/application/generation"
	apprecipe "github.com/mealforge/mealforge/internal/application/recipe"
	"github.com/mealforge/mealforge/internal/domain/recipe"
	"github.com/mealforge/mealforge/internal/infrastructure/ai/openai"
	"github.com/mealforge/mealforge/internal/infrastructure/cache"
	"github.com/mealforge/mealforge/internal/infrastructure/config"
	"github.com/mealforge/mealforge/internal/infrastructure/http/handlers"
	"github.com/mealforge/mealforge/internal/infrastructure/http/server"
	"github.com/mealforge/mealforge/internal/infrastructure/images"
	"github.com/mealforge/mealforge/internal/infrastructure/persistence"
	gormrepo "github.com/mealforge/mealforge/internal/infrastructure/persistence/gorm"
	"github.com/mealforge/mealforge/internal/infrastructure/progress"
	"github.com/mealforge/mealforge/internal/infrastructure/storage"
	"github.com/mealforge/mealforge/internal/ports/outbound"
	"github.com/mealforge/mealforge/pkg/logger"
)

// Module provides all dependency injection modules
var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	DatabaseModule,
	CacheModule,
	StorageModule,
	GenerationModule,
	RepositoryModule,
	ServiceModule,
	HTTPModule,
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func() (*config.Config, error) {
		return config.Load("")
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Environment == "development",
		})
	},
)

// DatabaseModule provides the document store connection
var DatabaseModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
		db, err := persistence.Open(cfg.Database)
		if err != nil {
			return nil, err
		}
		log.Info("connected to document store",
			zap.String("driver", cfg.Database.Driver),
			zap.String("database", cfg.Database.Database))
		return db, nil
	},
)

// CacheModule provides the layered cache: in-process memory always,
// file and Redis tiers when enabled. Order is fastest first.
var CacheModule = fx.Provide(
	func(cfg *config.Config) redis.UniversalClient {
		return cache.NewRedisClient(cfg.Redis)
	},
	func(lc fx.Lifecycle, cfg *config.Config, client redis.UniversalClient, log *zap.Logger) (*cache.MultiTier, error) {
		tiers := []cache.Tier{
			{Store: cache.NewMemoryStore(cfg.Cache.MemorySize), DefaultTTL: cfg.Cache.MemoryTTL},
		}
		if cfg.Cache.EnableFile {
			fileStore, err := cache.NewFileStore(cfg.Cache.FileDir, log)
			if err != nil {
				return nil, err
			}
			tiers = append(tiers, cache.Tier{Store: fileStore, DefaultTTL: cfg.Cache.FileTTL})
			startSweep(lc, fileStore, cfg.Cache.SweepInterval, log)
		}
		if cfg.Cache.EnableRedis {
			tiers = append(tiers, cache.Tier{
				Store:      cache.NewRedisStore(client, cfg.Cache.RedisPrefix, log),
				DefaultTTL: cfg.Cache.RedisTTL,
			})
		}
		return cache.NewMultiTier(log, tiers...), nil
	},
)

// startSweep runs the file tier's expiry sweep on a fixed interval for
// the life of the application.
func startSweep(lc fx.Lifecycle, store *cache.FileStore, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						if removed := store.SweepExpired(); removed > 0 {
							log.Debug("swept expired file cache entries", zap.Int("removed", removed))
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(done)
			return nil
		},
	})
}

// StorageModule provides object storage
var StorageModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) (outbound.ObjectStore, error) {
		return storage.NewS3Store(cfg.Storage, log)
	},
)

// GenerationModule provides the generation client, image processing,
// the pipeline, the progress broker, and the task manager.
var GenerationModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) outbound.GenerationClient {
		return openai.NewClient(cfg.AI, log)
	},
	func(cfg *config.Config, log *zap.Logger) outbound.ImageProcessor {
		return images.NewTranscoder(cfg.Pipeline.ImageMaxWidth, log)
	},
	func(cfg *config.Config, client redis.UniversalClient, log *zap.Logger) outbound.ProgressBroker {
		if cfg.Cache.EnableRedis {
			return progress.NewRedisBroker(client, log)
		}
		return progress.NewMemoryBroker()
	},
	func(cfg *config.Config, repo outbound.RecipeRepository, client outbound.GenerationClient,
		store outbound.ObjectStore, processor outbound.ImageProcessor, log *zap.Logger) *generation.Pipeline {
		targets := make([]recipe.Language, 0, len(cfg.Pipeline.TargetLanguages))
		for _, lang := range cfg.Pipeline.TargetLanguages {
			targets = append(targets, recipe.Language(lang))
		}
		return generation.NewPipeline(repo, client, store, processor, generation.Config{
			TargetLanguages: targets,
			ImageCount:      cfg.Pipeline.ImageCount,
			DefaultModel:    cfg.Pipeline.DefaultModel,
		}, log)
	},
	generation.NewManager,
)

// RepositoryModule provides the recipe repository with its cache
// decoration. The pipeline and services all see the cached repository.
var RepositoryModule = fx.Provide(
	func(cfg *config.Config, db *gorm.DB, tiers *cache.MultiTier, log *zap.Logger) (outbound.RecipeRepository, error) {
		inner, err := gormrepo.NewRepository(db, log, cfg.Database.AutoMigrate)
		if err != nil {
			return nil, err
		}
		return apprecipe.NewCachedRepository(inner, tiers, log), nil
	},
)

// ServiceModule provides application services. The read service sits on
// the signing decorator so served documents carry fetchable URLs.
var ServiceModule = fx.Provide(
	func(cfg *config.Config, repo outbound.RecipeRepository, store outbound.ObjectStore) *apprecipe.Service {
		signed := apprecipe.NewSignedImageRepository(repo, store, cfg.Storage.SignedURLTTL)
		return apprecipe.NewService(signed)
	},
)

// HTTPModule provides handlers and the server
var HTTPModule = fx.Provide(
	handlers.NewRecipeHandlers,
	func(cfg *config.Config, manager *generation.Manager, broker outbound.ProgressBroker, log *zap.Logger) *handlers.GenerationHandlers {
		return handlers.NewGenerationHandlers(manager, broker, cfg.Server.KeepAliveInterval, log)
	},
	server.NewServer,
)

// LifecycleModule binds the server to the fx lifecycle
var LifecycleModule = fx.Invoke(
	func(lc fx.Lifecycle, srv *server.Server, log *zap.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go func() {
					if err := srv.Start(); err != nil {
						log.Error("http server exited", zap.Error(err))
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				stopCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				defer cancel()
				return srv.Stop(stopCtx)
			},
		})
	},
)
