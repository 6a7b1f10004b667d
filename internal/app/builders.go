package app

import (
	"context"
	"net/http"
	"time"

	config "github.com/DRSN-tech/finsmart-search/internal/cfg"
	"github.com/DRSN-tech/finsmart-search/internal/infrastructure/embedding"
	"github.com/DRSN-tech/finsmart-search/internal/infrastructure/imageprep"
	ml_service "github.com/DRSN-tech/finsmart-search/internal/infrastructure/ml-service"
	"github.com/DRSN-tech/finsmart-search/internal/infrastructure/openai"
	qdrantRepo "github.com/DRSN-tech/finsmart-search/internal/repository/qdrant"
	"github.com/DRSN-tech/finsmart-search/internal/repository/qdrantrest"
	"github.com/DRSN-tech/finsmart-search/internal/repository/redis"
	"github.com/DRSN-tech/finsmart-search/internal/usecase"
	"github.com/DRSN-tech/finsmart-search/pkg/clients"
	"github.com/DRSN-tech/finsmart-search/pkg/closer"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/DRSN-tech/finsmart-search/pkg/logger"
	"github.com/DRSN-tech/finsmart-search/pkg/postgres"
	"github.com/jimlawless/whereami"
)

// productIndex — векторный индекс товаров с путями чтения и записи
type productIndex interface {
	usecase.ProductIndexRepository
	usecase.ProductIndexWriter
	EnsureCollection(ctx context.Context) error
}

// buildProductIndex выбирает транспорт Qdrant. С ensure коллекция создаётся или проверяется её размерность.
func buildProductIndex(ctx context.Context, cfg *config.Config, cl *closer.Closer, ensure bool) (productIndex, error) {
	var index productIndex

	switch cfg.Qdrant.Transport {
	case config.QdrantTransportREST:
		index = qdrantrest.NewProductIndexRepo(&http.Client{}, cfg.Qdrant)
	default:
		qdrantClient, err := clients.NewQdrantClient(cfg.Qdrant)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		cl.Add("qdrant", func(context.Context) error {
			return qdrantClient.Client.Close()
		})
		index = qdrantRepo.NewProductIndexRepo(qdrantClient, cfg.Qdrant)
	}

	if !ensure {
		return index, nil
	}

	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := index.EnsureCollection(ensureCtx); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return index, nil
}

// buildEmbeddingProvider собирает CLIP-энкодеры ML-сервиса, кэш текстовых векторов и распознавание речи
func buildEmbeddingProvider(ctx context.Context, cfg *config.Config, cl *closer.Closer, log logger.Logger) (*embedding.Provider, error) {
	conn, err := clients.NewMLConn(cfg.Ml)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add("ml-service", func(context.Context) error {
		return conn.Close()
	})

	ml := ml_service.NewMLService(conn, cfg.Ml.ModelName, cfg.Ml.MaxConcurrent, cfg.Ml.MaxRetries, cfg.Ml.Timeout, log)

	var text usecase.TextEmbedder = ml
	if cfg.Redis.Enabled {
		redisClient, err := clients.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			// Без кэша поиск работает, только медленнее
			log.Warnf("redis unavailable, embedding cache disabled: %v", err)
		} else {
			cl.Add("redis", func(context.Context) error {
				return redisClient.Close()
			})
			cacheRepo := redis.NewEmbeddingCacheRepo(redisClient, cfg.Redis, log)
			text = embedding.NewCachedTextEmbedder(ml, cacheRepo, ml.ModelName(), log)
		}
	}

	var transcriber usecase.Transcriber = ml
	if cfg.OpenAI.Enabled {
		transcriber = openai.NewTranscriber(cfg.OpenAI)
	}

	return embedding.NewProvider(
		text,
		ml,
		imageprep.NewPreparer(cfg.Ml.ImageInputSize),
		transcriber,
		int(cfg.Qdrant.VectorSize),
	), nil
}

// initPGDB подключает PostgreSQL и применяет миграции из cfg.Db.MigrationsDir
func initPGDB(ctx context.Context, logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger, cfg.Db.MigrationsDir); err != nil {
		logger.Errorf(err, "failed to run migrations")
		db.Close()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
