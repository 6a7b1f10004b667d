package app

import (
	"context"
	"fmt"
	"time"

	config "github.com/DRSN-tech/finsmart-search/internal/cfg"
	"github.com/DRSN-tech/finsmart-search/internal/repository/localfs"
	minioRepo "github.com/DRSN-tech/finsmart-search/internal/repository/minio"
	"github.com/DRSN-tech/finsmart-search/internal/repository/pgdb"
	"github.com/DRSN-tech/finsmart-search/internal/usecase"
	"github.com/DRSN-tech/finsmart-search/pkg/clients"
	"github.com/DRSN-tech/finsmart-search/pkg/closer"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/DRSN-tech/finsmart-search/pkg/logger"
	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jimlawless/whereami"
)

// Источники каталога для загрузки
const (
	SourceDir   = "dir"
	SourceMinIO = "minio"
)

// Catalog — окружение офлайн-загрузки каталога для CLI
type Catalog struct {
	UC     *usecase.CatalogUseCase
	cfg    *config.Config
	closer *closer.Closer
}

// NewCatalog собирает загрузчик каталога. PostgreSQL подключается, только если он настроен:
// без него загрузка работает, но запуски не журналируются.
// ensureCollection выключают перед сбросом индекса, иначе коллекцию с неверной размерностью нельзя пересоздать.
func NewCatalog(ctx context.Context, cfg *config.Config, log logger.Logger, ensureCollection bool) (_ *Catalog, err error) {
	c := &Catalog{
		cfg:    cfg,
		closer: closer.NewCloser(0),
	}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	provider, err := buildEmbeddingProvider(ctx, cfg, c.closer, log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	index, err := buildProductIndex(ctx, cfg, c.closer, ensureCollection)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var (
		dbPool     transaction.Transactional
		runRepo    usecase.IngestionRunRepository
		outboxRepo usecase.OutboxRepository
	)
	if cfg.RequireDB() == nil {
		db, err := initPGDB(ctx, log, cfg)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		c.closer.Add("postgres", func(context.Context) error {
			db.Close()
			return nil
		})

		dbPool = db.Pool
		runRepo = pgdb.NewIngestionRunRepo(db.Pool)
		outboxRepo = pgdb.NewOutboxEventRepo(db.Pool)
	} else {
		log.Infof("PostgreSQL is not configured, ingestion runs will not be recorded")
	}

	c.UC = usecase.NewCatalogUC(
		provider,
		index,
		runRepo,
		outboxRepo,
		dbPool,
		cfg.Qdrant.QdrantCollectionName,
		cfg.Ingestion.BatchSize,
		cfg.Ingestion.MaxRetries,
		log,
	)

	return c, nil
}

// Source открывает источник CSV. Пустой path означает значение из конфигурации.
func (c *Catalog) Source(ctx context.Context, kind string, path string) (usecase.CatalogSource, error) {
	switch kind {
	case SourceDir:
		if path == "" {
			path = c.cfg.Ingestion.SourceDir
		}
		return localfs.NewCatalogRepo(path), nil
	case SourceMinIO:
		mc, err := clients.NewMinIOClient(c.cfg.Minio)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := clients.RequireBucket(checkCtx, mc, c.cfg.Minio.BucketName); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		return minioRepo.NewCatalogRepo(mc, c.cfg.Minio, path), nil
	default:
		return nil, fmt.Errorf("unknown source %q (want %s or %s)", kind, SourceDir, SourceMinIO)
	}
}

func (c *Catalog) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return c.closer.Close(ctx)
}
