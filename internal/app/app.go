package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/finsmart-search/internal/cfg"
	v1Http "github.com/DRSN-tech/finsmart-search/internal/delivery/v1/http"
	"github.com/DRSN-tech/finsmart-search/internal/infrastructure/kafka"
	"github.com/DRSN-tech/finsmart-search/internal/metrics"
	"github.com/DRSN-tech/finsmart-search/internal/repository/pgdb"
	"github.com/DRSN-tech/finsmart-search/internal/usecase"
	"github.com/DRSN-tech/finsmart-search/pkg/closer"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/DRSN-tech/finsmart-search/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jimlawless/whereami"
)

const shutdownTimeout = 10 * time.Second

// App — сервис поиска: HTTP API и, если настроена Kafka, ретранслятор outbox.
type App struct {
	cfg     *config.Config
	logger  logger.Logger
	closer  *closer.Closer
	httpSrv *v1Http.Server
	outbox  *kafka.OutboxWorker
}

// NewApp строит все зависимости один раз при старте. При ошибке уже открытые ресурсы закрываются.
func NewApp(cfg *config.Config, log logger.Logger) (_ *App, err error) {
	app := &App{
		cfg:    cfg,
		logger: log,
		closer: closer.NewCloser(0),
	}
	defer func() {
		if err != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if closeErr := app.closer.Close(ctx); closeErr != nil {
				log.Warnf("cleanup after failed start: %v", closeErr)
			}
		}
	}()

	metrics.Register()

	ctx := context.Background()

	provider, err := buildEmbeddingProvider(ctx, cfg, app.closer, log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	index, err := buildProductIndex(ctx, cfg, app.closer, true)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	normalizer := usecase.NewQueryNormalizer(provider, cfg.Search.AudioTmpDir, log)
	searchUC := usecase.NewSearchUC(normalizer, index, cfg.Search.DefaultLimit, cfg.Search.MaxLimit, log)

	if cfg.Kafka != nil {
		if err := app.initOutboxRelay(ctx); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
	}

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, log)
	router.Init(searchUC, cfg.Search.MaxFileSize)

	app.httpSrv = v1Http.NewServer(r, cfg.Http)

	return app, nil
}

// initOutboxRelay поднимает ретрансляцию событий загрузки каталога из PostgreSQL в Kafka
func (a *App) initOutboxRelay(ctx context.Context) error {
	if err := a.cfg.RequireDB(); err != nil {
		return e.Wrap("outbox relay needs PostgreSQL", err)
	}

	db, err := initPGDB(ctx, a.logger, a.cfg)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.Add("postgres", func(context.Context) error {
		db.Close()
		return nil
	})

	producer, err := kafka.NewProducer(a.logger, a.cfg.Kafka)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.Add("kafka producer", func(context.Context) error {
		return producer.Close()
	})

	topicCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = producer.EnsureTopic(topicCtx)
	cancel()
	if err != nil {
		a.logger.Warnf("kafka topic check failed, relying on broker auto-create: %v", err)
	}

	listen := func(ctx context.Context) (*pgx.Conn, error) {
		conn, err := db.Pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return conn.Hijack(), nil
	}
	a.outbox = kafka.NewOutboxWorker(pgdb.NewOutboxEventRepo(db.Pool), a.logger, producer, listen)
	a.closer.Add("outbox relay", func(context.Context) error {
		a.outbox.Stop()
		return nil
	})

	return nil
}

// Run обслуживает запросы до сигнала остановки или ошибки сервера, затем корректно закрывает ресурсы.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.outbox != nil {
		a.outbox.Start(ctx)
	}

	a.closer.Add("http server", func(ctx context.Context) error {
		if err := a.httpSrv.Stop(ctx); err != nil {
			return e.Wrap("HTTP server shutdown", err)
		}
		a.logger.Infof("HTTP server stopped")
		return nil
	})

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case <-ctx.Done():
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Errorf(err, "shutdown error")
		appErr = errors.Join(appErr, err)
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}
