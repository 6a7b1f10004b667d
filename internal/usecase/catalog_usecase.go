package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/DRSN-tech/finsmart-search/internal/domain"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/DRSN-tech/finsmart-search/pkg/jitter"
	"github.com/DRSN-tech/finsmart-search/pkg/logger"
	"github.com/DRSN-tech/finsmart-search/pkg/tr"
	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CatalogUseCase загружает каталог товаров в векторный индекс.
// Это офлайн-процесс с единственным писателем, параллельно с ним индекс только читается.
type CatalogUseCase struct {
	embedder   TextEmbedder
	indexRepo  ProductIndexWriter
	runRepo    IngestionRunRepository
	outboxRepo OutboxRepository
	dbPool     transaction.Transactional // nil — учёт запусков в PostgreSQL отключён
	collection string
	batchSize  int
	maxRetries int
	logger     logger.Logger
}

func NewCatalogUC(
	embedder TextEmbedder,
	indexRepo ProductIndexWriter,
	runRepo IngestionRunRepository,
	outboxRepo OutboxRepository,
	dbPool transaction.Transactional,
	collection string,
	batchSize int,
	maxRetries int,
	logger logger.Logger,
) *CatalogUseCase {
	return &CatalogUseCase{
		embedder:   embedder,
		indexRepo:  indexRepo,
		runRepo:    runRepo,
		outboxRepo: outboxRepo,
		dbPool:     dbPool,
		collection: collection,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

type ingestState struct {
	report *IngestReport
	batch  []domain.ProductRecord
	nextID uint64
}

// Ingest читает все CSV источника, векторизует строки и пишет их в индекс пачками.
// Ошибки отдельных строк и пачек учитываются в отчёте и не прерывают загрузку.
func (c *CatalogUseCase) Ingest(ctx context.Context, source CatalogSource) (*IngestReport, error) {
	const op = "CatalogUseCase.Ingest"

	files, err := source.List(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	run, err := c.startRun(ctx, source.Name())
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	state := &ingestState{
		report: &run.Report,
		batch:  make([]domain.ProductRecord, 0, c.batchSize),
	}
	state.report.RunID = run.ID

	var ingestErr error
	for _, file := range files {
		c.logger.Infof("reading %s", file)
		if ingestErr = c.ingestFile(ctx, source, file, state); ingestErr != nil {
			break
		}
		state.report.Files++
	}

	if ingestErr == nil {
		ingestErr = c.flush(ctx, state)
	}

	status := RunCompleted
	if ingestErr != nil {
		status = RunFailed
	}

	// Итог записывается даже при отмене исходного контекста
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := c.finishRun(finishCtx, run, status); err != nil {
		c.logger.Warnf("failed to record ingestion run %s: %v", run.ID, e.Wrap(op, err))
	}

	if ingestErr != nil {
		return state.report, e.Wrap(op, ingestErr)
	}

	return state.report, nil
}

// ResetIndex удаляет коллекцию вместе со всеми записями и создаёт её заново.
func (c *CatalogUseCase) ResetIndex(ctx context.Context) error {
	const op = "CatalogUseCase.ResetIndex"

	if err := c.indexRepo.Reset(ctx); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

func (c *CatalogUseCase) ingestFile(ctx context.Context, source CatalogSource, name string, state *ingestState) error {
	const op = "CatalogUseCase.ingestFile"

	rc, err := source.Open(ctx, name)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer rc.Close()

	skipped, err := ReadCatalogCSV(rc, func(row CatalogRow) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		state.report.RowsRead++
		id := state.nextID
		state.nextID++

		vector, err := c.embedder.EmbedText(ctx, row.EmbeddingText())
		if err != nil {
			state.report.RowsSkipped++
			c.logger.Warnf("%s: skip row %d of %s: %v", op, id, name, err)
			return nil
		}

		record := domain.NewProductRecord(id, vector, row.ProductName(), CleanPricePtr(row.RawPrice()), row.Image)
		state.batch = append(state.batch, *record)
		if len(state.batch) >= c.batchSize {
			return c.flush(ctx, state)
		}

		return nil
	})
	state.report.RowsRead += skipped
	state.report.RowsSkipped += skipped
	if err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// flush отправляет накопленную пачку в индекс. Неудачная после всех попыток пачка считается потерянной.
func (c *CatalogUseCase) flush(ctx context.Context, state *ingestState) error {
	if len(state.batch) == 0 {
		return nil
	}

	batch := state.batch
	state.batch = make([]domain.ProductRecord, 0, c.batchSize)

	if err := c.upsertWithRetry(ctx, batch); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		state.report.BatchesFailed++
		state.report.PointsLost += len(batch)
		c.logger.Warnf("batch of %d points lost (ids %d..%d): %v", len(batch), batch[0].ID, batch[len(batch)-1].ID, err)
		return nil
	}

	state.report.PointsWritten += len(batch)
	c.logger.Infof("batch sent: %d points, up to id %d", len(batch), batch[len(batch)-1].ID)

	return nil
}

// upsertWithRetry повторяет запись пачки с экспоненциальной задержкой и джиттером.
func (c *CatalogUseCase) upsertWithRetry(ctx context.Context, batch []domain.ProductRecord) error {
	const op = "CatalogUseCase.upsertWithRetry"

	backoff := jitter.NewBackoff(500*time.Millisecond, 10*time.Second)
	var err error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err = c.indexRepo.Upsert(ctx, batch); err == nil {
			return nil
		}

		if attempt == c.maxRetries-1 {
			break
		}

		c.logger.Warnf("upsert failed, retrying (attempt %d): %v", attempt+1, err)
		if waitErr := backoff.Wait(ctx, attempt); waitErr != nil {
			return e.Wrap(op, waitErr)
		}
	}

	return e.Wrap(op, err)
}

func (c *CatalogUseCase) startRun(ctx context.Context, source string) (*IngestionRun, error) {
	run := &IngestionRun{
		ID:         uuid.NewString(),
		Source:     source,
		Collection: c.collection,
		Status:     RunRunning,
		StartedAt:  time.Now().UTC(),
	}

	if c.dbPool == nil {
		return run, nil
	}

	return c.runRepo.Create(ctx, run)
}

// finishRun в одной транзакции фиксирует итог запуска и создаёт событие outbox.
func (c *CatalogUseCase) finishRun(ctx context.Context, run *IngestionRun, status IngestionRunStatus) (err error) {
	const op = "CatalogUseCase.finishRun"

	finishedAt := time.Now().UTC()
	run.Status = status
	run.FinishedAt = &finishedAt

	if c.dbPool == nil {
		return nil
	}

	payload, err := json.Marshal(CatalogIngestedEvent{
		RunID:         run.ID,
		Collection:    run.Collection,
		Status:        string(run.Status),
		PointsWritten: run.Report.PointsWritten,
		PointsLost:    run.Report.PointsLost,
		RowsSkipped:   run.Report.RowsSkipped,
		FinishedAt:    finishedAt,
	})
	if err != nil {
		return e.Wrap(op, err)
	}

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, c.dbPool)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer func() {
		if err != nil && tx.IsActive() {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				err = errors.Join(err, rbErr)
			}
		}
	}()
	pgxTx, ok := tx.Transaction().(pgx.Tx)
	if !ok {
		return e.Wrap(op, e.ErrTransactionNotFound)
	}
	ctx = tr.WithTx(ctx, pgxTx)

	if err = c.runRepo.Finish(ctx, run); err != nil {
		return e.Wrap(op, err)
	}

	event := &OutboxEvent{
		EventID:     uuid.NewString(),
		EventType:   CatalogIngested,
		AggregateID: run.ID,
		Payload:     payload,
		Status:      Pending,
		CreatedAt:   finishedAt,
	}
	if _, err = c.outboxRepo.Create(ctx, event); err != nil {
		return e.Wrap(op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}
