package pgdb

import (
	"context"
	"fmt"

	"github.com/DRSN-tech/finsmart-search/internal/usecase"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/DRSN-tech/finsmart-search/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// IngestionRunRepo ведёт журнал запусков загрузки каталога
type IngestionRunRepo struct {
	pool *pgxpool.Pool
}

func NewIngestionRunRepo(pool *pgxpool.Pool) *IngestionRunRepo {
	return &IngestionRunRepo{
		pool: pool,
	}
}

// Create регистрирует запуск в статусе running вне транзакции, чтобы он был виден сразу
func (r *IngestionRunRepo) Create(ctx context.Context, run *usecase.IngestionRun) (*usecase.IngestionRun, error) {
	query := `
		INSERT INTO ingestion_runs (id, source, collection, status, started_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING started_at;
	`

	created := *run
	if err := r.pool.QueryRow(ctx, query,
		run.ID,
		run.Source,
		run.Collection,
		run.Status,
		run.StartedAt,
	).Scan(&created.StartedAt); err != nil {
		if postgresDuplicate(err) {
			return nil, fmt.Errorf("%s: run with id %s already exists", whereami.WhereAmI(), run.ID)
		}

		return nil, fmt.Errorf("%s: failed to insert run: %w", whereami.WhereAmI(), err)
	}

	return &created, nil
}

// Finish записывает итог запуска. Выполняется в транзакции из контекста.
func (r *IngestionRunRepo) Finish(ctx context.Context, run *usecase.IngestionRun) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		UPDATE ingestion_runs
		SET status = $2,
			files = $3,
			rows_read = $4,
			rows_skipped = $5,
			points_written = $6,
			points_lost = $7,
			batches_failed = $8,
			finished_at = $9
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query,
		run.ID,
		run.Status,
		run.Report.Files,
		run.Report.RowsRead,
		run.Report.RowsSkipped,
		run.Report.PointsWritten,
		run.Report.PointsLost,
		run.Report.BatchesFailed,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to finish run %s: %w", whereami.WhereAmI(), run.ID, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: run %s not found", whereami.WhereAmI(), run.ID)
	}

	return nil
}
