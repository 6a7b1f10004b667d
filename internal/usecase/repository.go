package usecase

import (
	"context"

	"github.com/DRSN-tech/finsmart-search/internal/domain"
)

// ProductIndexRepository выполняет поиск ближайших соседей во внешнем векторном индексе.
type ProductIndexRepository interface {
	Search(ctx context.Context, vector domain.Vector, limit int) ([]domain.SearchHit, error)
}

// ProductIndexWriter — путь записи в индекс, используется только загрузкой каталога.
type ProductIndexWriter interface {
	Upsert(ctx context.Context, records []domain.ProductRecord) error
	Reset(ctx context.Context) error
}

type IngestionRunRepository interface {
	Create(ctx context.Context, run *IngestionRun) (*IngestionRun, error)
	Finish(ctx context.Context, run *IngestionRun) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	MarkAsFailed(ctx context.Context, id int64, reason string) error
}

// EmbeddingCacheRepository хранит векторы текстов, уже посчитанные моделью.
type EmbeddingCacheRepository interface {
	GetEmbedding(ctx context.Context, model, key string) (domain.Vector, bool, error)
	SetEmbedding(ctx context.Context, model, key string, vector domain.Vector) error
}
