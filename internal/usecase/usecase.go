package usecase

import (
	"context"

	"github.com/DRSN-tech/finsmart-search/internal/domain"
)

type SearchUC interface {
	Search(ctx context.Context, req *SearchReq) (*domain.SearchResult, error)
}

type CatalogUC interface {
	Ingest(ctx context.Context, source CatalogSource) (*IngestReport, error)
	ResetIndex(ctx context.Context) error
}
