package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/DRSN-tech/finsmart-search/internal/domain"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/DRSN-tech/finsmart-search/pkg/logger"
)

// SearchUseCase реализует мультимодальный поиск товаров: нормализация запроса, поиск в индексе, сборка ответа.
type SearchUseCase struct {
	normalizer   *QueryNormalizer
	indexRepo    ProductIndexRepository
	defaultLimit int
	maxLimit     int
	logger       logger.Logger
}

func NewSearchUC(
	normalizer *QueryNormalizer,
	indexRepo ProductIndexRepository,
	defaultLimit int,
	maxLimit int,
	logger logger.Logger,
) *SearchUseCase {
	return &SearchUseCase{
		normalizer:   normalizer,
		indexRepo:    indexRepo,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       logger,
	}
}

// Search выполняет этапы строго последовательно и при ошибке любого из них не возвращает частичных результатов.
func (s *SearchUseCase) Search(ctx context.Context, req *SearchReq) (*domain.SearchResult, error) {
	const op = "SearchUseCase.Search"

	limit, err := s.resolveLimit(req.Limit)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	start := time.Now()
	vector, detected, err := s.normalizer.Normalize(ctx, req)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	embedded := time.Since(start)

	hits, err := s.indexRepo.Search(ctx, vector, limit)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	s.logger.Debugf("%s: modality=%s hits=%d embed=%v total=%v", op, req.Modality, len(hits), embedded, time.Since(start))

	return domain.NewSearchResult(detected, Assemble(hits)), nil
}

// resolveLimit подставляет лимит по умолчанию и отклоняет заведомо неверные значения.
func (s *SearchUseCase) resolveLimit(limit int) (int, error) {
	switch {
	case limit == 0:
		return s.defaultLimit, nil
	case limit < 0 || limit > s.maxLimit:
		return 0, e.Mark(e.ErrInvalidRequest, fmt.Errorf("%w: %d (allowed 1..%d)", e.ErrInvalidLimit, limit, s.maxLimit))
	default:
		return limit, nil
	}
}
