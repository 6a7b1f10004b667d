package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/DRSN-tech/finsmart-search/internal/domain"
	"github.com/DRSN-tech/finsmart-search/internal/metrics"
	"github.com/DRSN-tech/finsmart-search/internal/usecase"
	"github.com/DRSN-tech/finsmart-search/pkg/logger"
)

// CachedTextEmbedder кэширует векторы текстов. Ошибки кэша только логируются.
type CachedTextEmbedder struct {
	inner  usecase.TextEmbedder
	cache  usecase.EmbeddingCacheRepository
	model  string
	logger logger.Logger
}

func NewCachedTextEmbedder(inner usecase.TextEmbedder, cache usecase.EmbeddingCacheRepository, model string, logger logger.Logger) *CachedTextEmbedder {
	return &CachedTextEmbedder{
		inner:  inner,
		cache:  cache,
		model:  model,
		logger: logger,
	}
}

func (c *CachedTextEmbedder) EmbedText(ctx context.Context, text string) (domain.Vector, error) {
	key := CacheKey(c.model, text)

	vector, ok, err := c.cache.GetEmbedding(ctx, c.model, key)
	switch {
	case err != nil:
		metrics.EmbeddingCacheTotal.WithLabelValues("error").Inc()
		c.logger.Warnf("embedding cache get failed: %v", err)
	case ok:
		metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
		return vector, nil
	default:
		metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()
	}

	vector, err = c.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetEmbedding(ctx, c.model, key, vector); err != nil {
		c.logger.Warnf("embedding cache set failed: %v", err)
	}

	return vector, nil
}

// CacheKey — sha256 от имени модели и текста
func CacheKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
