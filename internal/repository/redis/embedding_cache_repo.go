package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DRSN-tech/finsmart-search/internal/cfg"
	"github.com/DRSN-tech/finsmart-search/internal/domain"
	"github.com/DRSN-tech/finsmart-search/pkg/clients"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/DRSN-tech/finsmart-search/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

// embeddingRedisModel — представление вектора в кэше
type embeddingRedisModel struct {
	Model  string    `json:"model"`
	Vector []float32 `json:"vector"`
}

type EmbeddingCacheRepo struct {
	client *clients.RedisClient
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewEmbeddingCacheRepo(client *clients.RedisClient, cfg *cfg.RedisCfg, logger logger.Logger) *EmbeddingCacheRepo {
	return &EmbeddingCacheRepo{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// GetEmbedding возвращает закэшированный вектор. Промах — (nil, false, nil).
// Запись другой модели считается промахом и удаляется.
func (c *EmbeddingCacheRepo) GetEmbedding(ctx context.Context, model, key string) (domain.Vector, bool, error) {
	data, err := c.client.Client.Get(ctx, embeddingKey(key)).Bytes()
	if errors.Is(err, r.Nil) {
		return nil, false, nil // cache miss
	}
	if err != nil {
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}

	var cached embeddingRedisModel
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}

	if cached.Model != model || len(cached.Vector) == 0 {
		c.logger.Warnf("Cache model mismatch: key: %s, cached: %q, want: %q", key, cached.Model, model)
		if err := c.client.Client.Del(ctx, embeddingKey(key)).Err(); err != nil {
			c.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
		}
		return nil, false, nil
	}

	return domain.Vector(cached.Vector), true, nil
}

// SetEmbedding кэширует вектор с TTL из конфигурации
func (c *EmbeddingCacheRepo) SetEmbedding(ctx context.Context, model, key string, vector domain.Vector) error {
	data, err := json.Marshal(embeddingRedisModel{Model: model, Vector: vector})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := c.client.Client.Set(ctx, embeddingKey(key), data, c.cfg.EmbeddingTTL).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// embeddingKey возвращает Redis-ключ для одного вектора
func embeddingKey(key string) string {
	return fmt.Sprintf("embedding:%s", key)
}
