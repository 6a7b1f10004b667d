package clients

import (
	"context"
	"time"

	"github.com/DRSN-tech/finsmart-search/internal/cfg"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

// redisPingTimeout ограничивает проверку соединения при старте
const redisPingTimeout = 5 * time.Second

// RedisClient — подключение к Redis, в котором хранятся векторы текстовых запросов.
type RedisClient struct {
	Client *r.Client
}

// ConnectRedis открывает пул и сразу проверяет доступность сервера.
// При ошибке пул закрывается, вызывающий решает, работать ли без кэша.
func ConnectRedis(ctx context.Context, cfg *cfg.RedisCfg) (*RedisClient, error) {
	client := r.NewClient(&r.Options{
		Addr:            cfg.Addr,
		Username:        cfg.User,
		Password:        cfg.Password,
		DB:              cfg.DB,
		MaxRetries:      cfg.MaxRetries,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.Timeout,
		WriteTimeout:    cfg.Timeout,
		ClientName:      "finsmart-search",
		DisableIdentity: true,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &RedisClient{Client: client}, nil
}

func (c *RedisClient) Close() error {
	return c.Client.Close()
}
