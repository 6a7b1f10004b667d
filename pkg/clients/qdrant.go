package clients

import (
	"context"
	"fmt"

	config "github.com/DRSN-tech/finsmart-search/internal/cfg"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

type QdrantClient struct {
	Client *qdrant.Client
	cfg    *config.QdrantCfg
}

func NewQdrantClient(cfg *config.QdrantCfg) (*QdrantClient, error) {
	qdrantClient, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.ApiKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &QdrantClient{
		Client: qdrantClient,
		cfg:    cfg,
	}, nil
}

// EnsureCollection создаёт коллекцию, если её нет.
// Если коллекция уже есть с другой размерностью, это ошибка конфигурации.
func EnsureCollection(ctx context.Context, client *QdrantClient) error {
	name := client.cfg.QdrantCollectionName

	exists, err := client.Client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		if err := CreateCollection(ctx, client); err != nil {
			return err
		}
		return nil
	}

	info, err := client.Client.GetCollectionInfo(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}

	size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size != client.cfg.VectorSize {
		return fmt.Errorf("%w: collection %s has vector size %d, VECTOR_SIZE is %d",
			e.ErrDimensionMismatch, name, size, client.cfg.VectorSize)
	}

	return nil
}

// CreateCollection создаёт коллекцию с косинусной метрикой и размерностью VECTOR_SIZE
func CreateCollection(ctx context.Context, client *QdrantClient) error {
	if err := client.Client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: client.cfg.QdrantCollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     client.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	}); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}
