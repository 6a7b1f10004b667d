package minio

import (
	"context"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/DRSN-tech/finsmart-search/internal/cfg"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// CatalogRepo отдаёт CSV каталога из бакета MinIO.
type CatalogRepo struct {
	mc     *minio.Client
	bucket string
	prefix string
}

func NewCatalogRepo(mc *minio.Client, cfg *cfg.MinIOCfg, prefix string) *CatalogRepo {
	if prefix == "" {
		prefix = cfg.SourcePrefix
	}

	return &CatalogRepo{
		mc:     mc,
		bucket: cfg.BucketName,
		prefix: prefix,
	}
}

func (c *CatalogRepo) Name() string {
	return "minio://" + path.Join(c.bucket, c.prefix)
}

// List возвращает ключи *.csv под префиксом в лексикографическом порядке.
func (c *CatalogRepo) List(ctx context.Context) ([]string, error) {
	var keys []string
	for obj := range c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    c.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), obj.Err)
		}

		if strings.EqualFold(path.Ext(obj.Key), ".csv") {
			keys = append(keys, obj.Key)
		}
	}

	sort.Strings(keys)
	return keys, nil
}

// Open открывает объект на чтение. Ошибка отсутствия объекта проявится при первом чтении,
// поэтому объект сразу проверяется через Stat.
func (c *CatalogRepo) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return obj, nil
}
