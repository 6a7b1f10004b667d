package minio

import (
	"testing"

	"github.com/DRSN-tech/finsmart-search/internal/cfg"
	"github.com/stretchr/testify/assert"
)

func TestCatalogRepo_Name(t *testing.T) {
	c := &cfg.MinIOCfg{BucketName: "catalog", SourcePrefix: "data/"}

	assert.Equal(t, "minio://catalog/data", NewCatalogRepo(nil, c, "").Name())
	assert.Equal(t, "minio://catalog/exports/2024", NewCatalogRepo(nil, c, "exports/2024/").Name())
}
