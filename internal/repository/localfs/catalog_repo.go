// Package localfs читает CSV каталога из локальной директории.
package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/jimlawless/whereami"
)

type CatalogRepo struct {
	dir string
}

func NewCatalogRepo(dir string) *CatalogRepo {
	return &CatalogRepo{dir: dir}
}

func (c *CatalogRepo) Name() string {
	return "dir://" + c.dir
}

// List возвращает пути *.csv в директории (без рекурсии), отсортированные по имени.
func (c *CatalogRepo) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(c.dir, entry.Name()))
	}

	sort.Strings(files)
	return files, nil
}

func (c *CatalogRepo) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return f, nil
}
