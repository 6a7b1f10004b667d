package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogRepo_ListAndOpen(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"b_kitchen.csv": "name\nKettle\n",
		"a_decor.CSV":   "name\nVase\n",
		"notes.txt":     "ignored",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.csv"), 0o700))

	repo := NewCatalogRepo(dir)
	assert.Equal(t, "dir://"+dir, repo.Name())

	files, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a_decor.CSV"),
		filepath.Join(dir, "b_kitchen.csv"),
	}, files)

	rc, err := repo.Open(context.Background(), files[1])
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "name\nKettle\n", string(data))
}

func TestCatalogRepo_Errors(t *testing.T) {
	repo := NewCatalogRepo(filepath.Join(t.TempDir(), "missing"))

	_, err := repo.List(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = repo.Open(context.Background(), "missing.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
