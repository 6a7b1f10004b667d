package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/DRSN-tech/finsmart-search/internal/domain"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/DRSN-tech/finsmart-search/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSearchUC(t *testing.T, provider *fakeProvider, index *fakeIndex) *SearchUseCase {
	t.Helper()
	normalizer := NewQueryNormalizer(provider, t.TempDir(), logger.NewNopLogger())
	return NewSearchUC(normalizer, index, 5, 100, logger.NewNopLogger())
}

func TestSearch_TextEndToEnd(t *testing.T) {
	index := &fakeIndex{hits: []domain.SearchHit{
		{ID: "7", ProductName: strPtr("Running Shoes"), Price: floatPtr(1299), ImageURL: strPtr("https://img/7.jpg"), Score: 0.91},
		{ID: "3", ProductName: strPtr("Trail Shoes"), Score: 0.85},
	}}
	uc := newSearchUC(t, &fakeProvider{}, index)

	res, err := uc.Search(context.Background(), NewSearchReq("text", "shoes", nil, "", 0))
	require.NoError(t, err)

	assert.Equal(t, "shoes", res.DetectedQuery)
	assert.Equal(t, []domain.ResultEntry{
		{ProductName: "Running Shoes", Price: 1299, ImageURL: "https://img/7.jpg", Score: 0.91},
		{ProductName: "Trail Shoes", Price: 0, ImageURL: "", Score: 0.85},
	}, res.Results)

	assert.Equal(t, 5, index.limit)
	assert.Equal(t, vec(1), index.vector)
}

func TestSearch_Limits(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
		wantErr   bool
	}{
		{name: "default", limit: 0, wantLimit: 5},
		{name: "explicit", limit: 12, wantLimit: 12},
		{name: "cap", limit: 100, wantLimit: 100},
		{name: "above cap", limit: 101, wantErr: true},
		{name: "negative", limit: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{}
			index := &fakeIndex{}
			uc := newSearchUC(t, provider, index)

			_, err := uc.Search(context.Background(), NewSearchReq("text", "q", nil, "", tt.limit))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, e.ErrInvalidLimit)
				assert.Equal(t, e.CategoryInvalidRequest, e.Category(err))
				assert.Empty(t, provider.texts, "embedding must not run for an invalid limit")
				assert.Zero(t, index.calls)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, index.limit)
		})
	}
}

func TestSearch_EmptyIndexReturnsEmptyResults(t *testing.T) {
	uc := newSearchUC(t, &fakeProvider{}, &fakeIndex{})

	res, err := uc.Search(context.Background(), NewSearchReq("image", "", NewQueryFile([]byte{1, 2}, "image/png", "x.png"), "", 3))
	require.NoError(t, err)

	assert.Equal(t, ImageDetectedQuery, res.DetectedQuery)
	assert.NotNil(t, res.Results)
	assert.Empty(t, res.Results)
}

func TestSearch_FailsFast(t *testing.T) {
	t.Run("embedding failure skips the index", func(t *testing.T) {
		index := &fakeIndex{}
		uc := newSearchUC(t, &fakeProvider{textErr: errors.New("model crashed")}, index)

		res, err := uc.Search(context.Background(), NewSearchReq("text", "q", nil, "", 0))
		require.Error(t, err)
		assert.Nil(t, res)
		assert.Equal(t, e.CategoryEmbeddingFailure, e.Category(err))
		assert.Zero(t, index.calls)
	})

	t.Run("index errors propagate with their category", func(t *testing.T) {
		for _, kind := range []error{e.ErrIndexUnavailable, e.ErrIndexQuery} {
			index := &fakeIndex{err: e.Mark(kind, fmt.Errorf("backend said no"))}
			uc := newSearchUC(t, &fakeProvider{}, index)

			res, err := uc.Search(context.Background(), NewSearchReq("text", "q", nil, "", 0))
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, kind)
		}
	})
}

func TestAssemble(t *testing.T) {
	hits := []domain.SearchHit{
		{ID: "1", ProductName: strPtr("A"), Price: floatPtr(10.5), ImageURL: strPtr("nan"), Score: 0.9},
		{ID: "2", Score: 0.8},
		{ID: "3", ProductName: strPtr("C"), Price: floatPtr(math.NaN()), Score: 0.7},
		{ID: "4", ProductName: strPtr("D"), Price: floatPtr(-4), Score: float32(math.Inf(1))},
	}

	got := Assemble(hits)

	assert.Equal(t, []domain.ResultEntry{
		{ProductName: "A", Price: 10.5, ImageURL: "nan", Score: 0.9},
		{ProductName: UnknownProductName, Price: 0, ImageURL: "", Score: 0.8},
		{ProductName: "C", Price: 0, ImageURL: "", Score: 0.7},
		{ProductName: "D", Price: 0, ImageURL: "", Score: 0},
	}, got)
}

func TestAssemble_KeepsBackendOrder(t *testing.T) {
	hits := []domain.SearchHit{
		{ID: "a", ProductName: strPtr("A"), Score: 0.9},
		{ID: "b", ProductName: strPtr("B"), Score: 0.95},
		{ID: "c", ProductName: strPtr("C"), Score: 0.3},
	}

	got := Assemble(hits)

	require.Len(t, got, 3)
	scores := []float32{got[0].Score, got[1].Score, got[2].Score}
	assert.Equal(t, []float32{0.9, 0.95, 0.3}, scores)
	assert.Equal(t, []string{"A", "B", "C"}, []string{got[0].ProductName, got[1].ProductName, got[2].ProductName})
}

func TestAssemble_Empty(t *testing.T) {
	got := Assemble(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
