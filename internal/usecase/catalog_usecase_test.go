package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/DRSN-tech/finsmart-search/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogHeader = "name,main_category,sub_category,image,discount_price,actual_price\n"

func catalogCSV(names ...string) string {
	var b strings.Builder
	b.WriteString(catalogHeader)
	for i, name := range names {
		fmt.Fprintf(&b, "%s,Home,Decor,https://img/%d.jpg,\"₹%d\",\"₹%d\"\n", name, i, (i+1)*100, (i+1)*150)
	}
	return b.String()
}

func newCatalogUC(provider *fakeProvider, writer *fakeWriter, batchSize, maxRetries int) *CatalogUseCase {
	return NewCatalogUC(provider, writer, nil, nil, nil, "products", batchSize, maxRetries, logger.NewNopLogger())
}

func TestIngest_BatchesAndPositionalIDs(t *testing.T) {
	provider := &fakeProvider{}
	writer := &fakeWriter{}
	uc := newCatalogUC(provider, writer, 2, 3)

	source := newFakeSource(
		"a.csv", catalogCSV("Vase", "Lamp", "Rug"),
		"b.csv", catalogCSV("Clock", "Mirror"),
	)

	report, err := uc.Ingest(context.Background(), source)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Files)
	assert.Equal(t, 5, report.RowsRead)
	assert.Zero(t, report.RowsSkipped)
	assert.Equal(t, 5, report.PointsWritten)
	assert.Zero(t, report.PointsLost)

	// Пачка собирается через границу файлов: 2 + 2 + 1
	require.Len(t, writer.batches, 3)
	assert.Len(t, writer.batches[0], 2)
	assert.Len(t, writer.batches[1], 2)
	assert.Len(t, writer.batches[2], 1)

	records := writer.written()
	for i, r := range records {
		assert.Equal(t, uint64(i), r.ID)
	}
	assert.Equal(t, "Vase", records[0].ProductName)
	assert.Equal(t, 100.0, records[0].Price)
	assert.Equal(t, "https://img/0.jpg", records[0].ImageURL)
	assert.Equal(t, "Clock", records[3].ProductName)

	assert.Contains(t, provider.texts, "Lamp. Category: Home Decor")
}

func TestIngest_SkipsRowsThatFailToEmbed(t *testing.T) {
	provider := &fakeProvider{failTexts: map[string]bool{"Lamp. Category: Home Decor": true}}
	writer := &fakeWriter{}
	uc := newCatalogUC(provider, writer, 10, 1)

	report, err := uc.Ingest(context.Background(), newFakeSource("a.csv", catalogCSV("Vase", "Lamp", "Rug")))
	require.NoError(t, err)

	assert.Equal(t, 3, report.RowsRead)
	assert.Equal(t, 1, report.RowsSkipped)
	assert.Equal(t, 2, report.PointsWritten)

	records := writer.written()
	require.Len(t, records, 2)
	assert.Equal(t, uint64(0), records[0].ID)
	assert.Equal(t, uint64(2), records[1].ID, "a skipped row still consumes its id")
}

func TestIngest_RetriesFailedBatch(t *testing.T) {
	writer := &fakeWriter{failures: 1}
	uc := newCatalogUC(&fakeProvider{}, writer, 10, 2)

	report, err := uc.Ingest(context.Background(), newFakeSource("a.csv", catalogCSV("Vase", "Lamp")))
	require.NoError(t, err)

	assert.Equal(t, 2, writer.calls)
	assert.Equal(t, 2, report.PointsWritten)
	assert.Zero(t, report.BatchesFailed)
}

func TestIngest_LostBatchDoesNotAbortRun(t *testing.T) {
	writer := &fakeWriter{alwaysErr: errors.New("index is read-only")}
	uc := newCatalogUC(&fakeProvider{}, writer, 2, 1)

	report, err := uc.Ingest(context.Background(), newFakeSource("a.csv", catalogCSV("Vase", "Lamp", "Rug")))
	require.NoError(t, err)

	assert.Equal(t, 2, writer.calls)
	assert.Equal(t, 2, report.BatchesFailed)
	assert.Equal(t, 3, report.PointsLost)
	assert.Zero(t, report.PointsWritten)
	assert.Equal(t, 3, report.RowsRead)
}

func TestIngest_MalformedRowsCounted(t *testing.T) {
	input := catalogHeader +
		"Vase,Home,Decor,,₹10,₹20\n" +
		"\"Broken,Home,Decor,,₹10\n"

	writer := &fakeWriter{}
	uc := newCatalogUC(&fakeProvider{}, writer, 10, 1)

	report, err := uc.Ingest(context.Background(), newFakeSource("a.csv", input))
	require.NoError(t, err)

	assert.Equal(t, report.RowsRead, report.PointsWritten+report.RowsSkipped)
	assert.GreaterOrEqual(t, report.PointsWritten, 1)
}

func TestIngest_SourceErrors(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		uc := newCatalogUC(&fakeProvider{}, &fakeWriter{}, 10, 1)
		source := newFakeSource()
		source.listErr = errors.New("bucket not found")

		report, err := uc.Ingest(context.Background(), source)
		require.Error(t, err)
		assert.Nil(t, report)
	})

	t.Run("open", func(t *testing.T) {
		writer := &fakeWriter{}
		uc := newCatalogUC(&fakeProvider{}, writer, 10, 1)
		source := newFakeSource("a.csv", catalogCSV("Vase"))
		source.order = append(source.order, "missing.csv")

		report, err := uc.Ingest(context.Background(), source)
		require.Error(t, err)
		require.NotNil(t, report)
		assert.Equal(t, 1, report.Files)
		assert.Empty(t, writer.batches, "pending batch is not flushed after a failed file")
	})
}

func TestIngest_CancelledContext(t *testing.T) {
	writer := &fakeWriter{}
	uc := newCatalogUC(&fakeProvider{}, writer, 10, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := uc.Ingest(ctx, newFakeSource("a.csv", catalogCSV("Vase")))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, writer.calls)
}

func TestResetIndex(t *testing.T) {
	writer := &fakeWriter{}
	uc := newCatalogUC(&fakeProvider{}, writer, 10, 1)
	require.NoError(t, uc.ResetIndex(context.Background()))
	assert.Equal(t, 1, writer.resets)

	writer.resetErr = errors.New("forbidden")
	assert.ErrorIs(t, uc.ResetIndex(context.Background()), writer.resetErr)
}
