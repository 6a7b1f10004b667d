package qdrant

import (
	"context"
	"errors"
	"strconv"

	"github.com/DRSN-tech/finsmart-search/internal/cfg"
	"github.com/DRSN-tech/finsmart-search/internal/domain"
	"github.com/DRSN-tech/finsmart-search/internal/metrics"
	"github.com/DRSN-tech/finsmart-search/pkg/clients"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const backendName = "grpc"

// ProductIndexRepo репозиторий товарных векторов в Qdrant поверх gRPC
type ProductIndexRepo struct {
	client *clients.QdrantClient
	cfg    *cfg.QdrantCfg
}

func NewProductIndexRepo(client *clients.QdrantClient, cfg *cfg.QdrantCfg) *ProductIndexRepo {
	return &ProductIndexRepo{
		client: client,
		cfg:    cfg,
	}
}

// Search возвращает limit ближайших по косинусу точек вместе с payload. Повторов нет.
func (q *ProductIndexRepo) Search(ctx context.Context, vector domain.Vector, limit int) ([]domain.SearchHit, error) {
	ctx, cancel := context.WithTimeout(ctx, q.cfg.Timeout)
	defer cancel()

	points, err := q.client.Client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	metrics.IndexRequestsTotal.WithLabelValues(backendName, "search", metrics.Status(err)).Inc()
	if err != nil {
		return nil, classifyError(e.Wrap(whereami.WhereAmI(), err))
	}

	return ParseScoredPoints(points), nil
}

// Upsert сохраняет или обновляет записи каталога и ждёт их применения.
func (q *ProductIndexRepo) Upsert(ctx context.Context, records []domain.ProductRecord) error {
	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, record := range records {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(record.ID),
			Vectors: qdrant.NewVectors(record.Embedding...),
			Payload: qdrant.NewValueMap(record.Payload()),
		})
	}

	_, err := q.client.Client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	metrics.IndexRequestsTotal.WithLabelValues(backendName, "upsert", metrics.Status(err)).Inc()
	if err != nil {
		return classifyError(e.Wrap(whereami.WhereAmI(), err))
	}

	return nil
}

// Reset удаляет коллекцию со всеми точками и создаёт пустую с той же конфигурацией.
func (q *ProductIndexRepo) Reset(ctx context.Context) error {
	exists, err := q.client.Client.CollectionExists(ctx, q.cfg.QdrantCollectionName)
	if err != nil {
		return classifyError(e.Wrap(whereami.WhereAmI(), err))
	}

	if exists {
		if err := q.client.Client.DeleteCollection(ctx, q.cfg.QdrantCollectionName); err != nil {
			return classifyError(e.Wrap(whereami.WhereAmI(), err))
		}
	}

	if err := clients.CreateCollection(ctx, q.client); err != nil {
		return classifyError(e.Wrap(whereami.WhereAmI(), err))
	}

	return nil
}

// EnsureCollection создаёт коллекцию, если её нет, и проверяет размерность существующей.
func (q *ProductIndexRepo) EnsureCollection(ctx context.Context) error {
	if err := clients.EnsureCollection(ctx, q.client); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// ParseScoredPoints переводит ответ Qdrant в канонические результаты, сохраняя порядок
func ParseScoredPoints(points []*qdrant.ScoredPoint) []domain.SearchHit {
	hits := make([]domain.SearchHit, 0, len(points))
	for _, point := range points {
		payload := point.GetPayload()
		hits = append(hits, domain.SearchHit{
			ID:          pointID(point.GetId()),
			ProductName: stringValue(payload[domain.PayloadProductName]),
			Price:       numberValue(payload[domain.PayloadPrice]),
			ImageURL:    stringValue(payload[domain.PayloadImageURL]),
			Score:       point.GetScore(),
		})
	}

	return hits
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}

	switch v := id.GetPointIdOptions().(type) {
	case *qdrant.PointId_Num:
		return strconv.FormatUint(v.Num, 10)
	case *qdrant.PointId_Uuid:
		return v.Uuid
	default:
		return ""
	}
}

func stringValue(v *qdrant.Value) *string {
	s, ok := v.GetKind().(*qdrant.Value_StringValue)
	if !ok {
		return nil
	}

	return &s.StringValue
}

// numberValue возвращает nil для нечисловых значений, их заменит значение по умолчанию
func numberValue(v *qdrant.Value) *float64 {
	var f float64
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_DoubleValue:
		f = kind.DoubleValue
	case *qdrant.Value_IntegerValue:
		f = float64(kind.IntegerValue)
	default:
		return nil
	}

	return &f
}

// classifyError отделяет недоступность индекса от отказа в выполнении запроса
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return e.Mark(e.ErrIndexUnavailable, err)
	}

	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.Aborted, codes.ResourceExhausted:
		return e.Mark(e.ErrIndexUnavailable, err)
	default:
		return e.Mark(e.ErrIndexQuery, err)
	}
}
