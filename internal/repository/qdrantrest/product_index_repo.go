// Package qdrantrest реализует доступ к Qdrant через REST API.
// Используется там, где открыт только HTTP-порт (например, Qdrant Cloud за прокси).
package qdrantrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/DRSN-tech/finsmart-search/internal/cfg"
	"github.com/DRSN-tech/finsmart-search/internal/domain"
	"github.com/DRSN-tech/finsmart-search/internal/metrics"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/jimlawless/whereami"
)

const (
	backendName     = "rest"
	apiKeyHeader    = "api-key"
	maxResponseSize = 32 << 20
)

// ProductIndexRepo репозиторий товарных векторов в Qdrant поверх REST
type ProductIndexRepo struct {
	httpClient *http.Client
	cfg        *cfg.QdrantCfg
}

func NewProductIndexRepo(httpClient *http.Client, cfg *cfg.QdrantCfg) *ProductIndexRepo {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &ProductIndexRepo{
		httpClient: httpClient,
		cfg:        cfg,
	}
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type pointRequest struct {
	ID      uint64         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type upsertRequest struct {
	Points []pointRequest `json:"points"`
}

type vectorParams struct {
	Size     uint64 `json:"size"`
	Distance string `json:"distance"`
}

type createCollectionRequest struct {
	Vectors vectorParams `json:"vectors"`
}

// Search возвращает limit ближайших по косинусу точек вместе с payload. Повторов нет.
func (q *ProductIndexRepo) Search(ctx context.Context, vector domain.Vector, limit int) ([]domain.SearchHit, error) {
	ctx, cancel := context.WithTimeout(ctx, q.cfg.Timeout)
	defer cancel()

	body, err := q.do(ctx, http.MethodPost, q.collectionPath("/points/search"), searchRequest{
		Vector:      vector,
		Limit:       limit,
		WithPayload: true,
	})
	metrics.IndexRequestsTotal.WithLabelValues(backendName, "search", metrics.Status(err)).Inc()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	hits, err := ParseSearchResponse(body)
	if err != nil {
		return nil, e.Mark(e.ErrIndexQuery, e.Wrap(whereami.WhereAmI(), err))
	}

	return hits, nil
}

// Upsert сохраняет или обновляет записи каталога и ждёт их применения.
func (q *ProductIndexRepo) Upsert(ctx context.Context, records []domain.ProductRecord) error {
	points := make([]pointRequest, 0, len(records))
	for _, record := range records {
		points = append(points, pointRequest{
			ID:      record.ID,
			Vector:  record.Embedding,
			Payload: record.Payload(),
		})
	}

	_, err := q.do(ctx, http.MethodPut, q.collectionPath("/points?wait=true"), upsertRequest{Points: points})
	metrics.IndexRequestsTotal.WithLabelValues(backendName, "upsert", metrics.Status(err)).Inc()
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Reset удаляет коллекцию со всеми точками и создаёт пустую с косинусной метрикой.
func (q *ProductIndexRepo) Reset(ctx context.Context) error {
	if _, err := q.do(ctx, http.MethodDelete, q.collectionPath(""), nil); err != nil && !isNotFound(err) {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := q.do(ctx, http.MethodPut, q.collectionPath(""), createCollectionRequest{
		Vectors: vectorParams{Size: q.cfg.VectorSize, Distance: "Cosine"},
	}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// EnsureCollection создаёт коллекцию, если её нет, и проверяет размерность существующей.
func (q *ProductIndexRepo) EnsureCollection(ctx context.Context) error {
	body, err := q.do(ctx, http.MethodGet, q.collectionPath(""), nil)
	if isNotFound(err) {
		if _, err := q.do(ctx, http.MethodPut, q.collectionPath(""), createCollectionRequest{
			Vectors: vectorParams{Size: q.cfg.VectorSize, Distance: "Cosine"},
		}); err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}
		return nil
	}
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	size, err := parseCollectionSize(body)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if size != q.cfg.VectorSize {
		return fmt.Errorf("%w: collection %s has vector size %d, VECTOR_SIZE is %d",
			e.ErrDimensionMismatch, q.cfg.QdrantCollectionName, size, q.cfg.VectorSize)
	}

	return nil
}

func (q *ProductIndexRepo) collectionPath(suffix string) string {
	return "/collections/" + url.PathEscape(q.cfg.QdrantCollectionName) + suffix
}

// statusError — ответ индекса с неуспешным HTTP-статусом
type statusError struct {
	code    int
	message string
}

func (s *statusError) Error() string {
	return fmt.Sprintf("qdrant responded %d: %s", s.code, s.message)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

// do выполняет запрос и классифицирует ошибку: сеть, таймаут и 502/503/504 — индекс недоступен,
// остальные неуспешные ответы — ошибка запроса.
func (q *ProductIndexRepo) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, e.Mark(e.ErrIndexQuery, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.cfg.RestURL+path, reqBody)
	if err != nil {
		return nil, e.Mark(e.ErrIndexQuery, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.cfg.ApiKey != "" {
		req.Header.Set(apiKeyHeader, q.cfg.ApiKey)
	}

	start := time.Now()
	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, e.Mark(e.ErrIndexUnavailable, fmt.Errorf("%s %s after %v: %w", method, path, time.Since(start), err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, e.Mark(e.ErrIndexUnavailable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	se := &statusError{code: resp.StatusCode, message: errorMessage(body)}
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return nil, e.Mark(e.ErrIndexUnavailable, se)
	default:
		return nil, e.Mark(e.ErrIndexQuery, se)
	}
}

// errorMessage достаёт текст ошибки из тела вида {"status":{"error":"..."}}
func errorMessage(body []byte) string {
	var parsed struct {
		Status struct {
			Error string `json:"error"`
		} `json:"status"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Status.Error != "" {
		return parsed.Status.Error
	}

	const maxLen = 256
	if len(body) > maxLen {
		return string(body[:maxLen])
	}
	return string(body)
}
