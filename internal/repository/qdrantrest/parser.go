package qdrantrest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/DRSN-tech/finsmart-search/internal/domain"
)

type scoredPoint struct {
	ID      json.RawMessage            `json:"id"`
	Score   float32                    `json:"score"`
	Payload map[string]json.RawMessage `json:"payload"`
}

type searchResponse struct {
	Result []scoredPoint `json:"result"`
}

// ParseSearchResponse переводит JSON-ответ поиска в канонические результаты, сохраняя порядок.
// Нечисловая цена и нестроковые имя или ссылка считаются отсутствующими.
func ParseSearchResponse(body []byte) ([]domain.SearchHit, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]domain.SearchHit, 0, len(resp.Result))
	for _, point := range resp.Result {
		hits = append(hits, domain.SearchHit{
			ID:          rawID(point.ID),
			ProductName: rawString(point.Payload[domain.PayloadProductName]),
			Price:       rawNumber(point.Payload[domain.PayloadPrice]),
			ImageURL:    rawString(point.Payload[domain.PayloadImageURL]),
			Score:       point.Score,
		})
	}

	return hits, nil
}

// rawID: идентификатор точки — целое число или UUID-строка
func rawID(raw json.RawMessage) string {
	if s := rawString(raw); s != nil {
		return *s
	}
	return strings.TrimSpace(string(raw))
}

func rawString(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

func rawNumber(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	return &f
}

type collectionInfoResponse struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors json.RawMessage `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// parseCollectionSize достаёт размерность безымянного вектора коллекции
func parseCollectionSize(body []byte) (uint64, error) {
	var info collectionInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return 0, fmt.Errorf("decode collection info: %w", err)
	}

	var params struct {
		Size uint64 `json:"size"`
	}
	if err := json.Unmarshal(info.Result.Config.Params.Vectors, &params); err != nil || params.Size == 0 {
		return 0, fmt.Errorf("collection has no single unnamed vector config")
	}

	return params.Size, nil
}
