package usecase

import (
	"math"

	"github.com/DRSN-tech/finsmart-search/internal/domain"
)

// UnknownProductName подставляется, если у записи нет названия
const UnknownProductName = "unknown"

// Assemble переводит результаты индекса во внешний контракт.
// Порядок сохраняется, отсутствующие и некорректные поля заменяются значениями по умолчанию.
func Assemble(hits []domain.SearchHit) []domain.ResultEntry {
	entries := make([]domain.ResultEntry, 0, len(hits))
	for _, hit := range hits {
		entry := domain.ResultEntry{
			ProductName: UnknownProductName,
		}

		if hit.ProductName != nil {
			entry.ProductName = *hit.ProductName
		}

		if hit.Price != nil && isValidPrice(*hit.Price) {
			entry.Price = *hit.Price
		}

		if hit.ImageURL != nil {
			entry.ImageURL = *hit.ImageURL
		}

		if !math.IsNaN(float64(hit.Score)) && !math.IsInf(float64(hit.Score), 0) {
			entry.Score = hit.Score
		}

		entries = append(entries, entry)
	}

	return entries
}

func isValidPrice(price float64) bool {
	return !math.IsNaN(price) && !math.IsInf(price, 0) && price >= 0
}
