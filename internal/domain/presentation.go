package domain

import "strings"

// Хелперы для слоя отображения. Поиск их не применяет.

const noImageMarker = "nan"

// HasImage сообщает, есть ли у товара изображение. Пустая строка и "nan" равнозначны.
func HasImage(imageURL string) bool {
	url := strings.TrimSpace(imageURL)
	return url != "" && !strings.EqualFold(url, noImageMarker)
}

// DisplayName обрезает название для карточки товара. Хранимое название не обрезается.
func DisplayName(name string, maxRunes int) string {
	runes := []rune(name)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return name
	}

	return string(runes[:maxRunes]) + "..."
}

// BudgetVerdict — результат сравнения цены с бюджетом пользователя
type BudgetVerdict string

const (
	BudgetUnknown BudgetVerdict = "unknown"
	BudgetWithin  BudgetVerdict = "within"
	BudgetOver    BudgetVerdict = "over"
)

// CompareBudget сравнивает цену с бюджетом. Цена, равная бюджету, укладывается в него.
func CompareBudget(price, budget float64) BudgetVerdict {
	switch {
	case price == 0:
		return BudgetUnknown
	case price <= budget:
		return BudgetWithin
	default:
		return BudgetOver
	}
}
