package usecase

import (
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// CleanPrice разбирает цену из CSV вида "₹1,234" и возвращает 0, если цену разобрать нельзя.
// Удаляются символы валют, запятые и пробелы, остаток должен состоять из цифр и одной точки.
// Отрицательные значения, экспоненциальная запись и переполнение дают 0.
func CleanPrice(raw string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, raw)

	if cleaned == "" || strings.Count(cleaned, ".") > 1 || strings.IndexFunc(cleaned, notPriceRune) >= 0 {
		return 0
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0
	}

	price, _ := d.Float64()
	if math.IsInf(price, 0) || math.IsNaN(price) {
		return 0
	}

	return price
}

// CleanPricePtr — вариант CleanPrice для отсутствующего значения.
func CleanPricePtr(raw *string) float64 {
	if raw == nil {
		return 0
	}

	return CleanPrice(*raw)
}

func notPriceRune(r rune) bool {
	return r != '.' && (r < '0' || r > '9')
}
