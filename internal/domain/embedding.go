package domain

import (
	"fmt"

	"github.com/DRSN-tech/finsmart-search/pkg/e"
)

// DefaultVectorSize — размерность общего пространства CLIP ViT-B/32
const DefaultVectorSize = 512

// Vector — эмбеддинг в общем пространстве. После создания не изменяется.
type Vector []float32

// Dim возвращает размерность вектора
func (v Vector) Dim() int {
	return len(v)
}

// CheckDim проверяет, что вектор имеет ровно want координат.
// Векторы текста, изображения и транскрипта сравнимы только при одинаковой длине.
func CheckDim(v Vector, want int) error {
	if len(v) == 0 {
		return e.ErrEmptyVector
	}

	if len(v) != want {
		return fmt.Errorf("%w: got %d, want %d", e.ErrDimensionMismatch, len(v), want)
	}

	return nil
}

// Payload описывает дополнительную информацию вектора
type Payload map[string]any

const (
	PayloadProductName = "product_name"
	PayloadPrice       = "price"
	PayloadImageURL    = "image_url"
)
