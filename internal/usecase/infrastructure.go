package usecase

import (
	"context"
	"io"

	"github.com/DRSN-tech/finsmart-search/internal/domain"
)

// TextEmbedder переводит текст в вектор общего пространства.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) (domain.Vector, error)
}

// ImageEmbedder переводит изображение в вектор того же пространства, что и текст.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, image *QueryFile) (domain.Vector, error)
}

// Transcriber распознаёт речь из аудиофайла на диске.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// EmbeddingProvider объединяет все модальности в одном пространстве фиксированной размерности.
type EmbeddingProvider interface {
	TextEmbedder
	ImageEmbedder
	Transcriber
	Dimensions() int
}

// CatalogSource отдаёт исходные CSV-файлы каталога для загрузки в индекс.
type CatalogSource interface {
	Name() string
	List(ctx context.Context) ([]string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}
