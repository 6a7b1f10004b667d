package embedding

import (
	"context"
	"time"

	"github.com/DRSN-tech/finsmart-search/internal/domain"
	"github.com/DRSN-tech/finsmart-search/internal/metrics"
	"github.com/DRSN-tech/finsmart-search/internal/usecase"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
)

// ImageBytesEmbedder векторизует уже подготовленное изображение.
type ImageBytesEmbedder interface {
	EmbedImageBytes(ctx context.Context, data []byte) (domain.Vector, error)
}

// ImagePreparer приводит загруженный файл к входу визуального энкодера.
type ImagePreparer interface {
	Prepare(data []byte, mimeType string) ([]byte, error)
}

// Provider собирает текстовый, визуальный энкодеры и распознавание речи в один поставщик.
// Каждый возвращаемый вектор проверяется на размерность пространства.
type Provider struct {
	text        usecase.TextEmbedder
	image       ImageBytesEmbedder
	preparer    ImagePreparer
	transcriber usecase.Transcriber
	dim         int
}

var _ usecase.EmbeddingProvider = (*Provider)(nil)

func NewProvider(
	text usecase.TextEmbedder,
	image ImageBytesEmbedder,
	preparer ImagePreparer,
	transcriber usecase.Transcriber,
	dim int,
) *Provider {
	return &Provider{
		text:        text,
		image:       image,
		preparer:    preparer,
		transcriber: transcriber,
		dim:         dim,
	}
}

func (p *Provider) Dimensions() int {
	return p.dim
}

func (p *Provider) EmbedText(ctx context.Context, text string) (domain.Vector, error) {
	const op = "Provider.EmbedText"

	start := time.Now()
	vector, err := p.text.EmbedText(ctx, text)
	if err == nil {
		err = domain.CheckDim(vector, p.dim)
	}
	observe("text", start, err)
	if err != nil {
		return nil, e.Mark(e.ErrEmbeddingFailure, e.Wrap(op, err))
	}

	return vector, nil
}

func (p *Provider) EmbedImage(ctx context.Context, image *usecase.QueryFile) (domain.Vector, error) {
	const op = "Provider.EmbedImage"

	start := time.Now()
	vector, err := p.embedImage(ctx, image)
	observe("image", start, err)
	if err != nil {
		return nil, e.Mark(e.ErrEmbeddingFailure, e.Wrap(op, err))
	}

	return vector, nil
}

func (p *Provider) embedImage(ctx context.Context, image *usecase.QueryFile) (domain.Vector, error) {
	prepared, err := p.preparer.Prepare(image.Data, image.MimeType)
	if err != nil {
		return nil, err
	}

	vector, err := p.image.EmbedImageBytes(ctx, prepared)
	if err != nil {
		return nil, err
	}

	if err := domain.CheckDim(vector, p.dim); err != nil {
		return nil, err
	}

	return vector, nil
}

func (p *Provider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	const op = "Provider.Transcribe"

	start := time.Now()
	text, err := p.transcriber.Transcribe(ctx, audioPath)
	observe("transcribe", start, err)
	if err != nil {
		return "", e.Mark(e.ErrEmbeddingFailure, e.Wrap(op, err))
	}

	return text, nil
}

func observe(operation string, start time.Time, err error) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(operation, metrics.Status(err)).Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
