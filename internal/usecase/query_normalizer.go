package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/DRSN-tech/finsmart-search/internal/domain"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/DRSN-tech/finsmart-search/pkg/logger"
)

const (
	// AllCategories — значение подсказки категории, которое означает «без категории»
	AllCategories = "all categories"
	// ImageDetectedQuery — что система сообщает о понятом запросе для изображения
	ImageDetectedQuery = "image analysis"
)

// QueryNormalizer выбирает способ векторизации по модальности запроса.
type QueryNormalizer struct {
	provider EmbeddingProvider
	tmpDir   string
	logger   logger.Logger
}

func NewQueryNormalizer(provider EmbeddingProvider, tmpDir string, logger logger.Logger) *QueryNormalizer {
	return &QueryNormalizer{
		provider: provider,
		tmpDir:   tmpDir,
		logger:   logger,
	}
}

// Normalize возвращает вектор запроса и человекочитаемое описание того, что было понято.
func (n *QueryNormalizer) Normalize(ctx context.Context, req *SearchReq) (domain.Vector, string, error) {
	const op = "QueryNormalizer.Normalize"

	modality, err := domain.ParseModality(req.Modality)
	if err != nil {
		return nil, "", e.Wrap(op, err)
	}

	switch modality {
	case domain.ModalityText:
		return n.normalizeText(ctx, req)
	case domain.ModalityImage:
		return n.normalizeImage(ctx, req)
	case domain.ModalityAudio:
		return n.normalizeAudio(ctx, req)
	default:
		return nil, "", e.Wrap(op, e.Mark(e.ErrInvalidRequest, e.ErrUnknownModality))
	}
}

func (n *QueryNormalizer) normalizeText(ctx context.Context, req *SearchReq) (domain.Vector, string, error) {
	const op = "QueryNormalizer.normalizeText"

	if strings.TrimSpace(req.QueryText) == "" {
		return nil, "", e.Wrap(op, missingPayload(domain.ModalityText))
	}

	vector, err := n.provider.EmbedText(ctx, BuildTextQuery(req.QueryText, req.CategoryHint))
	if err != nil {
		return nil, "", e.Wrap(op, e.Mark(e.ErrEmbeddingFailure, err))
	}

	return vector, req.QueryText, nil
}

func (n *QueryNormalizer) normalizeImage(ctx context.Context, req *SearchReq) (domain.Vector, string, error) {
	const op = "QueryNormalizer.normalizeImage"

	if req.File == nil || len(req.File.Data) == 0 {
		return nil, "", e.Wrap(op, missingPayload(domain.ModalityImage))
	}

	vector, err := n.provider.EmbedImage(ctx, req.File)
	if err != nil {
		return nil, "", e.Wrap(op, e.Mark(e.ErrEmbeddingFailure, err))
	}

	return vector, ImageDetectedQuery, nil
}

func (n *QueryNormalizer) normalizeAudio(ctx context.Context, req *SearchReq) (domain.Vector, string, error) {
	const op = "QueryNormalizer.normalizeAudio"

	if req.File == nil || len(req.File.Data) == 0 {
		return nil, "", e.Wrap(op, missingPayload(domain.ModalityAudio))
	}

	transcript, err := n.transcribe(ctx, req.File)
	if err != nil {
		return nil, "", e.Wrap(op, err)
	}

	vector, err := n.provider.EmbedText(ctx, transcript)
	if err != nil {
		return nil, "", e.Wrap(op, e.Mark(e.ErrEmbeddingFailure, err))
	}

	return vector, fmt.Sprintf("Audio: '%s'", transcript), nil
}

// transcribe сохраняет аудио во временный файл и распознаёт его.
// Файл удаляется сразу после распознавания при любом исходе.
func (n *QueryNormalizer) transcribe(ctx context.Context, file *QueryFile) (string, error) {
	const op = "QueryNormalizer.transcribe"

	tmp, err := os.CreateTemp(n.tmpDir, "query-audio-*"+AudioExtension(file.MimeType, file.Name))
	if err != nil {
		return "", e.Wrap(op, err)
	}
	path := tmp.Name()
	defer n.removeTemp(path)

	if _, err := tmp.Write(file.Data); err != nil {
		_ = tmp.Close()
		return "", e.Wrap(op, err)
	}

	if err := tmp.Close(); err != nil {
		return "", e.Wrap(op, err)
	}

	transcript, err := n.provider.Transcribe(ctx, path)
	if err != nil {
		return "", e.Wrap(op, e.Mark(e.ErrEmbeddingFailure, err))
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", e.Wrap(op, e.Mark(e.ErrEmbeddingFailure, errors.New("empty transcript")))
	}

	return transcript, nil
}

func (n *QueryNormalizer) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		n.logger.Warnf("failed to remove temporary audio file %s: %v", path, err)
	}
}

// BuildTextQuery добавляет к тексту подсказку категории, если она задана и не равна «all categories».
func BuildTextQuery(text, categoryHint string) string {
	hint := strings.TrimSpace(categoryHint)
	if hint == "" || strings.EqualFold(hint, AllCategories) {
		return text
	}

	return text + ", Category: " + hint
}

func missingPayload(modality domain.Modality) error {
	return e.Mark(e.ErrInvalidRequest, fmt.Errorf("%w: %s", e.ErrMissingPayload, modality))
}
