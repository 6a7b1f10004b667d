package e

import (
	"errors"
	"fmt"
)

// Категории ошибок, которые видит клиент
const (
	CategoryInvalidRequest   = "InvalidRequest"
	CategoryEmbeddingFailure = "EmbeddingFailure"
	CategoryIndexUnavailable = "IndexUnavailable"
	CategoryIndexQueryError  = "IndexQueryError"
	CategoryInternal         = "Internal"
)

var (
	// Таксономия ошибок поиска
	ErrInvalidRequest   = fmt.Errorf("invalid request")
	ErrEmbeddingFailure = fmt.Errorf("embedding failure")
	ErrIndexUnavailable = fmt.Errorf("vector index unavailable")
	ErrIndexQuery       = fmt.Errorf("vector index query error")

	// 400 Bad Request
	ErrUnknownModality      = fmt.Errorf("unknown modality")
	ErrMissingPayload       = fmt.Errorf("payload required for modality is missing")
	ErrExpectedMultipart    = fmt.Errorf("expected multipart/form-data")
	ErrFileTooLarge         = fmt.Errorf("file too large")
	ErrInvalidLimit         = fmt.Errorf("invalid limit")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")

	// Внутренние ошибки с векторами
	ErrDimensionMismatch = fmt.Errorf("vector dimension mismatch")
	ErrEmptyVector       = fmt.Errorf("vector embedding is empty")

	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")
	ErrInternalServerError  = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// Mark помечает ошибку категорией из таксономии, сохраняя исходную причину.
func Mark(kind error, err error) error {
	return fmt.Errorf("%w: %w", kind, err)
}

// Category возвращает машиночитаемую категорию ошибки.
func Category(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return CategoryInvalidRequest
	case errors.Is(err, ErrEmbeddingFailure):
		return CategoryEmbeddingFailure
	case errors.Is(err, ErrIndexUnavailable):
		return CategoryIndexUnavailable
	case errors.Is(err, ErrIndexQuery):
		return CategoryIndexQueryError
	default:
		return CategoryInternal
	}
}
