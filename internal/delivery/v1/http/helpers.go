package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/DRSN-tech/finsmart-search/internal/usecase"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/jimlawless/whereami"
)

// Поля формы поискового запроса
const (
	fieldInputType = "input_type"
	fieldQueryText = "query_text"
	fieldCategory  = "category"
	fieldLimit     = "limit"
	fieldFile      = "file"
)

type ErrorResponse struct {
	Code     int    `json:"code"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

func NewErrorResponse(code int, category string, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:     code,
		Category: category,
		Message:  message,
	}
}

// clientErrors — ошибки, текст которых можно показать клиенту как есть
var clientErrors = []error{
	e.ErrUnknownModality,
	e.ErrMissingPayload,
	e.ErrExpectedMultipart,
	e.ErrFileTooLarge,
	e.ErrInvalidLimit,
}

// ToHTTPResponse возвращает HTTP-статус, категорию и безопасное сообщение для ошибки
func ToHTTPResponse(err error) (int, string, string) {
	category := e.Category(err)

	switch category {
	case e.CategoryInvalidRequest:
		for _, known := range clientErrors {
			if errors.Is(err, known) {
				return http.StatusBadRequest, category, known.Error()
			}
		}
		return http.StatusBadRequest, category, e.ErrInvalidRequest.Error()
	case e.CategoryEmbeddingFailure:
		return http.StatusInternalServerError, category, e.ErrEmbeddingFailure.Error()
	case e.CategoryIndexQueryError:
		return http.StatusBadGateway, category, e.ErrIndexQuery.Error()
	case e.CategoryIndexUnavailable:
		return http.StatusServiceUnavailable, category, e.ErrIndexUnavailable.Error()
	default:
		return http.StatusInternalServerError, category, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, category, msg := ToHTTPResponse(err)
	WriteSuccess(w, code, NewErrorResponse(code, category, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// ensureForm разбирает multipart/form-data или, для текстовых запросов, application/x-www-form-urlencoded
func ensureForm(r *http.Request, maxMemory int64) error {
	contentType := r.Header.Get("Content-Type")

	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return formError(err)
		}
	case strings.HasPrefix(contentType, "application/x-www-form-urlencoded"):
		if err := r.ParseForm(); err != nil {
			return formError(err)
		}
	default:
		return e.Mark(e.ErrInvalidRequest, e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: got %q", e.ErrExpectedMultipart, contentType)))
	}

	return nil
}

func formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return e.Mark(e.ErrInvalidRequest, fmt.Errorf("%w: limit %d bytes", e.ErrFileTooLarge, maxErr.Limit))
	}

	return e.Mark(e.ErrInvalidRequest, e.Wrap(whereami.WhereAmI(), err))
}

// parseSearchForm собирает поисковый запрос из полей формы. Проверку модальности и payload делает usecase.
func parseSearchForm(r *http.Request, maxFileSize int64) (*usecase.SearchReq, error) {
	limit := 0
	if raw := strings.TrimSpace(r.FormValue(fieldLimit)); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return nil, e.Mark(e.ErrInvalidRequest, fmt.Errorf("%w: %q", e.ErrInvalidLimit, raw))
		}
		limit = parsed
	}

	var file *usecase.QueryFile
	if r.MultipartForm != nil {
		if headers := r.MultipartForm.File[fieldFile]; len(headers) > 0 {
			data, mimeType, err := readFile(headers[0], maxFileSize)
			if err != nil {
				return nil, err
			}
			file = usecase.NewQueryFile(data, mimeType, headers[0].Filename)
		}
	}

	return usecase.NewSearchReq(
		strings.TrimSpace(r.FormValue(fieldInputType)),
		r.FormValue(fieldQueryText),
		file,
		strings.TrimSpace(r.FormValue(fieldCategory)),
		limit,
	), nil
}

// readFile читает загруженный файл целиком. MIME-тип берётся из заголовка части,
// а если клиент его не указал, определяется по содержимому.
func readFile(fh *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	if fh.Size > maxSize {
		return nil, "", e.Mark(e.ErrInvalidRequest, e.Wrap(fh.Filename, e.ErrFileTooLarge))
	}

	src, err := fh.Open()
	if err != nil {
		return nil, "", e.Wrap(whereami.WhereAmI(), err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxSize+1))
	if err != nil {
		return nil, "", e.Wrap(whereami.WhereAmI(), err)
	}
	if int64(len(data)) > maxSize {
		return nil, "", e.Mark(e.ErrInvalidRequest, e.Wrap(fh.Filename, e.ErrFileTooLarge))
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data[:min(len(data), 512)])
	}

	return data, mimeType, nil
}
