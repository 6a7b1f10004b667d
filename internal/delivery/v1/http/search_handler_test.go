package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/DRSN-tech/finsmart-search/internal/domain"
	"github.com/DRSN-tech/finsmart-search/internal/usecase"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/DRSN-tech/finsmart-search/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearchUC struct {
	result *domain.SearchResult
	err    error
	got    *usecase.SearchReq
}

func (f *fakeSearchUC) Search(_ context.Context, req *usecase.SearchReq) (*domain.SearchResult, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

const testMaxFileSize = 1024

func newTestRouter(uc usecase.SearchUC) *chi.Mux {
	mux := chi.NewRouter()
	NewRouter(mux, logger.NewNopLogger()).Init(uc, testMaxFileSize)
	return mux
}

type filePart struct {
	name     string
	mimeType string
	data     []byte
}

func multipartBody(t *testing.T, fields map[string]string, file *filePart) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}

	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.name))
		if file.mimeType != "" {
			h.Set("Content-Type", file.mimeType)
		}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func doSearch(t *testing.T, mux http.Handler, path string, fields map[string]string, file *filePart) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartBody(t, fields, file)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestSearchMultimodal_Text(t *testing.T) {
	uc := &fakeSearchUC{result: domain.NewSearchResult("red shoes", []domain.ResultEntry{
		{ProductName: "Running Shoes", Price: 1299, ImageURL: "https://img/1.jpg", Score: 0.9},
	})}
	mux := newTestRouter(uc)

	for _, path := range []string{"/api/v1/search_multimodal", "/search_multimodal"} {
		t.Run(path, func(t *testing.T) {
			rr := doSearch(t, mux, path, map[string]string{
				"input_type": "text",
				"query_text": "red shoes",
				"category":   "Footwear",
				"limit":      "3",
			}, nil)

			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.JSONEq(t, `{
				"detected_query": "red shoes",
				"results": [{"product_name": "Running Shoes", "price": 1299, "image_url": "https://img/1.jpg", "score": 0.9}]
			}`, rr.Body.String())

			require.NotNil(t, uc.got)
			assert.Equal(t, "text", uc.got.Modality)
			assert.Equal(t, "red shoes", uc.got.QueryText)
			assert.Equal(t, "Footwear", uc.got.CategoryHint)
			assert.Equal(t, 3, uc.got.Limit)
			assert.Nil(t, uc.got.File)
		})
	}
}

func TestSearchMultimodal_ImageFile(t *testing.T) {
	uc := &fakeSearchUC{result: domain.NewSearchResult(usecase.ImageDetectedQuery, nil)}
	mux := newTestRouter(uc)

	png := []byte("\x89PNG\r\n\x1a\n0000")
	rr := doSearch(t, mux, "/api/v1/search_multimodal", map[string]string{"input_type": "image"},
		&filePart{name: "photo.png", data: png})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"detected_query":"image analysis","results":[]}`, rr.Body.String())

	require.NotNil(t, uc.got.File)
	assert.Equal(t, png, uc.got.File.Data)
	assert.Equal(t, "image/png", uc.got.File.MimeType, "type is sniffed when the part has none")
	assert.Equal(t, "photo.png", uc.got.File.Name)
}

func TestSearchMultimodal_DeclaredMimeTypeWins(t *testing.T) {
	uc := &fakeSearchUC{result: domain.NewSearchResult("Audio: 'lamp'", nil)}
	mux := newTestRouter(uc)

	rr := doSearch(t, mux, "/api/v1/search_multimodal", map[string]string{"input_type": "audio"},
		&filePart{name: "voice.webm", mimeType: "audio/webm", data: []byte{0x1a, 0x45, 0xdf, 0xa3}})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "audio/webm", uc.got.File.MimeType)
}

func TestSearchMultimodal_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     int
		category string
	}{
		{name: "invalid request", err: e.Mark(e.ErrInvalidRequest, e.ErrMissingPayload), code: http.StatusBadRequest, category: e.CategoryInvalidRequest},
		{name: "embedding failure", err: e.Mark(e.ErrEmbeddingFailure, fmt.Errorf("cuda out of memory")), code: http.StatusInternalServerError, category: e.CategoryEmbeddingFailure},
		{name: "index query", err: e.Mark(e.ErrIndexQuery, fmt.Errorf("collection not found")), code: http.StatusBadGateway, category: e.CategoryIndexQueryError},
		{name: "index unavailable", err: e.Mark(e.ErrIndexUnavailable, fmt.Errorf("dial tcp: refused")), code: http.StatusServiceUnavailable, category: e.CategoryIndexUnavailable},
		{name: "unclassified", err: fmt.Errorf("nil pointer somewhere"), code: http.StatusInternalServerError, category: e.CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestRouter(&fakeSearchUC{err: tt.err})

			rr := doSearch(t, mux, "/api/v1/search_multimodal", map[string]string{"input_type": "text", "query_text": "x"}, nil)

			require.Equal(t, tt.code, rr.Code)
			resp := decodeError(t, rr)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.category, resp.Category)
			assert.NotContains(t, resp.Message, "cuda", "internal details are not exposed")
			assert.NotContains(t, resp.Message, "dial tcp")
		})
	}
}

func TestSearchMultimodal_RejectsBadForms(t *testing.T) {
	t.Run("json body", func(t *testing.T) {
		uc := &fakeSearchUC{}
		mux := newTestRouter(uc)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/search_multimodal", strings.NewReader(`{"input_type":"text"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, e.ErrExpectedMultipart.Error(), decodeError(t, rr).Message)
		assert.Nil(t, uc.got)
	})

	t.Run("non-numeric limit", func(t *testing.T) {
		uc := &fakeSearchUC{}
		rr := doSearch(t, newTestRouter(uc), "/api/v1/search_multimodal", map[string]string{"input_type": "text", "query_text": "x", "limit": "ten"}, nil)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, e.ErrInvalidLimit.Error(), decodeError(t, rr).Message)
		assert.Nil(t, uc.got)
	})

	t.Run("file too large", func(t *testing.T) {
		uc := &fakeSearchUC{}
		rr := doSearch(t, newTestRouter(uc), "/api/v1/search_multimodal", map[string]string{"input_type": "image"},
			&filePart{name: "big.jpg", mimeType: "image/jpeg", data: bytes.Repeat([]byte{1}, testMaxFileSize+1)})

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, e.ErrFileTooLarge.Error(), decodeError(t, rr).Message)
		assert.Nil(t, uc.got)
	})
}

func TestSearchMultimodal_URLEncodedText(t *testing.T) {
	uc := &fakeSearchUC{result: domain.NewSearchResult("lamp", nil)}
	mux := newTestRouter(uc)

	form := url.Values{"input_type": {"text"}, "query_text": {"lamp"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search_multimodal", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "lamp", uc.got.QueryText)
	assert.Nil(t, uc.got.File)
}

func TestHealthz(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(&fakeSearchUC{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestSearchMultimodal_MethodNotAllowed(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(&fakeSearchUC{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/search_multimodal", http.NoBody))

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestModalityLabel(t *testing.T) {
	tests := map[string]string{
		"text":    "text",
		"Text":    "text",
		" IMAGE ": "image",
		"Audio":   "audio",
		"video":   "invalid",
		"":        "invalid",
	}

	for raw, want := range tests {
		assert.Equal(t, want, modalityLabel(raw), "modality %q", raw)
	}
}
