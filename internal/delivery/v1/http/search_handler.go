package http

import (
	"net/http"
	"time"

	"github.com/DRSN-tech/finsmart-search/internal/domain"
	"github.com/DRSN-tech/finsmart-search/internal/metrics"
	"github.com/DRSN-tech/finsmart-search/internal/usecase"
	"github.com/DRSN-tech/finsmart-search/pkg/logger"
)

type SearchHandler struct {
	searchUsecase usecase.SearchUC
	maxFileSize   int64
	logger        logger.Logger
}

func NewSearchHandler(searchUsecase usecase.SearchUC, maxFileSize int64, logger logger.Logger) *SearchHandler {
	return &SearchHandler{
		searchUsecase: searchUsecase,
		maxFileSize:   maxFileSize,
		logger:        logger,
	}
}

// searchMultimodal ищет товары по тексту, изображению или голосовому запросу.
// Форма: input_type (text|image|audio), query_text, category, limit, file.
func (h *SearchHandler) searchMultimodal(w http.ResponseWriter, r *http.Request) {
	const (
		formOverhead = 1 << 20
		maxMemory    = 32 << 20
	)

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+formOverhead)

	if err := ensureForm(r, maxMemory); err != nil {
		h.fail(w, "", start, err)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	req, err := parseSearchForm(r, h.maxFileSize)
	if err != nil {
		h.fail(w, "", start, err)
		return
	}

	result, err := h.searchUsecase.Search(r.Context(), req)
	if err != nil {
		h.fail(w, req.Modality, start, err)
		return
	}

	elapsed := time.Since(start)
	metrics.SearchRequestsTotal.WithLabelValues(modalityLabel(req.Modality), "ok").Inc()
	metrics.SearchDuration.WithLabelValues(modalityLabel(req.Modality)).Observe(elapsed.Seconds())
	h.logger.Infof("search: modality=%s results=%d latency=%v", req.Modality, len(result.Results), elapsed)

	WriteSuccess(w, http.StatusOK, result)
}

func (h *SearchHandler) fail(w http.ResponseWriter, modality string, start time.Time, err error) {
	code, category, _ := ToHTTPResponse(err)
	metrics.SearchRequestsTotal.WithLabelValues(modalityLabel(modality), category).Inc()

	if code >= http.StatusInternalServerError {
		h.logger.Errorf(err, "search failed: modality=%s category=%s latency=%v", modality, category, time.Since(start))
	} else {
		h.logger.Warnf("search rejected: modality=%s category=%s: %v", modality, category, err)
	}

	WriteError(w, err)
}

// modalityLabel ограничивает значения метки известными модальностями
func modalityLabel(modality string) string {
	m, err := domain.ParseModality(modality)
	if err != nil {
		return "invalid"
	}
	return string(m)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}
