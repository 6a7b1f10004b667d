package usecase

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/DRSN-tech/finsmart-search/internal/domain"
)

const testDim = 4

func vec(seed float32) domain.Vector {
	v := make(domain.Vector, testDim)
	for i := range v {
		v[i] = seed
	}
	return v
}

type fakeProvider struct {
	mu sync.Mutex

	textErr       error
	imageErr      error
	transcribeErr error
	transcript    string
	failTexts     map[string]bool

	texts      []string
	images     []*QueryFile
	audioPaths []string
	audioExist []bool
	audioData  [][]byte
}

func (f *fakeProvider) EmbedText(_ context.Context, text string) (domain.Vector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.texts = append(f.texts, text)
	if f.textErr != nil {
		return nil, f.textErr
	}
	if f.failTexts[text] {
		return nil, errors.New("model rejected input")
	}
	return vec(1), nil
}

func (f *fakeProvider) EmbedImage(_ context.Context, image *QueryFile) (domain.Vector, error) {
	f.images = append(f.images, image)
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return vec(2), nil
}

func (f *fakeProvider) Transcribe(_ context.Context, audioPath string) (string, error) {
	f.audioPaths = append(f.audioPaths, audioPath)
	data, err := os.ReadFile(audioPath)
	f.audioExist = append(f.audioExist, err == nil)
	f.audioData = append(f.audioData, data)

	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	return f.transcript, nil
}

func (f *fakeProvider) Dimensions() int {
	return testDim
}

type fakeIndex struct {
	hits   []domain.SearchHit
	err    error
	calls  int
	vector domain.Vector
	limit  int
}

func (f *fakeIndex) Search(_ context.Context, vector domain.Vector, limit int) ([]domain.SearchHit, error) {
	f.calls++
	f.vector = vector
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

type fakeWriter struct {
	failures  int // сколько первых вызовов Upsert завершатся ошибкой
	alwaysErr error
	resetErr  error

	calls   int
	resets  int
	batches [][]domain.ProductRecord
}

func (f *fakeWriter) Upsert(_ context.Context, records []domain.ProductRecord) error {
	f.calls++
	if f.alwaysErr != nil {
		return f.alwaysErr
	}
	if f.failures > 0 {
		f.failures--
		return errors.New("connection reset")
	}

	batch := make([]domain.ProductRecord, len(records))
	copy(batch, records)
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeWriter) Reset(context.Context) error {
	f.resets++
	return f.resetErr
}

func (f *fakeWriter) written() []domain.ProductRecord {
	var all []domain.ProductRecord
	for _, b := range f.batches {
		all = append(all, b...)
	}
	return all
}

type fakeSource struct {
	files   map[string]string
	order   []string
	listErr error
	opened  []string
}

func newFakeSource(files ...string) *fakeSource {
	src := &fakeSource{files: make(map[string]string)}
	for i := 0; i+1 < len(files); i += 2 {
		src.files[files[i]] = files[i+1]
		src.order = append(src.order, files[i])
	}
	return src
}

func (f *fakeSource) Name() string {
	return "fake://catalog"
}

func (f *fakeSource) List(context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.order, nil
}

func (f *fakeSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f.opened = append(f.opened, name)
	content, ok := f.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func strPtr(s string) *string {
	return &s
}

func floatPtr(f float64) *float64 {
	return &f
}
