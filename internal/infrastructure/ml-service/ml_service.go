package ml_service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/DRSN-tech/finsmart-search/internal/domain"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/DRSN-tech/finsmart-search/pkg/jitter"
	"github.com/DRSN-tech/finsmart-search/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Методы ML-сервиса. Запросы и ответы передаются well-known типами protobuf.
const (
	EmbedTextMethod  = "/finsmart.ml.v1.EmbeddingService/EmbedText"
	EmbedImageMethod = "/finsmart.ml.v1.EmbeddingService/EmbedImage"
	TranscribeMethod = "/finsmart.ml.v1.EmbeddingService/Transcribe"
)

// MLService клиент для взаимодействия с внешним ML-сервисом (CLIP + Whisper)
type MLService struct {
	conn       grpc.ClientConnInterface
	model      string
	sem        chan struct{} // ограничивает число одновременных вызовов модели
	maxRetries int
	timeout    time.Duration
	logger     logger.Logger
}

func NewMLService(
	conn grpc.ClientConnInterface,
	model string,
	maxConcurrent int,
	maxRetries int,
	timeout time.Duration,
	logger logger.Logger,
) *MLService {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}

	return &MLService{
		conn:       conn,
		model:      model,
		sem:        make(chan struct{}, maxConcurrent),
		maxRetries: maxRetries,
		timeout:    timeout,
		logger:     logger,
	}
}

// ModelName возвращает имя модели, в пространстве которой строятся векторы.
func (m *MLService) ModelName() string {
	return m.model
}

// EmbedText векторизует текст текстовым энкодером CLIP
func (m *MLService) EmbedText(ctx context.Context, text string) (domain.Vector, error) {
	const op = "MLService.EmbedText"

	req, err := structpb.NewStruct(map[string]any{
		"text":  text,
		"model": m.model,
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	res := &structpb.Struct{}
	if err := m.invoke(ctx, EmbedTextMethod, req, res); err != nil {
		return nil, e.Wrap(op, err)
	}

	vector, err := vectorFromStruct(res)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return vector, nil
}

// EmbedImageBytes векторизует подготовленное изображение (JPEG) визуальным энкодером CLIP
func (m *MLService) EmbedImageBytes(ctx context.Context, data []byte) (domain.Vector, error) {
	const op = "MLService.EmbedImageBytes"

	res := &structpb.Struct{}
	if err := m.invoke(ctx, EmbedImageMethod, wrapperspb.Bytes(data), res); err != nil {
		return nil, e.Wrap(op, err)
	}

	vector, err := vectorFromStruct(res)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return vector, nil
}

// Transcribe отправляет аудиофайл в Whisper и возвращает распознанный текст
func (m *MLService) Transcribe(ctx context.Context, audioPath string) (string, error) {
	const op = "MLService.Transcribe"

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", e.Wrap(op, err)
	}

	res := &structpb.Struct{}
	if err := m.invoke(ctx, TranscribeMethod, wrapperspb.Bytes(data), res); err != nil {
		return "", e.Wrap(op, err)
	}

	return strings.TrimSpace(res.GetFields()["text"].GetStringValue()), nil
}

// invoke выполняет вызов с retry-логикой и экспоненциальной задержкой.
// Повторяются только ошибки транспорта (codes.Unavailable), ошибки модели возвращаются сразу.
func (m *MLService) invoke(ctx context.Context, method string, req, res proto.Message) error {
	const op = "MLService.invoke"

	backoff := jitter.NewBackoff(200*time.Millisecond, 5*time.Second)
	for attempt := 0; ; attempt++ {
		err := m.call(ctx, method, req, res)
		if err == nil {
			return nil
		}

		if status.Code(err) != codes.Unavailable {
			return e.Wrap(op, err)
		}

		if attempt == m.maxRetries-1 {
			return e.Wrap(op, fmt.Errorf("all %d attempts failed: %w", m.maxRetries, err))
		}

		m.logger.Warnf("%s unavailable, retrying (attempt %d): %v", method, attempt+1, err)
		if err := backoff.Wait(ctx, attempt); err != nil {
			return e.Wrap(op, err)
		}
	}
}

// call занимает слот семафора на время одного запроса
func (m *MLService) call(ctx context.Context, method string, req, res proto.Message) error {
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-m.sem }()

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	return m.conn.Invoke(ctx, method, req, res)
}

// vectorFromStruct достаёт вектор из ответа вида {"vector": [..], "model_version": ".."}
func vectorFromStruct(res *structpb.Struct) (domain.Vector, error) {
	values := res.GetFields()["vector"].GetListValue().GetValues()
	if len(values) == 0 {
		return nil, e.ErrEmptyVector
	}

	vector := make(domain.Vector, len(values))
	for i, v := range values {
		num, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("vector element %d is not a number", i)
		}
		vector[i] = float32(num.NumberValue)
	}

	return vector, nil
}
