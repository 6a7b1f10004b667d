package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DRSN-tech/finsmart-search/internal/cfg"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	openai "github.com/sashabaranov/go-openai"
)

// Transcriber распознаёт речь через OpenAI-совместимый Whisper API.
type Transcriber struct {
	client   *openai.Client
	model    string
	language string
}

func NewTranscriber(cfg *cfg.OpenAICfg) *Transcriber {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Transcriber{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.TranscribeModel,
		language: cfg.Language,
	}
}

// Transcribe отправляет файл целиком, формат определяется сервисом по расширению.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	const op = "Transcriber.Transcribe"

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: audioPath,
		Language: t.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", e.Wrap(op, parseAPIError(err))
	}

	return strings.TrimSpace(resp.Text), nil
}

// parseAPIError достаёт из ответа API код и сообщение
func parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("transcription API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("transcription API error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body))
	}

	return err
}
