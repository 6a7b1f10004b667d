package domain

import (
	"fmt"
	"strings"

	"github.com/DRSN-tech/finsmart-search/pkg/e"
)

// Modality описывает тип входных данных поискового запроса
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
	ModalityAudio Modality = "audio"
)

// ParseModality разбирает тег модальности из запроса. Регистр и пробелы игнорируются.
func ParseModality(raw string) (Modality, error) {
	switch m := Modality(strings.ToLower(strings.TrimSpace(raw))); m {
	case ModalityText, ModalityImage, ModalityAudio:
		return m, nil
	default:
		return "", e.Mark(e.ErrInvalidRequest, fmt.Errorf("%w: %q", e.ErrUnknownModality, raw))
	}
}

func (m Modality) String() string {
	return string(m)
}
