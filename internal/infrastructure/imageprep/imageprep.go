// Package imageprep приводит изображение запроса к входу визуального энкодера.
package imageprep

import (
	"bytes"
	"fmt"

	"github.com/DRSN-tech/finsmart-search/internal/infrastructure"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 92

// Preparer декодирует изображение, учитывает EXIF-ориентацию и вырезает квадрат по центру.
type Preparer struct {
	size int
}

func NewPreparer(size int) *Preparer {
	return &Preparer{size: size}
}

// Prepare возвращает JPEG размера size×size. Нераспознаваемые данные — ошибка.
func (p *Preparer) Prepare(data []byte, mimeType string) ([]byte, error) {
	const op = "Preparer.Prepare"

	if len(data) == 0 {
		return nil, e.Wrap(op, fmt.Errorf("empty image"))
	}

	if _, err := infrastructure.GetImageFormatFromMIME(mimeType); err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: %s", err, mimeType))
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	img = imaging.Fill(img, p.size, p.size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, e.Wrap(op, err)
	}

	return buf.Bytes(), nil
}
