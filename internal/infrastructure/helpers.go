package infrastructure

import (
	"strings"

	"github.com/DRSN-tech/finsmart-search/pkg/e"
)

// GetImageFormatFromMIME возвращает формат изображения по MIME-типу.
// Пустой тип и application/octet-stream допускаются, формат тогда определяет декодер.
// Возвращает ошибку e.ErrUnsupportedMediaType для явно не графических типов.
func GetImageFormatFromMIME(mime string) (string, error) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}

	switch mime {
	case "image/jpeg", "image/jpg":
		return "jpg", nil
	case "image/png":
		return "png", nil
	case "image/webp":
		return "webp", nil
	case "image/gif":
		return "gif", nil
	case "image/bmp":
		return "bmp", nil
	case "image/tiff":
		return "tiff", nil
	case "", "application/octet-stream":
		return "", nil
	default:
		return "bin", e.ErrUnsupportedMediaType
	}
}
