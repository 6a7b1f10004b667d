package usecase

import (
	"path/filepath"
	"strings"
)

// AudioExtension возвращает расширение временного аудиофайла.
// Распознаватели речи определяют формат по расширению, поэтому оно выбирается по MIME, затем по имени файла.
func AudioExtension(mime string, filename string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(mime, ";")[0])) {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/wave", "audio/x-wav", "audio/vnd.wave":
		return ".wav"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	case "audio/ogg", "application/ogg":
		return ".ogg"
	case "audio/webm", "video/webm":
		return ".webm"
	case "audio/flac", "audio/x-flac":
		return ".flac"
	}

	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		return ext
	}

	return ".bin"
}
