package infrastructure

import (
	"testing"

	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/stretchr/testify/assert"
)

func TestGetImageFormatFromMIME(t *testing.T) {
	tests := []struct {
		mime    string
		want    string
		wantErr bool
	}{
		{mime: "image/jpeg", want: "jpg"},
		{mime: "IMAGE/PNG", want: "png"},
		{mime: "image/webp; charset=binary", want: "webp"},
		{mime: "", want: ""},
		{mime: "application/octet-stream", want: ""},
		{mime: "text/plain", want: "bin", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			got, err := GetImageFormatFromMIME(tt.mime)
			if tt.wantErr {
				assert.ErrorIs(t, err, e.ErrUnsupportedMediaType)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
