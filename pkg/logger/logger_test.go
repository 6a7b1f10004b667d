package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Level(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "warn")

	l, err := NewLogger()
	require.NoError(t, err)

	zl, ok := l.(*zapLogger)
	require.True(t, ok)
	assert.False(t, zl.l.Desugar().Core().Enabled(-1), "debug is filtered")
	assert.True(t, zl.l.Desugar().Core().Enabled(1), "warn passes")
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")

	_, err := NewLogger()
	assert.Error(t, err)
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Infof("hello %s", "world")
	l.Errorf(errors.New("boom"), "failed")
}
