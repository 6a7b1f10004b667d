package closer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClose_LIFOAndErrors(t *testing.T) {
	c := NewCloser(0)

	var order []string
	c.Add("db", func(context.Context) error { order = append(order, "db"); return nil })
	c.Add("redis", func(context.Context) error { order = append(order, "redis"); return errors.New("already closed") })
	c.Add("http", func(context.Context) error { order = append(order, "http"); return nil })

	err := c.Close(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[!] redis: already closed")
	assert.Equal(t, []string{"http", "redis", "db"}, order)

	assert.NoError(t, c.Close(context.Background()), "second close is a no-op")
}

func TestClose_ForcesRemainingAfterTimeout(t *testing.T) {
	c := NewCloser(time.Second)

	forced := make(chan struct{}, 1)
	c.Add("metrics", func(ctx context.Context) error {
		if ctx.Err() == nil {
			forced <- struct{}{}
		}
		return nil
	})
	c.Add("http", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Close(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown interrupted")
	assert.Contains(t, err.Error(), "[FORCED] http")

	select {
	case <-forced:
	default:
		t.Fatal("remaining func was not closed with a fresh context")
	}
}
