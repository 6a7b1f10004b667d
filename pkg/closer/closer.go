package closer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// allClosed — индекс, который gracefulClose возвращает, если прошёл весь список
const allClosed = -1

// Func — сигнатура функции закрытия ресурса.
type Func func(ctx context.Context) error

type resource struct {
	name  string
	close Func
}

// Closer закрывает именованные ресурсы приложения в порядке, обратном открытию.
type Closer struct {
	mu            sync.Mutex
	resources     []resource
	once          sync.Once
	forcedTimeout time.Duration
}

// NewCloser создаёт Closer. forcedTimeout — время на принудительное закрытие ресурсов,
// до которых не дошла очередь, когда истёк контекст Close. 0 — 2 секунды.
func NewCloser(forcedTimeout time.Duration) *Closer {
	if forcedTimeout == 0 {
		forcedTimeout = 2 * time.Second
	}

	return &Closer{forcedTimeout: forcedTimeout}
}

// Add регистрирует ресурс
func (c *Closer) Add(name string, f Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resources = append(c.resources, resource{name: name, close: f})
}

// Close закрывает ресурсы по одному (LIFO). Повторный вызов ничего не делает.
// Если ctx истекает раньше, оставшиеся ресурсы закрываются параллельно со своим таймаутом.
func (c *Closer) Close(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		resources := c.resources
		c.mu.Unlock()

		stopIdx, failures := c.gracefulClose(ctx, resources)
		if stopIdx == allClosed {
			if len(failures) > 0 {
				err = fmt.Errorf("shutdown finished with error(s):\n%s", strings.Join(failures, "\n"))
			}
			return
		}

		failures = append(failures, c.forcedClose(resources[:stopIdx+1])...)
		err = fmt.Errorf(
			"shutdown interrupted after %d/%d resources:\n%s",
			len(resources)-1-stopIdx,
			len(resources),
			strings.Join(failures, "\n"),
		)
	})

	return err
}

// gracefulClose возвращает индекс ресурса, на котором истёк ctx, или allClosed
func (c *Closer) gracefulClose(ctx context.Context, resources []resource) (int, []string) {
	var failures []string
	for i := len(resources) - 1; i >= 0; i-- {
		res := resources[i]
		done := make(chan error, 1)
		go func() {
			done <- res.close(ctx)
		}()

		select {
		case err := <-done:
			if err != nil {
				failures = append(failures, fmt.Sprintf("[!] %s: %v", res.name, err))
			}
		case <-ctx.Done():
			return i, failures
		}
	}

	return allClosed, failures
}

func (c *Closer) forcedClose(resources []resource) []string {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []string
	)

	ctx, cancel := context.WithTimeout(context.Background(), c.forcedTimeout)
	defer cancel()

	for _, res := range resources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := res.close(ctx); err != nil {
				mu.Lock()
				failures = append(failures, fmt.Sprintf("[FORCED] %s: %v", res.name, err))
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return failures
}
