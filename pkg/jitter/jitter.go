// Package jitter считает задержки между повторами с экспоненциальным ростом и случайной добавкой,
// чтобы клиенты, упавшие одновременно, не повторяли запросы синхронно.
package jitter

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// DefaultFactor — доля задержки, которая может добавиться случайно (50%)
const DefaultFactor = 0.5

var (
	globalRand = rand.New(rand.NewSource(time.Now().UnixNano()))
	randMutex  sync.Mutex
)

// Backoff описывает политику задержек: Base для первой попытки, удвоение до Max.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64 // 0 — без случайной добавки
}

// NewBackoff возвращает политику с DefaultFactor
func NewBackoff(base, max time.Duration) Backoff {
	return Backoff{Base: base, Max: max, Factor: DefaultFactor}
}

// Delay возвращает задержку перед повтором номер attempt (с нуля), в диапазоне [d, d*(1+Factor)].
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Base
	for i := 0; i < attempt && d < b.Max; i++ {
		d *= 2
	}
	if d > b.Max {
		d = b.Max
	}

	return Duration(d, b.Factor)
}

// Wait спит Delay(attempt) и возвращает ошибку ctx, если он завершился раньше.
func (b Backoff) Wait(ctx context.Context, attempt int) error {
	t := time.NewTimer(b.Delay(attempt))
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Duration добавляет к d случайную долю до factor.
func Duration(d time.Duration, factor float64) time.Duration {
	randMutex.Lock()
	extra := globalRand.Float64() * factor * float64(d)
	randMutex.Unlock()

	return d + time.Duration(extra)
}

// DurationWithSeed — Duration с заданным генератором, для воспроизводимых задержек.
func DurationWithSeed(d time.Duration, factor float64, rng *rand.Rand) time.Duration {
	return d + time.Duration(rng.Float64()*factor*float64(d))
}
