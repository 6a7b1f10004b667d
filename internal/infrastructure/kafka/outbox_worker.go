package kafka

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/DRSN-tech/finsmart-search/internal/usecase"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/DRSN-tech/finsmart-search/pkg/jitter"
	"github.com/DRSN-tech/finsmart-search/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"
)

const (
	outboxChannel   = "outbox_pending"
	outboxBatchSize = 10
	pollInterval    = time.Minute
	listenWait      = 30 * time.Second
)

// ListenConnFunc выдаёт отдельное соединение под LISTEN. Соединение закрывает воркер.
type ListenConnFunc func(ctx context.Context) (*pgx.Conn, error)

// OutboxWorker переносит события загрузки каталога из таблицы outbox в Kafka.
// Разбор очереди запускается по NOTIFY, по таймеру и один раз при старте.
type OutboxWorker struct {
	repo     usecase.OutboxRepository
	logger   logger.Logger
	producer usecase.MessageProducer
	listen   ListenConnFunc

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewOutboxWorker(
	repo usecase.OutboxRepository,
	logger logger.Logger,
	producer usecase.MessageProducer,
	listen ListenConnFunc,
) *OutboxWorker {
	return &OutboxWorker{
		repo:     repo,
		logger:   logger,
		producer: producer,
		listen:   listen,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
}

// Start запускает разбор очереди. Без listen воркер работает только по таймеру.
func (w *OutboxWorker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-w.stop
		cancel()
	}()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()

	if w.listen != nil {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.listenNotifications(ctx)
		}()
	}
}

func (w *OutboxWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
}

// notify будит run. Если сигнал уже ждёт, новый не нужен.
func (w *OutboxWorker) notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *OutboxWorker) run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	w.notify()
	for {
		select {
		case <-ctx.Done():
			w.logger.Infof("outbox relay stopped")
			return
		case <-ticker.C:
		case <-w.wake:
		}
		w.drain(ctx)
	}
}

func (w *OutboxWorker) listenNotifications(ctx context.Context) {
	backoff := jitter.NewBackoff(time.Second, 30*time.Second)

	for attempt := 0; ctx.Err() == nil; attempt++ {
		err := w.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		delay := backoff.Delay(attempt)
		w.logger.Warnf("outbox LISTEN interrupted, reconnecting in %v: %v", delay, err)
		if backoff.Wait(ctx, attempt) != nil {
			return
		}
	}
}

// listenOnce держит одно соединение с LISTEN до ошибки или остановки
func (w *OutboxWorker) listenOnce(ctx context.Context) error {
	conn, err := w.listen(ctx)
	if err != nil {
		return e.Wrap("acquire LISTEN connection", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+outboxChannel); err != nil {
		return e.Wrap("LISTEN "+outboxChannel, err)
	}
	w.logger.Infof("subscribed to %q", outboxChannel)

	for {
		waitCtx, cancel := context.WithTimeout(ctx, listenWait)
		notif, err := conn.WaitForNotification(waitCtx)
		cancel()

		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, context.DeadlineExceeded):
			continue
		case err != nil:
			return err
		}

		if notif.Channel == outboxChannel {
			w.notify()
		}
	}
}

// drain разбирает очередь батчами, пока они не кончатся или брокер не перестанет принимать
func (w *OutboxWorker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		more, err := w.processBatch(ctx)
		if err != nil {
			w.logger.Warnf("outbox batch failed: %v", err)
			return
		}
		if !more {
			return
		}
	}
}

// processBatch возвращает true, если стоит сразу взять следующий батч
func (w *OutboxWorker) processBatch(ctx context.Context) (bool, error) {
	events, err := w.repo.GetAndMarkAsProcessing(ctx, outboxBatchSize)
	if err != nil {
		return false, err
	}
	if len(events) == 0 {
		return false, nil
	}

	for _, event := range events {
		req := usecase.NewWriteRawMessageReq(event.AggregateID, string(event.EventType), event.Payload)
		if err := w.producer.WriteRawMessage(ctx, req); err != nil {
			if isRetryableError(err) {
				// Остаток батча вернётся в очередь по таймауту processing
				return false, e.Wrap("kafka unavailable, event "+event.EventID, err)
			}
			w.logger.Errorf(err, "outbox event %s rejected by kafka, marking failed", event.EventID)
			if err := w.repo.MarkAsFailed(ctx, event.ID, err.Error()); err != nil {
				return false, e.Wrap("mark failed "+event.EventID, err)
			}
			continue
		}

		if err := w.repo.MarkAsProcessed(ctx, event.ID); err != nil {
			return false, e.Wrap("mark processed "+event.EventID, err)
		}
	}

	return len(events) == outboxBatchSize, nil
}

// isRetryableError отличает недоступность брокера от отказа принять конкретное сообщение
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var writeErrs kafka.WriteErrors
	if errors.As(err, &writeErrs) {
		for _, msgErr := range writeErrs {
			if isRetryableError(msgErr) {
				return true
			}
		}
		return false
	}

	var kafkaErr kafka.Error
	if errors.As(err, &kafkaErr) {
		return kafkaErr.Temporary()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded)
}
