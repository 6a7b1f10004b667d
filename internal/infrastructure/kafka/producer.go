package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DRSN-tech/finsmart-search/internal/cfg"
	"github.com/DRSN-tech/finsmart-search/internal/usecase"
	"github.com/DRSN-tech/finsmart-search/pkg/e"
	"github.com/DRSN-tech/finsmart-search/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
)

const eventTypeHeader = "event_type"

// Producer публикует события каталога в один топик.
// События одного запуска загрузки идут с одним ключом и попадают в одну партицию.
type Producer struct {
	writer *kafka.Writer
	admin  *kafka.Client
	cfg    *cfg.KafkaCfg
}

func NewProducer(log logger.Logger, cfg *cfg.KafkaCfg) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, e.Wrap(whereami.WhereAmI(), errors.New("no kafka brokers configured"))
	}

	addr := kafka.TCP(cfg.Brokers...)
	transport := &kafka.Transport{ClientID: cfg.ClientID}

	return &Producer{
		writer: &kafka.Writer{
			Addr:         addr,
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  3,
			BatchTimeout: 50 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			Transport:    transport,
			ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
				log.Warnf("kafka writer: "+msg, args...)
			}),
		},
		admin: &kafka.Client{Addr: addr, Transport: transport},
		cfg:   cfg,
	}, nil
}

// WriteRawMessage синхронно публикует тело события. Ошибка возвращается релею, и событие остаётся в outbox.
func (p *Producer) WriteRawMessage(ctx context.Context, req *usecase.WriteRawMessageReq) error {
	msg := kafka.Message{
		Key:   []byte(req.Key),
		Value: req.Payload,
		Time:  time.Now().UTC(),
	}
	if req.EventType != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: eventTypeHeader, Value: []byte(req.EventType)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// EnsureTopic создаёт топик событий, если брокер его ещё не знает
func (p *Producer) EnsureTopic(ctx context.Context) error {
	meta, err := p.admin.Metadata(ctx, &kafka.MetadataRequest{Topics: []string{p.cfg.Topic}})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	for _, topic := range meta.Topics {
		if topic.Name == p.cfg.Topic && topic.Error == nil && len(topic.Partitions) > 0 {
			return nil
		}
	}

	res, err := p.admin.CreateTopics(ctx, &kafka.CreateTopicsRequest{
		Topics: []kafka.TopicConfig{{
			Topic:             p.cfg.Topic,
			NumPartitions:     p.cfg.Partitions,
			ReplicationFactor: p.cfg.ReplicationFactor,
		}},
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if topicErr := res.Errors[p.cfg.Topic]; topicErr != nil && !errors.Is(topicErr, kafka.TopicAlreadyExists) {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("create topic %s: %w", p.cfg.Topic, topicErr))
	}

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
