package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/igdb-proxy/internal/config"
	"github.com/igdb-proxy/internal/domain"
)

// Publisher produces lookup events and prefetch requests
type Publisher struct {
	producer      sarama.AsyncProducer
	lookupTopic   string
	prefetchTopic string
	logger        *slog.Logger
	wg            sync.WaitGroup
	successes     atomic.Int64
	failures      atomic.Int64
}

// ProducerConfig returns the sarama configuration used by the publisher
func ProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_0_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Flush.Frequency = 100 * time.Millisecond
	cfg.Producer.Flush.Messages = 100
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	return cfg
}

// NewPublisher connects an async producer to the configured brokers
func NewPublisher(cfg *config.KafkaConfig, logger *slog.Logger) (*Publisher, error) {
	producer, err := sarama.NewAsyncProducer(cfg.Brokers, ProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	return NewPublisherWithProducer(producer, cfg, logger), nil
}

// NewPublisherWithProducer wraps an existing producer
func NewPublisherWithProducer(producer sarama.AsyncProducer, cfg *config.KafkaConfig, logger *slog.Logger) *Publisher {
	p := &Publisher{
		producer:      producer,
		lookupTopic:   cfg.LookupTopic,
		prefetchTopic: cfg.PrefetchTopic,
		logger:        logger,
	}

	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		for range producer.Successes() {
			p.successes.Add(1)
		}
	}()
	go func() {
		defer p.wg.Done()
		for err := range producer.Errors() {
			p.failures.Add(1)
			p.logger.Warn("kafka produce failed", "topic", err.Msg.Topic, "error", err.Err)
		}
	}()

	return p
}

// PublishLookup enqueues a lookup event
func (p *Publisher) PublishLookup(ctx context.Context, event domain.LookupEvent) error {
	key := string(event.Endpoint)
	if event.Param != "" {
		key += ":" + event.Param
	}
	return p.send(ctx, p.lookupTopic, key, event)
}

// RequestPrefetch enqueues one prefetch request per game
func (p *Publisher) RequestPrefetch(ctx context.Context, gameIDs ...string) error {
	for _, id := range gameIDs {
		if err := p.send(ctx, p.prefetchTopic, id, domain.PrefetchRequest{GameID: id}); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) send(ctx context.Context, topic, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}

	select {
	case p.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueueing message: %w", ctx.Err())
	}
}

// Stats returns the number of acknowledged and failed messages
func (p *Publisher) Stats() (sent, failed int64) {
	return p.successes.Load(), p.failures.Load()
}

// Close flushes pending messages and closes the producer
func (p *Publisher) Close() error {
	p.producer.AsyncClose()
	p.wg.Wait()
	return nil
}
