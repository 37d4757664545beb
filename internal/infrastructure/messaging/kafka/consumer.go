package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/DockFlow/internal/config"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/pkg/errors"
)

var (
	ErrConsumerClosed = errors.New(errors.ErrCodeMessageQueueError, "consumer closed")
)

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers        []string
	GroupID        string
	Topics         []string
	MinBytes       int
	MaxBytes       int
	MaxWait        time.Duration
	CommitInterval time.Duration
	StartOffset    int64
	// MaxRetries is the number of handler retries before a message is
	// forwarded to DeadLetterTopic, or committed and dropped when empty.
	MaxRetries      int
	RetryBackoff    time.Duration
	DeadLetterTopic string
}

// ConsumerConfigFrom derives a ConsumerConfig subscribed to the request topic.
// A failed request is retried once, then forwarded to the dead letter topic.
func ConsumerConfigFrom(cfg config.KafkaConfig) ConsumerConfig {
	topic := cfg.RequestTopic
	if topic == "" {
		topic = TopicJobRequested
	}
	return ConsumerConfig{
		Brokers:         cfg.Brokers,
		GroupID:         cfg.GroupID,
		Topics:          []string{topic},
		MaxRetries:      1,
		RetryBackoff:    5 * time.Second,
		DeadLetterTopic: TopicJobDeadLetter,
	}
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerMetrics holds consumer counters.
type ConsumerMetrics struct {
	MessagesConsumed atomic.Int64
	MessagesFailed   atomic.Int64
	MessagesRetried  atomic.Int64
	MessagesDLQ      atomic.Int64
}

// Consumer reads from a consumer group and dispatches to per-topic handlers.
type Consumer struct {
	reader     ReaderInterface
	config     ConsumerConfig
	handlers   map[string]MessageHandler
	mu         sync.RWMutex
	deadLetter Publisher
	logger     logging.Logger
	metrics    *ConsumerMetrics
	closed     atomic.Bool
	wg         sync.WaitGroup
	cancel     context.CancelFunc
}

// NewConsumer creates a Consumer for cfg.Topics. deadLetter may be nil.
func NewConsumer(cfg ConsumerConfig, deadLetter Publisher, logger logging.Logger) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	cfg = consumerDefaults(cfg)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		GroupTopics:    cfg.Topics,
		MinBytes:       cfg.MinBytes,
		MaxBytes:       cfg.MaxBytes,
		MaxWait:        cfg.MaxWait,
		CommitInterval: cfg.CommitInterval,
		StartOffset:    cfg.StartOffset,
	})
	return newConsumer(reader, cfg, deadLetter, logger), nil
}

func newConsumer(r ReaderInterface, cfg ConsumerConfig, deadLetter Publisher, logger logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Consumer{
		reader:     r,
		config:     consumerDefaults(cfg),
		handlers:   make(map[string]MessageHandler),
		deadLetter: deadLetter,
		logger:     logger.Named("kafka.consumer"),
		metrics:    &ConsumerMetrics{},
	}
}

func consumerDefaults(cfg ConsumerConfig) ConsumerConfig {
	if cfg.MinBytes == 0 {
		cfg.MinBytes = 1
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 10 * 1024 * 1024
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = 500 * time.Millisecond
	}
	if cfg.StartOffset == 0 {
		cfg.StartOffset = kafka.FirstOffset
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = time.Second
	}
	return cfg
}

// Subscribe registers handler for topic, replacing any previous handler.
func (c *Consumer) Subscribe(topic string, handler MessageHandler) error {
	if topic == "" {
		return errors.New(errors.ErrCodeValidation, "topic required")
	}
	if handler == nil {
		return errors.New(errors.ErrCodeValidation, "handler required")
	}
	c.mu.Lock()
	c.handlers[topic] = handler
	c.mu.Unlock()
	return nil
}

// Start launches the consume loop. It returns immediately.
func (c *Consumer) Start(ctx context.Context) error {
	if c.closed.Load() {
		return ErrConsumerClosed
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.consumeLoop(ctx)
	c.logger.Info("kafka consumer started",
		logging.String("group", c.config.GroupID),
		logging.Strings("topics", c.config.Topics))
	return nil
}

// Wait blocks until the consume loop exits.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || c.closed.Load() {
				return
			}
			c.logger.Warn("fetch failed", logging.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.config.RetryBackoff):
			}
			continue
		}
		c.processMessage(ctx, m)
	}
}

func (c *Consumer) processMessage(ctx context.Context, m kafka.Message) {
	c.mu.RLock()
	handler, ok := c.handlers[m.Topic]
	c.mu.RUnlock()

	if !ok {
		c.logger.Warn("no handler for topic", logging.String("topic", m.Topic))
		c.commit(ctx, m)
		return
	}

	msg := fromKafkaMessage(m)
	var err error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.metrics.MessagesRetried.Add(1)
			backoff := c.config.RetryBackoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
		}
		if err = handler(ctx, msg); err == nil {
			c.metrics.MessagesConsumed.Add(1)
			c.commit(ctx, m)
			return
		}
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("handler failed",
			logging.String("topic", m.Topic),
			logging.Int64("offset", m.Offset),
			logging.Int("attempt", attempt+1),
			logging.Err(err))
	}

	c.metrics.MessagesFailed.Add(1)
	if c.deadLetter != nil && c.config.DeadLetterTopic != "" {
		headers := map[string]string{
			"x-original-topic": m.Topic,
			"x-error":          err.Error(),
		}
		for k, v := range msg.Headers {
			headers[k] = v
		}
		dlq := &ProducerMessage{Topic: c.config.DeadLetterTopic, Key: m.Key, Value: m.Value, Headers: headers}
		if perr := c.deadLetter.Publish(ctx, dlq); perr != nil {
			c.logger.Error("dead letter publish failed", logging.Err(perr))
			return
		}
		c.metrics.MessagesDLQ.Add(1)
	}
	c.commit(ctx, m)
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		c.logger.Error("commit failed", logging.Int64("offset", m.Offset), logging.Err(err))
	}
}

// Metrics returns the consumer counters.
func (c *Consumer) Metrics() *ConsumerMetrics { return c.metrics }

// Close stops the loop and closes the reader.
func (c *Consumer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	err := c.reader.Close()
	c.wg.Wait()
	c.logger.Info("kafka consumer closed", logging.Int64("consumed", c.metrics.MessagesConsumed.Load()))
	return err
}

func fromKafkaMessage(m kafka.Message) *Message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Headers:   headers,
		Timestamp: m.Time,
	}
}

// ValidateConsumerConfig validates configuration.
func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if cfg.GroupID == "" {
		return errors.New(errors.ErrCodeValidation, "group id required")
	}
	if len(cfg.Topics) == 0 {
		return errors.New(errors.ErrCodeValidation, "at least one topic required")
	}
	if cfg.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "max retries must be >= 0")
	}
	return nil
}

//Personal.AI order the ending
