package kafka

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/DockFlow/internal/config"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/pkg/errors"
)

// Job event topics.
const (
	TopicJobRequested  = config.DefaultKafkaRequestTopic
	TopicJobCompleted  = config.DefaultKafkaCompletedTopic
	TopicJobFailed     = config.DefaultKafkaFailedTopic
	TopicJobDeadLetter = "dockflow.job.dead_letter"
)

// Event types carried in EventEnvelope.EventType.
const (
	EventJobRequested = "job.requested"
	EventJobCompleted = "job.completed"
	EventJobFailed    = "job.failed"
)

const eventSource = "dockflow"

// EventEnvelope wraps every job event published by DockFlow.
type EventEnvelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Version   string          `json:"version"`
	JobID     string          `json:"job_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEventEnvelope marshals payload into a new envelope.
func NewEventEnvelope(eventType, jobID string, payload interface{}) (*EventEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "marshal event payload")
	}
	return &EventEnvelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Source:    eventSource,
		Timestamp: time.Now().UTC(),
		Version:   "1.0",
		JobID:     jobID,
		Payload:   raw,
	}, nil
}

// DecodePayload unmarshals the payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "decode event payload").WithDetail(e.EventType)
	}
	return nil
}

// ToMessage converts the envelope into a ProducerMessage keyed by job ID.
func (e *EventEnvelope) ToMessage(topic string) (*ProducerMessage, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "marshal event envelope")
	}
	return &ProducerMessage{
		Topic: topic,
		Key:   []byte(e.JobID),
		Value: value,
		Headers: map[string]string{
			"event_type": e.EventType,
			"event_id":   e.EventID,
		},
		Timestamp: e.Timestamp,
	}, nil
}

// MessageToEventEnvelope decodes a consumed message.
func MessageToEventEnvelope(msg *Message) (*EventEnvelope, error) {
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode event envelope").WithDetail(msg.Topic)
	}
	if env.EventType == "" {
		return nil, errors.New(errors.ErrCodeSerialization, "event envelope has no type").WithDetail(msg.Topic)
	}
	return &env, nil
}

// PublishEvent wraps payload in an envelope and publishes it to topic.
func PublishEvent(ctx context.Context, p Publisher, topic, eventType, jobID string, payload interface{}) error {
	env, err := NewEventEnvelope(eventType, jobID, payload)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(topic)
	if err != nil {
		return err
	}
	return p.Publish(ctx, msg)
}

// TopicConfig describes a topic to create.
type TopicConfig struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	RetentionMs       int64
}

// JobTopics returns the configured job topics plus the dead letter topic,
// with a retention of one week.
func JobTopics(cfg config.KafkaConfig) []TopicConfig {
	week := int64(7 * 24 * time.Hour / time.Millisecond)
	names := []string{cfg.RequestTopic, cfg.CompletedTopic, cfg.FailedTopic, TopicJobDeadLetter}
	out := make([]TopicConfig, 0, len(names))
	for _, n := range names {
		out = append(out, TopicConfig{Name: n, Partitions: cfg.Partitions, ReplicationFactor: cfg.ReplicationFactor, RetentionMs: week})
	}
	return out
}

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates topics through the cluster controller.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

// NewTopicManager dials the controller of the cluster at brokers[0].
func NewTopicManager(ctx context.Context, brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessageQueueError, "dial kafka").WithDetail(brokers[0])
	}
	defer conn.Close()
	controller, err := conn.Controller()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessageQueueError, "find controller")
	}
	addr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	cc, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessageQueueError, "dial controller").WithDetail(addr)
	}
	return newTopicManager(cc, logger), nil
}

func newTopicManager(conn ConnInterface, logger logging.Logger) *TopicManager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TopicManager{conn: conn, logger: logger.Named("kafka.topics")}
}

// EnsureTopics creates the topics that do not exist yet.
func (m *TopicManager) EnsureTopics(topics []TopicConfig) error {
	var missing []kafka.TopicConfig
	for _, t := range topics {
		if t.Name == "" || t.Partitions <= 0 || t.ReplicationFactor <= 0 {
			return errors.New(errors.ErrCodeValidation, "invalid topic config").WithDetail(t.Name)
		}
		parts, err := m.conn.ReadPartitions(t.Name)
		if err == nil && len(parts) > 0 {
			continue
		}
		missing = append(missing, kafka.TopicConfig{
			Topic:             t.Name,
			NumPartitions:     t.Partitions,
			ReplicationFactor: t.ReplicationFactor,
			ConfigEntries: []kafka.ConfigEntry{
				{ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(t.RetentionMs, 10)},
			},
		})
	}
	if len(missing) == 0 {
		return nil
	}
	if err := m.conn.CreateTopics(missing...); err != nil {
		return errors.Wrap(err, errors.ErrCodeMessageQueueError, "create topics")
	}
	for _, t := range missing {
		m.logger.Info("topic created", logging.String("topic", t.Topic), logging.Int("partitions", t.NumPartitions))
	}
	return nil
}

// Close closes the controller connection.
func (m *TopicManager) Close() error {
	return m.conn.Close()
}

//Personal.AI order the ending
