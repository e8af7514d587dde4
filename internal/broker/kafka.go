package broker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/brooktewabe/Activity-Log-Service/internal/config"
)

// KafkaProducer implements Producer on top of a kafka-go Writer.
type KafkaProducer struct {
	writer         *kafka.Writer
	transport      *kafka.Transport
	logger         *log.Logger
	topic          string
	messageTimeout time.Duration
	onFailure      func(n int)
}

// NewKafkaProducer builds the writer from cfg. No connection is opened until
// the first Produce call.
//
// onFailure, if not nil, is called with the number of records the broker
// rejected after Produce already reported success (enqueue mode only).
func NewKafkaProducer(cfg config.KafkaConfig, logger *log.Logger, onFailure func(n int)) (*KafkaProducer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka producer configuration incomplete: both brokers and topic are required")
	}
	if logger == nil {
		logger = log.Default()
	}

	requiredAcks, err := parseRequiredAcks(cfg.RequiredAcks)
	if err != nil {
		return nil, err
	}

	p := &KafkaProducer{
		logger:         logger,
		topic:          cfg.Topic,
		messageTimeout: cfg.MessageTimeout,
		onFailure:      onFailure,
	}

	async := cfg.DeliveryMode == config.DeliveryEnqueue
	p.transport = &kafka.Transport{
		ClientID: cfg.ClientID,
	}

	p.writer = &kafka.Writer{
		Addr:  kafka.TCP(cfg.Brokers...),
		Topic: cfg.Topic,
		// Same partition for the same key as librdkafka based producers.
		Balancer: &kafka.CRC32Balancer{},

		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.Linger,
		WriteTimeout: cfg.MessageTimeout,

		RequiredAcks:           requiredAcks,
		Async:                  async,
		AllowAutoTopicCreation: cfg.AllowAutoTopicCreation,

		Transport: p.transport,

		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Printf("ERROR: kafka writer: "+msg, args...)
		}),
	}
	if async {
		p.writer.Completion = p.completion
	}

	logger.Printf("INFO: kafka producer created, brokers: %v, topic: %s, delivery: %s",
		cfg.Brokers, cfg.Topic, cfg.DeliveryMode)

	return p, nil
}

func parseRequiredAcks(s string) (kafka.RequiredAcks, error) {
	switch s {
	case "none":
		return kafka.RequireNone, nil
	case "one":
		return kafka.RequireOne, nil
	case "all", "":
		return kafka.RequireAll, nil
	default:
		return 0, fmt.Errorf("unknown required acks %q", s)
	}
}

// Produce writes msgs to the topic. In ack mode it blocks until the broker
// acknowledges every record or the message timeout expires. In enqueue mode it
// returns once the records are buffered.
func (p *KafkaProducer) Produce(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.messageTimeout)
	defer cancel()

	kafkaMsgs := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		kafkaMsgs[i] = kafka.Message{
			Key:   []byte(m.Key),
			Value: m.Value,
		}
	}

	// Callers log failures with the record ids.
	if err := p.writer.WriteMessages(ctx, kafkaMsgs...); err != nil {
		return fmt.Errorf("failed to write to kafka topic %s: %w", p.topic, err)
	}
	return nil
}

// completion runs after each async batch is delivered or abandoned.
func (p *KafkaProducer) completion(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range messages {
		p.logger.Printf("ERROR: delivery failed for record %s: %v", m.Key, err)
	}
	if p.onFailure != nil {
		p.onFailure(len(messages))
	}
}

// Close flushes the buffer, closes the writer and drops the transport's
// idle broker connections, which Writer.Close leaves open.
func (p *KafkaProducer) Close() error {
	p.logger.Println("INFO: closing kafka producer (and flushing buffer)...")
	err := p.writer.Close()
	p.transport.CloseIdleConnections()
	return err
}

var _ Producer = (*KafkaProducer)(nil)
