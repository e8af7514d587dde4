// Package app holds the state shared by every request handler.
package app

import (
	"log"

	"github.com/brooktewabe/Activity-Log-Service/internal/broker"
	"github.com/brooktewabe/Activity-Log-Service/internal/config"
	"github.com/brooktewabe/Activity-Log-Service/internal/ingest"
	"github.com/brooktewabe/Activity-Log-Service/internal/metrics"
)

// State is built once at startup and only read afterwards. The producer is
// safe for concurrent use, so handlers share it without locking.
type State struct {
	Config   config.Config
	Producer broker.Producer
	Ingest   *ingest.Service
	Metrics  *metrics.Metrics
	Logger   *log.Logger
}

// New creates the Kafka producer and the ingestion service from cfg.
func New(cfg config.Config, logger *log.Logger) (*State, error) {
	if logger == nil {
		logger = log.Default()
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	if cfg.Kafka.DeliveryMode == config.DeliveryEnqueue && cfg.Kafka.RequiredAcks == "none" {
		logger.Println("WARN: enqueue delivery with required_acks=none never reports delivery failures")
	}

	producer, err := broker.NewKafkaProducer(cfg.Kafka, logger, m.DeliveryFailed)
	if err != nil {
		return nil, err
	}

	return NewWithProducer(cfg, producer, m, logger), nil
}

// NewWithProducer wires State around an existing producer.
func NewWithProducer(cfg config.Config, p broker.Producer, m *metrics.Metrics, logger *log.Logger) *State {
	if logger == nil {
		logger = log.Default()
	}
	return &State{
		Config:   cfg,
		Producer: p,
		Ingest:   ingest.NewService(p, ingest.NewValidator(cfg.StrictValidation), m, logger),
		Metrics:  m,
		Logger:   logger,
	}
}

// Close flushes and closes the producer.
func (s *State) Close() error {
	return s.Producer.Close()
}
