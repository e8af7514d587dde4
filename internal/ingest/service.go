// Package ingest turns ingestion requests into broker records.
package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/brooktewabe/Activity-Log-Service/internal/broker"
	"github.com/brooktewabe/Activity-Log-Service/internal/models"
)

// MaxBatchSize is the largest array accepted by SubmitBatch.
const MaxBatchSize = 100

// Response messages. Callers must rely on success and status, not on these.
const (
	MsgAccepted         = "Log accepted for processing"
	MsgBatchAccepted    = "Logs accepted for processing"
	MsgQueueFailed      = "Failed to queue log"
	MsgBatchQueueFailed = "Failed to queue logs"
	MsgProcessFailed    = "Failed to process log"
)

// Recorder receives ingestion counters. *metrics.Metrics implements it.
type Recorder interface {
	LogIngested(service, severity string)
	Produced(n int)
	ProduceFailed(n int)
}

type nopRecorder struct{}

func (nopRecorder) LogIngested(string, string) {}
func (nopRecorder) Produced(int)               {}
func (nopRecorder) ProduceFailed(int)          {}

// Service is shared by all request handlers. It holds no per-request state.
type Service struct {
	producer  broker.Producer
	validator *Validator
	metrics   Recorder
	logger    *log.Logger

	newID func() string
	now   func() time.Time
}

// NewService creates a Service. A nil validator checks required fields only;
// nil metrics and logger are replaced by no-op and default implementations.
func NewService(p broker.Producer, v *Validator, m Recorder, logger *log.Logger) *Service {
	if v == nil {
		v = NewValidator(false)
	}
	if m == nil {
		m = nopRecorder{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		producer:  p,
		validator: v,
		metrics:   m,
		logger:    logger,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// BuildRecord constructs the record for req. Timestamp falls back to createdAt.
func BuildRecord(req models.IngestionRequest, id, createdAt string) models.LogRecord {
	return models.LogRecord{
		ID:        id,
		Service:   req.Service,
		Action:    req.Action,
		UserID:    req.UserID,
		Metadata:  req.Metadata,
		Severity:  req.Severity,
		Timestamp: req.Timestamp.OrElse(createdAt),
		CreatedAt: createdAt,
	}
}

func (s *Service) createdAt() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// Submit validates req, builds its record and produces it keyed by the
// record id. The returned error wraps ErrInvalidRequest, ErrEncode or
// ErrProduce; the response is filled in for every case.
func (s *Service) Submit(ctx context.Context, req models.IngestionRequest) (models.IngestionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return models.IngestionResponse{Success: false, Message: err.Error()}, err
	}

	id := s.newID()
	record := BuildRecord(req, id, s.createdAt())

	value, err := record.Encode()
	if err != nil {
		s.logger.Printf("ERROR: failed to encode log %s: %v", id, err)
		return models.IngestionResponse{Success: false, LogID: "", Message: MsgProcessFailed},
			fmt.Errorf("%w: %v", ErrEncode, err)
	}

	if err := s.producer.Produce(ctx, broker.Message{Key: id, Value: value}); err != nil {
		s.logger.Printf("ERROR: failed to queue log %s: %v", id, err)
		s.metrics.ProduceFailed(1)
		return models.IngestionResponse{Success: false, LogID: id, Message: MsgQueueFailed},
			fmt.Errorf("%w: %w", ErrProduce, err)
	}

	s.metrics.Produced(1)
	s.metrics.LogIngested(req.Service, req.Severity)

	return models.IngestionResponse{Success: true, LogID: id, Message: MsgAccepted}, nil
}

// SubmitBatch is Submit for 1..MaxBatchSize requests. Records share one
// createdAt and go to the producer in a single call, so they succeed or fail
// together.
func (s *Service) SubmitBatch(ctx context.Context, reqs []models.IngestionRequest) (models.BatchIngestionResponse, error) {
	if len(reqs) == 0 || len(reqs) > MaxBatchSize {
		err := &ValidationError{Fields: []FieldError{{
			Field:   "",
			Message: fmt.Sprintf("batch must contain between 1 and %d logs", MaxBatchSize),
		}}}
		return models.BatchIngestionResponse{Success: false, LogIDs: []string{}, Message: err.Error()}, err
	}

	var invalid []FieldError
	for i, req := range reqs {
		if err := s.validator.Validate(req); err != nil {
			for _, f := range err.(*ValidationError).Fields {
				invalid = append(invalid, FieldError{
					Field:   fmt.Sprintf("%d.%s", i, f.Field),
					Message: f.Message,
				})
			}
		}
	}
	if len(invalid) > 0 {
		err := &ValidationError{Fields: invalid}
		return models.BatchIngestionResponse{Success: false, LogIDs: []string{}, Message: err.Error()}, err
	}

	createdAt := s.createdAt()
	ids := make([]string, len(reqs))
	msgs := make([]broker.Message, len(reqs))

	for i, req := range reqs {
		ids[i] = s.newID()
		value, err := BuildRecord(req, ids[i], createdAt).Encode()
		if err != nil {
			s.logger.Printf("ERROR: failed to encode log %s: %v", ids[i], err)
			return models.BatchIngestionResponse{Success: false, LogIDs: []string{}, Message: MsgProcessFailed},
				fmt.Errorf("%w: %v", ErrEncode, err)
		}
		msgs[i] = broker.Message{Key: ids[i], Value: value}
	}

	if err := s.producer.Produce(ctx, msgs...); err != nil {
		s.logger.Printf("ERROR: failed to queue batch of %d logs (first id %s): %v", len(ids), ids[0], err)
		s.metrics.ProduceFailed(len(msgs))
		return models.BatchIngestionResponse{Success: false, LogIDs: ids, Count: 0, Message: MsgBatchQueueFailed},
			fmt.Errorf("%w: %w", ErrProduce, err)
	}

	s.metrics.Produced(len(msgs))
	for _, req := range reqs {
		s.metrics.LogIngested(req.Service, req.Severity)
	}

	return models.BatchIngestionResponse{Success: true, LogIDs: ids, Count: len(ids), Message: MsgBatchAccepted}, nil
}
