package models

import "encoding/json"

// Severity values accepted when strict validation is enabled.
const (
	SeverityInfo     = "info"
	SeverityWarn     = "warn"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// IngestionRequest is the POST /api/v1/logs payload.
// service, action and severity are required; the rest are optional and keep
// their presence through to the LogRecord.
type IngestionRequest struct {
	Service   string                    `json:"service" binding:"required"`
	Action    string                    `json:"action" binding:"required"`
	UserID    Optional[string]          `json:"userId,omitzero"`
	Metadata  Optional[json.RawMessage] `json:"metadata,omitzero"`
	Severity  string                    `json:"severity" binding:"required"`
	Timestamp Optional[string]          `json:"timestamp,omitzero"`
}

// LogRecord is the value produced to the broker, one per accepted request.
// The id travels as "_id", the name existing consumers index on.
type LogRecord struct {
	ID        string                    `json:"_id"`
	Service   string                    `json:"service"`
	Action    string                    `json:"action"`
	UserID    Optional[string]          `json:"userId,omitzero"`
	Metadata  Optional[json.RawMessage] `json:"metadata,omitzero"`
	Severity  string                    `json:"severity"`
	Timestamp string                    `json:"timestamp"`
	CreatedAt string                    `json:"createdAt"`
}

// Encode returns the canonical JSON form of the record.
func (r LogRecord) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeLogRecord parses a record value produced by Encode.
func DecodeLogRecord(data []byte) (LogRecord, error) {
	var r LogRecord
	err := json.Unmarshal(data, &r)
	return r, err
}

// IngestionResponse is returned by POST /api/v1/logs.
// LogID may be set even when Success is false: the id was generated but the
// record did not reach the broker.
type IngestionResponse struct {
	Success bool   `json:"success"`
	LogID   string `json:"logId"`
	Message string `json:"message"`
}

// BatchIngestionResponse is returned by POST /api/v1/logs/batch.
type BatchIngestionResponse struct {
	Success bool     `json:"success"`
	LogIDs  []string `json:"logIds"`
	Count   int      `json:"count"`
	Message string   `json:"message"`
}
