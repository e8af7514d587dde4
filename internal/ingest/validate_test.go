package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brooktewabe/Activity-Log-Service/internal/models"
)

func TestValidator(t *testing.T) {
	base := models.IngestionRequest{Service: "svc", Action: "act", Severity: "info"}

	tests := []struct {
		name    string
		strict  bool
		mutate  func(*models.IngestionRequest)
		invalid []string
	}{
		{name: "valid lenient", mutate: func(*models.IngestionRequest) {}},
		{name: "valid strict", strict: true, mutate: func(r *models.IngestionRequest) {
			r.UserID = models.Some("u-1")
			r.Timestamp = models.Some("2024-05-01T10:00:00.5+02:00")
		}},
		{name: "missing required", mutate: func(r *models.IngestionRequest) {
			r.Service, r.Action, r.Severity = "", "", ""
		}, invalid: []string{"service", "action", "severity"}},
		{name: "lenient ignores severity and timestamp", mutate: func(r *models.IngestionRequest) {
			r.Severity = "loud"
			r.Timestamp = models.Some("last tuesday")
		}},
		{name: "strict severity", strict: true, mutate: func(r *models.IngestionRequest) {
			r.Severity = "debug"
		}, invalid: []string{"severity"}},
		{name: "strict timestamp", strict: true, mutate: func(r *models.IngestionRequest) {
			r.Timestamp = models.Some("2024-05-01 10:00")
		}, invalid: []string{"timestamp"}},
		{name: "strict lengths", strict: true, mutate: func(r *models.IngestionRequest) {
			r.Service = strings.Repeat("s", MaxServiceLen+1)
			r.Action = strings.Repeat("a", MaxActionLen+1)
			r.UserID = models.Some(strings.Repeat("u", MaxUserIDLen+1))
		}, invalid: []string{"service", "action", "userId"}},
		{name: "strict limits are inclusive", strict: true, mutate: func(r *models.IngestionRequest) {
			r.Service = strings.Repeat("s", MaxServiceLen)
			r.Action = strings.Repeat("a", MaxActionLen)
		}},
		{name: "strict missing severity reported once", strict: true, mutate: func(r *models.IngestionRequest) {
			r.Severity = ""
		}, invalid: []string{"severity"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)

			err := NewValidator(tt.strict).Validate(req)
			if len(tt.invalid) == 0 {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.ErrorIs(t, err, ErrInvalidRequest)

			fields := make([]string, len(verr.Fields))
			for i, f := range verr.Fields {
				fields[i] = f.Field
			}
			assert.ElementsMatch(t, tt.invalid, fields)
		})
	}
}
