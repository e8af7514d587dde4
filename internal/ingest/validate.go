package ingest

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/brooktewabe/Activity-Log-Service/internal/models"
)

// Limits enforced in strict mode.
const (
	MaxServiceLen = 100
	MaxActionLen  = 200
	MaxUserIDLen  = 100
)

var severities = []string{
	models.SeverityInfo,
	models.SeverityWarn,
	models.SeverityError,
	models.SeverityCritical,
}

// fieldRule applies tag to a field. value reports false when there is
// nothing to check: an absent optional or an already missing required field.
type fieldRule struct {
	field string
	tag   string
	value func(models.IngestionRequest) (string, bool)
	msg   string
}

var strictRules = []fieldRule{
	{
		field: "service",
		tag:   fmt.Sprintf("max=%d", MaxServiceLen),
		value: func(r models.IngestionRequest) (string, bool) { return r.Service, r.Service != "" },
		msg:   fmt.Sprintf(`"service" must be at most %d characters`, MaxServiceLen),
	},
	{
		field: "action",
		tag:   fmt.Sprintf("max=%d", MaxActionLen),
		value: func(r models.IngestionRequest) (string, bool) { return r.Action, r.Action != "" },
		msg:   fmt.Sprintf(`"action" must be at most %d characters`, MaxActionLen),
	},
	{
		field: "userId",
		tag:   fmt.Sprintf("max=%d", MaxUserIDLen),
		value: func(r models.IngestionRequest) (string, bool) { return r.UserID.Get() },
		msg:   fmt.Sprintf(`"userId" must be at most %d characters`, MaxUserIDLen),
	},
	{
		field: "severity",
		tag:   "oneof=info warn error critical",
		value: func(r models.IngestionRequest) (string, bool) { return r.Severity, r.Severity != "" },
		msg:   fmt.Sprintf(`"severity" must be one of %v`, severities),
	},
	{
		field: "timestamp",
		tag:   "datetime=" + time.RFC3339,
		value: func(r models.IngestionRequest) (string, bool) { return r.Timestamp.Get() },
		msg:   `"timestamp" must be an RFC 3339 date-time`,
	},
}

// Validator checks requests before a record is built. Required fields are
// always checked; strict adds the length, severity and timestamp rules.
type Validator struct {
	strict   bool
	validate *validator.Validate
}

func NewValidator(strict bool) *Validator {
	return &Validator{strict: strict, validate: validator.New()}
}

// Strict reports whether the strict rules are enabled.
func (v *Validator) Strict() bool {
	return v.strict
}

// Validate returns a *ValidationError listing every failing field, or nil.
func (v *Validator) Validate(req models.IngestionRequest) error {
	var fields []FieldError

	for _, f := range []struct{ name, value string }{
		{"service", req.Service},
		{"action", req.Action},
		{"severity", req.Severity},
	} {
		if f.value == "" {
			fields = append(fields, FieldError{Field: f.name, Message: fmt.Sprintf("%q is required", f.name)})
		}
	}

	if v.strict {
		for _, rule := range strictRules {
			val, ok := rule.value(req)
			if !ok {
				continue
			}
			if err := v.validate.Var(val, rule.tag); err != nil {
				fields = append(fields, FieldError{Field: rule.field, Message: rule.msg})
			}
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
