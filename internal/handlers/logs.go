package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/brooktewabe/Activity-Log-Service/internal/ingest"
	"github.com/brooktewabe/Activity-Log-Service/internal/models"
)

var registerTagNames sync.Once

// jsonFieldNames makes binding errors report JSON names (userId, not UserID).
func jsonFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// RegisterLogRoutes registers the ingestion endpoints.
//
// POST /logs
// - Returns 202 once the record is accepted by the broker producer
// - Returns the generated logId even when the broker submission fails
//
// POST /logs/batch
// - 1..100 logs, submitted in one producer call
func RegisterLogRoutes(r gin.IRoutes, svc *ingest.Service) {
	jsonFieldNames()

	r.POST("/logs", func(c *gin.Context) {
		var req models.IngestionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		resp, err := svc.Submit(c.Request.Context(), req)
		if err != nil {
			var verr *ingest.ValidationError
			if errors.As(err, &verr) {
				validationFailed(c, verr.Fields)
				return
			}
			c.JSON(http.StatusInternalServerError, resp)
			return
		}

		c.JSON(http.StatusAccepted, resp)
	})

	r.POST("/logs/batch", func(c *gin.Context) {
		// Decoded without gin's binding so that element indexes survive
		// into the validation details.
		var reqs []models.IngestionRequest
		if err := json.NewDecoder(c.Request.Body).Decode(&reqs); err != nil {
			badRequest(c, err)
			return
		}

		resp, err := svc.SubmitBatch(c.Request.Context(), reqs)
		if err != nil {
			var verr *ingest.ValidationError
			if errors.As(err, &verr) {
				validationFailed(c, verr.Fields)
				return
			}
			c.JSON(http.StatusInternalServerError, resp)
			return
		}

		c.JSON(http.StatusAccepted, resp)
	})
}

func badRequest(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "request body too large"})
		return
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]ingest.FieldError, len(verrs))
		for i, fe := range verrs {
			fields[i] = ingest.FieldError{Field: fe.Field(), Message: fieldMessage(fe)}
		}
		validationFailed(c, fields)
		return
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid JSON payload",
			"details": []ingest.FieldError{{
				Field:   typeErr.Field,
				Message: fmt.Sprintf("%q must be of type %s", typeErr.Field, typeErr.Type),
			}},
		})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid JSON payload"})
}

func validationFailed(c *gin.Context, fields []ingest.FieldError) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "Validation Error",
		"details": fields,
	})
}

func fieldMessage(fe validator.FieldError) string {
	if fe.Tag() == "required" {
		return fmt.Sprintf("%q is required", fe.Field())
	}
	return fmt.Sprintf("%q failed the %q rule", fe.Field(), fe.Tag())
}
