package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	v1 "github.com/lia-lab/lia-sync/internal/api/v1"
	httperr "github.com/lia-lab/lia-sync/internal/core/errors"
	"github.com/lia-lab/lia-sync/internal/core/storage"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidJSON    = "Invalid JSON body"
	msgPersistFailed  = "Failed to persist record"
	msgEmptyBatch     = "Batch must contain at least one record"
)

// SampleBatch is the request body of POST /v1/samples.
type SampleBatch struct {
	Samples []v1.Sample `json:"samples"`
}

// SessionBatch is the request body of POST /v1/sleep-sessions.
type SessionBatch struct {
	Sessions []v1.SleepSession `json:"sessions"`
}

// BatchResult reports how many records of a batch were new. Records whose id
// was already stored are counted as duplicates, not failures, so the device
// bridge can re-send overlapping reads.
type BatchResult struct {
	Accepted   int `json:"accepted"`
	Duplicates int `json:"duplicates"`
}

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// IngestSamplesHandler handles POST /v1/samples.
func (s *Service) IngestSamplesHandler(c *gin.Context) {
	var batch SampleBatch
	size, ierr := s.parseBody(c, &batch)
	if ierr != nil {
		writeError(c, ierr)
		return
	}
	if len(batch.Samples) == 0 {
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    msgEmptyBatch,
		})
		return
	}

	for i := range batch.Samples {
		if err := batch.Samples[i].Validate(); err != nil {
			slog.Warn("[Ingestion] Sample validation failed", "index", i, "sample_id", batch.Samples[i].ID, "error", err)
			writeError(c, validationError(i, err))
			return
		}
	}

	slog.Info("[Ingestion] Received samples", "count", len(batch.Samples), "payload_size", size)

	var res BatchResult
	for i := range batch.Samples {
		smp := &batch.Samples[i]
		dup, ierr := persist(c.Request.Context(), func(ctx context.Context) error {
			return s.store.SaveSample(ctx, smp)
		}, "sample_id", smp.ID)
		if ierr != nil {
			writeError(c, ierr)
			return
		}
		res.add(dup)
	}

	c.JSON(http.StatusAccepted, res)
}

// IngestSleepSessionsHandler handles POST /v1/sleep-sessions.
func (s *Service) IngestSleepSessionsHandler(c *gin.Context) {
	var batch SessionBatch
	size, ierr := s.parseBody(c, &batch)
	if ierr != nil {
		writeError(c, ierr)
		return
	}
	if len(batch.Sessions) == 0 {
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    msgEmptyBatch,
		})
		return
	}

	for i := range batch.Sessions {
		if err := batch.Sessions[i].Validate(); err != nil {
			slog.Warn("[Ingestion] Sleep session validation failed", "index", i, "session_id", batch.Sessions[i].ID, "error", err)
			writeError(c, validationError(i, err))
			return
		}
	}

	slog.Info("[Ingestion] Received sleep sessions", "count", len(batch.Sessions), "payload_size", size)

	var res BatchResult
	for i := range batch.Sessions {
		sess := &batch.Sessions[i]
		dup, ierr := persist(c.Request.Context(), func(ctx context.Context) error {
			return s.store.SaveSleepSession(ctx, sess)
		}, "session_id", sess.ID)
		if ierr != nil {
			writeError(c, ierr)
			return
		}
		res.add(dup)
	}

	c.JSON(http.StatusAccepted, res)
}

// ListSamplesHandler handles GET /v1/samples/:metric?start=&end=.
// Both bounds are RFC3339 and inclusive; end defaults to now and start to one day before end.
func (s *Service) ListSamplesHandler(c *gin.Context) {
	metric, err := v1.ParseMetric(c.Param("metric"))
	if err != nil || metric == v1.MetricSleep {
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    fmt.Sprintf("unsupported metric %q", c.Param("metric")),
		})
		return
	}

	start, end, ierr := parseRange(c)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	samples, err := s.store.RetrieveSamples(c.Request.Context(), metric, start, end)
	if err != nil {
		slog.Error("[Ingestion] Failed to list samples", "metric", metric, "error", err)
		writeError(c, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    "Failed to list samples",
		})
		return
	}
	if samples == nil {
		samples = []v1.Sample{}
	}
	c.JSON(http.StatusOK, samples)
}

// parseBody reads the raw request body under the size limit and binds it into dst.
// Returns the raw payload size for structured logging upstream.
func (s *Service) parseBody(c *gin.Context, dst interface{}) (int, *ingestionError) {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("[Ingestion] Failed to read request body", "error", err)
		return 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("[Ingestion] Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	if err := c.ShouldBindJSON(dst); err != nil {
		slog.Warn("[Ingestion] Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}
	return len(bodyBytes), nil
}

// persist runs save and reports whether the record was a duplicate.
func persist(ctx context.Context, save func(context.Context) error, idKey, id string) (bool, *ingestionError) {
	err := save(ctx)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, storage.ErrDuplicate) {
		slog.Debug("[Ingestion] Duplicate record skipped", idKey, id)
		return true, nil
	}
	slog.Error("[Ingestion] Failed to persist record", idKey, id, "error", err)
	return false, &ingestionError{
		statusCode: http.StatusInternalServerError,
		errorType:  httperr.HttpInternalError,
		message:    msgPersistFailed,
		details:    map[string]interface{}{idKey: id},
	}
}

func parseRange(c *gin.Context) (time.Time, time.Time, *ingestionError) {
	end := time.Now().UTC()
	if raw := c.Query("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, rangeError("end must be RFC3339")
		}
		end = t
	}
	start := end.Add(-defaultListWindow)
	if raw := c.Query("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, rangeError("start must be RFC3339")
		}
		start = t
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, rangeError("end must not be before start")
	}
	return start, end, nil
}

func rangeError(msg string) *ingestionError {
	return &ingestionError{
		statusCode: http.StatusBadRequest,
		errorType:  httperr.HttpValidationError,
		message:    msg,
	}
}

func validationError(index int, err error) *ingestionError {
	return &ingestionError{
		statusCode: http.StatusBadRequest,
		errorType:  httperr.HttpValidationError,
		message:    err.Error(),
		details:    map[string]interface{}{"index": index},
	}
}

func (r *BatchResult) add(duplicate bool) {
	if duplicate {
		r.Duplicates++
		return
	}
	r.Accepted++
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
