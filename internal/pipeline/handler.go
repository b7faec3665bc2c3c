package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/lia-lab/lia-sync/internal/api/v1"
	"github.com/lia-lab/lia-sync/internal/auth"
	httperr "github.com/lia-lab/lia-sync/internal/core/errors"
	"github.com/lia-lab/lia-sync/internal/dedup"
	"github.com/lia-lab/lia-sync/internal/source"
)

// Authenticator exchanges a credential for a stored bearer token.
type Authenticator interface {
	Login(ctx context.Context, email, credential string) (v1.LoginResponse, error)
}

// Service exposes the pipeline over HTTP.
type Service struct {
	pipeline *Pipeline
	guard    *dedup.Guard
	auth     Authenticator
}

func NewService(p *Pipeline, guard *dedup.Guard, authn Authenticator) *Service {
	if p == nil {
		panic("pipeline: pipeline must not be nil")
	}
	if guard == nil {
		panic("pipeline: guard must not be nil")
	}
	return &Service{pipeline: p, guard: guard, auth: authn}
}

// RegisterRoutes registers the upload, status, preview and login routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/uploads/recent", s.UploadRecentHandler)
	r.GET("/v1/uploads/status", s.StatusHandler)
	r.GET("/v1/health/preview", s.PreviewHandler)
	if s.auth != nil {
		r.POST("/v1/login", s.LoginHandler)
	}
}

// UploadRecentHandler runs the on-demand upload and reports its result.
func (s *Service) UploadRecentHandler(c *gin.Context) {
	report, err := s.pipeline.RunRecent(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrRetryable) {
			slog.Warn("[PipelineAPI] Recent upload failed", "run_id", report.RunID, "error", err)
			writeError(c, http.StatusBadGateway, httperr.HttpUpstreamError, "Upload could not be delivered", report)
			return
		}
		slog.Error("[PipelineAPI] Recent upload failed", "run_id", report.RunID, "error", err)
		writeError(c, http.StatusInternalServerError, httperr.HttpInternalError, "Upload failed", report)
		return
	}

	if report.Outcome == OutcomeNoAccess {
		writeError(c, http.StatusForbidden, httperr.HttpNoAccessError, "Required data access not granted", report)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Service) StatusHandler(c *gin.Context) {
	st, err := s.guard.State(c.Request.Context())
	if err != nil {
		slog.Error("[PipelineAPI] Failed to read upload state", "error", err)
		writeError(c, http.StatusInternalServerError, httperr.HttpInternalError, "Failed to read upload state", nil)
		return
	}
	c.JSON(http.StatusOK, st)
}

// PreviewHandler returns the unencrypted payload of the recent span.
func (s *Service) PreviewHandler(c *gin.Context) {
	p, err := s.pipeline.Preview(c.Request.Context())
	if err != nil {
		if errors.Is(err, source.ErrNoAccess) {
			writeError(c, http.StatusForbidden, httperr.HttpNoAccessError, "Required data access not granted", nil)
			return
		}
		slog.Error("[PipelineAPI] Preview failed", "error", err)
		writeError(c, http.StatusInternalServerError, httperr.HttpInternalError, "Failed to build preview", nil)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Service) LoginHandler(c *gin.Context) {
	var req v1.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Credential == "" {
		writeError(c, http.StatusBadRequest, httperr.HttpInvalidJsonError, "email and credential are required", nil)
		return
	}

	resp, err := s.auth.Login(c.Request.Context(), req.Email, req.Credential)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "logged_in", "user": resp.Data.User})
	case errors.Is(err, auth.ErrLoginRejected), errors.Is(err, auth.ErrNoToken):
		writeError(c, http.StatusUnauthorized, httperr.HttpLoginRejectedError, err.Error(), nil)
	default:
		slog.Error("[PipelineAPI] Login failed", "error", err)
		writeError(c, http.StatusBadGateway, httperr.HttpUpstreamError, "Login service unavailable", nil)
	}
}

func writeError(c *gin.Context, status int, errorType, message string, details interface{}) {
	c.JSON(status, httperr.ErrorResponse{
		ErrorType: errorType,
		Message:   message,
		Details:   details,
	})
}
