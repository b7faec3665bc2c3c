package ingestion

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lia-lab/lia-sync/internal/core/storage"
)

// defaultListWindow bounds a listing when the caller omits start.
const defaultListWindow = 24 * time.Hour

type Service struct {
	store            storage.SampleStore
	maxBodySizeBytes int
}

func NewService(store storage.SampleStore, maxBodySizeMB int) *Service {
	if store == nil {
		panic("ingestion: store must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1
	}
	return &Service{
		store:            store,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/samples", s.IngestSamplesHandler)
	r.GET("/v1/samples/:metric", s.ListSamplesHandler)
	r.POST("/v1/sleep-sessions", s.IngestSleepSessionsHandler)
}
