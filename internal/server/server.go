// Package server exposes the photo library and the intelligence pipeline over HTTP.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anatolykoptev/go-phototag"
	"github.com/anatolykoptev/go-phototag/internal/assets"
	"github.com/anatolykoptev/go-phototag/internal/retag"
)

// PhotoStore is the persistence the handlers need.
type PhotoStore interface {
	List() ([]phototag.Photo, error)
	Get(id string) (phototag.Photo, error)
	Upsert(photo phototag.Photo) error
	Update(id string, fn func(*phototag.Photo) error) (phototag.Photo, error)
	Delete(id string) (phototag.Photo, error)
}

// Analyzer runs the intelligence pipeline. It never fails; a failed run is
// reported through Analysis.Status.
type Analyzer interface {
	Analyze(ctx context.Context, imagePath string, photo *phototag.Photo) phototag.Analysis
}

// LegacyClassifier is the second classification tier used when the
// pipeline falls back.
type LegacyClassifier interface {
	Classify(ctx context.Context, imagePath string) (phototag.LegacyResult, error)
}

// Locator turns coordinates into a display location.
type Locator interface {
	Locate(ctx context.Context, lat, lng float64) string
}

// Deps are the collaborators of a Server. Legacy, Geocoder, Retag and
// Metrics are optional.
type Deps struct {
	Photos    PhotoStore
	Assets    assets.Store
	Analyzer  Analyzer
	Legacy    LegacyClassifier
	Geocoder  Locator
	Gazetteer *phototag.Gazetteer
	Dedup     *phototag.DuplicateIndex
	Retag     *retag.Job
	Metrics   *Metrics

	// Models reports which lazily loaded models are warm, for /api/health.
	Models func() map[string]bool

	MaxUploadBytes int64
	TempDir        string
}

type Server struct {
	deps Deps
}

func New(deps Deps) *Server {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 50 << 20
	}
	if deps.Gazetteer == nil {
		deps.Gazetteer = phototag.DefaultGazetteer()
	}
	if deps.Dedup == nil {
		deps.Dedup = phototag.NewDuplicateIndex()
	}
	return &Server{deps: deps}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}
	r.MaxMultipartMemory = s.deps.MaxUploadBytes

	api := r.Group("/api")
	api.GET("/health", s.health)
	api.GET("/photos", s.listPhotos)
	api.GET("/photos/:id", s.getPhoto)
	api.PATCH("/photos/:id", s.patchPhoto)
	api.DELETE("/photos/:id", s.deletePhoto)
	api.GET("/series", s.listSeries)
	api.POST("/upload", s.upload)
	api.POST("/analyze", s.analyze)

	r.GET("/ws", s.websocket)
	return r
}

// IndexExisting loads the perceptual hashes of stored photos into the
// duplicate index.
func (s *Server) IndexExisting() error {
	photos, err := s.deps.Photos.List()
	if err != nil {
		return err
	}
	for _, p := range photos {
		if p.Hash != "" {
			s.deps.Dedup.Add(p.ID, p.Hash)
		}
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if s.deps.Models != nil {
		resp["models"] = s.deps.Models()
	}
	c.JSON(http.StatusOK, resp)
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
