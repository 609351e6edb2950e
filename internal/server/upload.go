package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anatolykoptev/go-phototag"
	"github.com/anatolykoptev/go-phototag/internal/assets"
)

// Classification tiers, in the order they are tried.
const (
	tierPipeline = "pipeline"
	tierLegacy   = "legacy"
	tierDefault  = "default"
)

var errNoFile = errors.New("no file uploaded")

// upload stores a new photo. Classification never fails the request: the
// pipeline result is used unless it fell back, then the legacy classifier,
// then a fixed "other"/"unclassified" default.
func (s *Server) upload(c *gin.Context) {
	name, data, err := s.readUpload(c)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, uploadError(err))
		return
	}

	info, err := phototag.ProbeImage(data)
	if err != nil {
		errorJSON(c, http.StatusUnsupportedMediaType, "File is not a supported image")
		return
	}

	ctx := c.Request.Context()
	now := time.Now().UTC()
	photo := phototag.Photo{
		ID:         uuid.NewString(),
		Title:      strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)),
		Category:   "other",
		Location:   unknownLocation,
		Width:      info.Width,
		Height:     info.Height,
		Tags:       []string{},
		UploadedAt: now,
		TakenAt:    now,
	}
	if exif, takenAt := phototag.ExtractEXIF(data, info.MIMEType); exif != nil {
		photo.EXIF = *exif
		if !takenAt.IsZero() {
			photo.TakenAt = takenAt
		}
	}

	src, err := s.deps.Assets.Put(ctx, assets.FileName(uuid.NewString(), name), data, info.MIMEType)
	if err != nil {
		slog.Error("phototag: store upload", "name", name, "error", err.Error())
		errorJSON(c, http.StatusInternalServerError, "Upload failed")
		return
	}
	photo.Src = src

	if gps := photo.EXIF.GPS; gps.Valid() {
		photo.Coordinates = &phototag.Coordinates{Lat: gps.Latitude, Lng: gps.Longitude}
		photo.Location = s.locate(c, gps.Latitude, gps.Longitude)
	}

	var duplicateOf string
	if hash := phototag.PerceptualHash(data); hash != "" {
		photo.Hash = hash
		duplicateOf, _ = s.deps.Dedup.Match(hash)
	}

	tier := s.classifyUpload(ctx, data, filepath.Ext(name), &photo)
	s.deps.Metrics.observeUpload(tier)

	if phototag.NeedsAutoTitle(photo.Title) {
		photo.Title = phototag.AutoTitle(photo.Title, photo.Location, photo.Category)
	}
	photo.Series = phototag.InferSeries(&photo)

	if err := s.deps.Photos.Upsert(photo); err != nil {
		slog.Error("phototag: save upload", "id", photo.ID, "error", err.Error())
		if derr := s.deps.Assets.Delete(ctx, src); derr != nil {
			slog.Warn("phototag: remove orphaned upload", "src", src, "error", derr.Error())
		}
		errorJSON(c, http.StatusInternalServerError, "Upload failed")
		return
	}
	if photo.Hash != "" {
		s.deps.Dedup.Add(photo.ID, photo.Hash)
	}

	slog.Info("phototag: photo uploaded", "id", photo.ID, "category", photo.Category,
		"tags", len(photo.Tags), "tier", tier)

	resp := gin.H{"success": true, "photo": newPhotoView(photo)}
	if duplicateOf != "" {
		resp["duplicateOf"] = duplicateOf
	}
	c.JSON(http.StatusOK, resp)
}

// analyze classifies an image without storing it.
func (s *Server) analyze(c *gin.Context) {
	name, data, err := s.readUpload(c)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, uploadError(err))
		return
	}
	info, err := phototag.ProbeImage(data)
	if err != nil {
		errorJSON(c, http.StatusUnsupportedMediaType, "File is not a supported image")
		return
	}

	var photo phototag.Photo
	if exif, takenAt := phototag.ExtractEXIF(data, info.MIMEType); exif != nil {
		photo.EXIF = *exif
		photo.TakenAt = takenAt
		if exif.GPS.Valid() {
			photo.Coordinates = &phototag.Coordinates{Lat: exif.GPS.Latitude, Lng: exif.GPS.Longitude}
		}
	}

	tier := s.classifyUpload(c.Request.Context(), data, filepath.Ext(name), &photo)
	c.JSON(http.StatusOK, gin.H{
		"category":   photo.Category,
		"tags":       photo.Tags,
		"metadata":   photo.Metadata,
		"confidence": photo.Confidence,
		"tier":       tier,
	})
}

// classifyUpload runs the classification tiers on a temporary copy of the
// image and writes the result onto photo. It returns the tier used.
func (s *Server) classifyUpload(ctx context.Context, data []byte, ext string, photo *phototag.Photo) string {
	path, cleanup, err := s.writeTemp(data, ext)
	if err != nil {
		slog.Warn("phototag: temp file for analysis", "error", err.Error())
		setDefaultClassification(photo)
		return tierDefault
	}
	defer cleanup()
	ctx = phototag.WithModelImageCache(ctx)

	if s.deps.Analyzer != nil {
		a := s.deps.Analyzer.Analyze(ctx, path, photo)
		if a.Status != phototag.StatusFallback {
			photo.ApplyAnalysis(a)
			return tierPipeline
		}
		slog.Warn("phototag: pipeline fell back, trying legacy classifier", "reasons", a.Reasons)
	}

	if s.deps.Legacy != nil {
		r, err := s.deps.Legacy.Classify(ctx, path)
		if err == nil {
			photo.Category = r.Category
			photo.Tags = append([]string{}, r.Tags...)
			return tierLegacy
		}
		slog.Warn("phototag: legacy classification failed; using defaults", "error", err.Error())
	}

	setDefaultClassification(photo)
	return tierDefault
}

func setDefaultClassification(photo *phototag.Photo) {
	photo.Category = "other"
	photo.Tags = []string{"unclassified"}
}

func (s *Server) readUpload(c *gin.Context) (string, []byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.deps.MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil, errNoFile
		}
		return "", nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, err
	}
	if len(data) == 0 {
		return "", nil, errNoFile
	}
	return fh.Filename, data, nil
}

func (s *Server) writeTemp(data []byte, ext string) (string, func(), error) {
	f, err := os.CreateTemp(s.deps.TempDir, "phototag-upload-*"+strings.ToLower(ext))
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.Remove(f.Name()) }
	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}

func uploadError(err error) string {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, errNoFile):
		return "No file uploaded"
	case errors.As(err, &maxErr):
		return "File too large"
	}
	return "Invalid upload"
}
