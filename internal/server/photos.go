package server

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/anatolykoptev/go-phototag"
	"github.com/anatolykoptev/go-phototag/internal/geocode"
	"github.com/anatolykoptev/go-phototag/internal/store"
)

const unknownLocation = "Unknown Location"

// photoView adds derived display fields to a stored record.
type photoView struct {
	phototag.Photo
	DisplayTitle string `json:"displayTitle"`
	SeriesLabel  string `json:"seriesLabel,omitempty"`
	DMS          string `json:"dms,omitempty"`
	MapsURL      string `json:"mapsUrl,omitempty"`
}

func newPhotoView(p phototag.Photo) photoView {
	v := photoView{
		Photo:        p,
		DisplayTitle: phototag.CleanTitle(p.Title, p.Location, p.Category),
	}
	if series := phototag.InferSeries(&p); series != "" {
		v.SeriesLabel = phototag.SeriesLabel(series)
	}
	if lat, lng, ok := p.Position(); ok {
		v.DMS = phototag.FormatDMS(lat, lng)
		v.MapsURL = phototag.MapsURLFromGPS(lat, lng)
	} else if p.Location != "" && p.Location != unknownLocation {
		v.MapsURL = phototag.MapsURLFromLocation(p.Location)
	}
	return v
}

func (s *Server) listPhotos(c *gin.Context) {
	photos, err := s.deps.Photos.List()
	if err != nil {
		slog.Error("phototag: list photos", "error", err.Error())
		errorJSON(c, http.StatusInternalServerError, "Failed to load photos")
		return
	}

	series := strings.ToLower(c.Query("series"))
	category := strings.ToLower(c.Query("category"))
	tag := strings.ToLower(c.Query("tag"))

	views := make([]photoView, 0, len(photos))
	for _, p := range photos {
		if series != "" && series != "all" && strings.ToLower(phototag.InferSeries(&p)) != series {
			continue
		}
		if category != "" && strings.ToLower(p.Category) != category {
			continue
		}
		if tag != "" && !hasTag(p.Tags, tag) {
			continue
		}
		views = append(views, newPhotoView(p))
	}
	c.JSON(http.StatusOK, gin.H{"photos": views})
}

func (s *Server) getPhoto(c *gin.Context) {
	p, err := s.deps.Photos.Get(c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "Photo not found")
		return
	}
	if err != nil {
		slog.Error("phototag: get photo", "id", c.Param("id"), "error", err.Error())
		errorJSON(c, http.StatusInternalServerError, "Failed to load photo")
		return
	}
	c.JSON(http.StatusOK, gin.H{"photo": newPhotoView(p)})
}

func (s *Server) listSeries(c *gin.Context) {
	photos, err := s.deps.Photos.List()
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "Failed to load photos")
		return
	}
	type option struct {
		Slug  string `json:"slug"`
		Label string `json:"label"`
	}
	var opts []option
	for _, slug := range phototag.SeriesOptions(photos) {
		label := phototag.SeriesLabel(slug)
		if slug == "all" {
			label = "All"
		}
		opts = append(opts, option{Slug: slug, Label: label})
	}
	c.JSON(http.StatusOK, gin.H{"series": opts})
}

type patchRequest struct {
	Coordinates *struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	} `json:"coordinates"`
	Location *string `json:"location"`
}

// patchPhoto corrects a photo's position. When no location name is given
// (or it is the placeholder) the name is resolved from the coordinates.
func (s *Server) patchPhoto(c *gin.Context) {
	id := c.Param("id")
	current, err := s.deps.Photos.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "Photo not found")
		return
	}
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "Failed to load photo")
		return
	}

	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Coordinates == nil || req.Coordinates.Lat == nil || req.Coordinates.Lng == nil ||
		!validCoordinate(*req.Coordinates.Lat, *req.Coordinates.Lng) {
		errorJSON(c, http.StatusBadRequest, "Body must include coordinates: { lat: number, lng: number }")
		return
	}
	lat, lng := *req.Coordinates.Lat, *req.Coordinates.Lng

	location := current.Location
	if req.Location != nil {
		location = *req.Location
	}
	if req.Location == nil || *req.Location == unknownLocation {
		location = s.locate(c, lat, lng)
	}

	updated, err := s.deps.Photos.Update(id, func(p *phototag.Photo) error {
		p.Coordinates = &phototag.Coordinates{Lat: lat, Lng: lng}
		p.Location = location
		gps := &phototag.GPS{Latitude: lat, Longitude: lng}
		if p.EXIF.GPS != nil {
			gps.Altitude = p.EXIF.GPS.Altitude
		}
		p.EXIF.GPS = gps
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "Photo not found")
		return
	}
	if err != nil {
		slog.Error("phototag: update photo", "id", id, "error", err.Error())
		errorJSON(c, http.StatusInternalServerError, "Failed to save photo")
		return
	}
	c.JSON(http.StatusOK, gin.H{"photo": newPhotoView(updated)})
}

func (s *Server) deletePhoto(c *gin.Context) {
	id := c.Param("id")
	removed, err := s.deps.Photos.Delete(id)
	if errors.Is(err, store.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "Photo not found")
		return
	}
	if err != nil {
		slog.Error("phototag: delete photo", "id", id, "error", err.Error())
		errorJSON(c, http.StatusInternalServerError, "Failed to delete photo")
		return
	}

	if err := s.deps.Assets.Delete(c.Request.Context(), removed.Src); err != nil {
		slog.Warn("phototag: delete image file", "id", id, "src", removed.Src, "error", err.Error())
	}
	s.deps.Dedup.Remove(id)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) locate(c *gin.Context, lat, lng float64) string {
	if s.deps.Geocoder == nil {
		return geocode.CoordinateLabel(lat, lng)
	}
	return s.deps.Geocoder.Locate(c.Request.Context(), lat, lng)
}

func validCoordinate(lat, lng float64) bool {
	return !math.IsNaN(lat) && !math.IsNaN(lng) && !math.IsInf(lat, 0) && !math.IsInf(lng, 0) &&
		lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.ToLower(t) == want {
			return true
		}
	}
	return false
}
