package phototag

import (
	"math"
	"time"
)

// GPS is the position recorded in a photo's EXIF block.
type GPS struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
}

// Valid reports whether both coordinates are finite numbers.
func (g *GPS) Valid() bool {
	return g != nil && isFinite(g.Latitude) && isFinite(g.Longitude)
}

// EXIF holds the camera settings of a photo as display strings
// ("50mm", "f/1.8", "1/250s", "400"). An empty string means the field was absent.
type EXIF struct {
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	Lens         string `json:"lens,omitempty"`
	FocalLength  string `json:"focalLength,omitempty"`
	Aperture     string `json:"aperture,omitempty"`
	ExposureTime string `json:"exposureTime,omitempty"`
	ISO          string `json:"iso,omitempty"`
	Flash        string `json:"flash,omitempty"`
	GPS          *GPS   `json:"gps,omitempty"`
}

// Coordinates is the corrected (or EXIF-derived) map position of a photo.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Photo is the persisted portfolio record.
type Photo struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Category    string       `json:"category"`
	Series      string       `json:"series,omitempty"`
	Location    string       `json:"location"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Description string       `json:"description,omitempty"`
	Src         string       `json:"src"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Hash        string       `json:"hash,omitempty"` // perceptual dHash, see DuplicateIndex
	Tags        []string     `json:"tags"`
	UploadedAt  time.Time    `json:"uploadedAt"`
	TakenAt     time.Time    `json:"takenAt"`
	EXIF        EXIF         `json:"exif"`
	Metadata    *Metadata    `json:"metadata,omitempty"`
	Confidence  *Confidence  `json:"confidence,omitempty"`
}

// Position returns the photo's coordinates, preferring the corrected
// Coordinates over the raw EXIF GPS block.
func (p *Photo) Position() (lat, lng float64, ok bool) {
	if p == nil {
		return 0, 0, false
	}
	if c := p.Coordinates; c != nil && isFinite(c.Lat) && isFinite(c.Lng) {
		return c.Lat, c.Lng, true
	}
	if p.EXIF.GPS.Valid() {
		return p.EXIF.GPS.Latitude, p.EXIF.GPS.Longitude, true
	}
	return 0, 0, false
}

// ApplyAnalysis copies the pipeline result onto the record.
func (p *Photo) ApplyAnalysis(a Analysis) {
	p.Category = a.Category
	p.Tags = append([]string{}, a.Tags...)
	md := a.Metadata
	md.Composition.Techniques = append([]string{}, a.Metadata.Composition.Techniques...)
	p.Metadata = &md
	conf := a.Confidence
	p.Confidence = &conf
}

// DepthOfField is the depth-of-field style inferred from a depth map.
type DepthOfField string

const (
	DepthShallow DepthOfField = "shallow"
	DepthMedium  DepthOfField = "medium"
	DepthDeep    DepthOfField = "deep"
)

// Composition describes framing techniques and depth layering.
type Composition struct {
	Techniques   []string     `json:"techniques"`
	DepthOfField DepthOfField `json:"depthOfField"`
	HasLayering  bool         `json:"hasLayering"`
}

// Metadata is the AI-derived descriptive profile of a photo.
type Metadata struct {
	Lighting    string      `json:"lighting"`
	Mood        string      `json:"mood"`
	Composition Composition `json:"composition"`
}

// Confidence holds per-axis classifier scores in [0,1]. Missing scores are 0.
type Confidence struct {
	Category float64 `json:"category"`
	Lighting float64 `json:"lighting"`
	Mood     float64 `json:"mood"`
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
