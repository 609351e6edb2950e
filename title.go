package phototag

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const untitled = "Untitled frame"

var (
	cameraNameRe = regexp.MustCompile(`(?i)^img[_\- ]?\d+`)
	hexRunRe     = regexp.MustCompile(`(?i)\b[0-9a-f]{4,}\b`)
	digitRunRe   = regexp.MustCompile(`\b\d{3,}\b`)
	separatorRe  = regexp.MustCompile(`[•|]`)
	spaceRunRe   = regexp.MustCompile(`\s+`)
)

// NeedsAutoTitle reports whether a title is a camera file name such as
// "IMG_4821" or too short to be meaningful.
func NeedsAutoTitle(title string) bool {
	return cameraNameRe.MatchString(title) || len([]rune(title)) < 3
}

// CleanTitle strips hashes, numeric ids and separators from a raw title.
// When too little is left it falls back to the first part of location,
// then to category.
func CleanTitle(raw, location, category string) string {
	first, _, _ := strings.Cut(raw, "•")
	if s := removeTitleNoise(first); len([]rune(s)) > 2 {
		return s
	}
	return titleFallback(location, category)
}

// AutoTitle returns a display title for an upload: raw itself when it is
// meaningful, otherwise a title derived from location or category.
func AutoTitle(raw, location, category string) string {
	if NeedsAutoTitle(raw) {
		return titleFallback(location, category)
	}
	return CleanTitle(raw, location, category)
}

func titleFallback(location, category string) string {
	city, _, _ := strings.Cut(location, ",")
	if s := removeTitleNoise(city); s != "" && !strings.EqualFold(s, "Unknown Location") {
		return s
	}
	if category != "" {
		return category
	}
	return untitled
}

func removeTitleNoise(s string) string {
	s = hexRunRe.ReplaceAllStringFunc(s, func(m string) string {
		// Plain words made of hex letters ("cafe", "faded") are not ids.
		if strings.ContainsAny(m, "0123456789") {
			return ""
		}
		return m
	})
	s = digitRunRe.ReplaceAllString(s, "")
	s = separatorRe.ReplaceAllString(s, " ")
	s = spaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// FormatDMS renders a coordinate pair as degrees, minutes and seconds:
// 45°14'42.5"N 81°31'23.6"W.
func FormatDMS(lat, lng float64) string {
	return toDMS(lat, "N", "S") + " " + toDMS(lng, "E", "W")
}

func toDMS(deg float64, pos, neg string) string {
	dir := pos
	if deg < 0 {
		dir = neg
	}
	abs := math.Abs(deg)
	d := math.Floor(abs)
	minutes := (abs - d) * 60
	m := math.Floor(minutes)
	sec := (minutes - m) * 60
	return fmt.Sprintf("%d°%d'%.1f\"%s", int(d), int(m), sec, dir)
}

// MapsURLFromGPS links to a map search for the coordinate.
func MapsURLFromGPS(lat, lng float64) string {
	return "https://www.google.com/maps/search/?api=1&query=" +
		strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}

// MapsURLFromLocation links to a map search for a place name.
func MapsURLFromLocation(location string) string {
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(location)
}
