package phototag

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bep/imagemeta"
)

// exifDateLayout is the EXIF DateTimeOriginal format. It carries no zone;
// the camera's wall clock is kept by parsing it as UTC.
const exifDateLayout = "2006:01:02 15:04:05"

// wantedEXIFTags lists every EXIF tag ExtractEXIF reads.
var wantedEXIFTags = map[string]bool{
	"Make":             true,
	"Model":            true,
	"LensModel":        true,
	"FocalLength":      true,
	"FNumber":          true,
	"ExposureTime":     true,
	"ISO":              true,
	"ISOSpeedRatings":  true,
	"Flash":            true,
	"DateTimeOriginal": true,
	"GPSLatitude":      true,
	"GPSLatitudeRef":   true,
	"GPSLongitude":     true,
	"GPSLongitudeRef":  true,
	"GPSAltitude":      true,
	"GPSAltitudeRef":   true,
}

// exifFormats maps the MIME types ProbeImage reports to the containers
// imagemeta can read EXIF from.
var exifFormats = map[string]imagemeta.ImageFormat{
	"image/jpeg": imagemeta.JPEG,
	"image/png":  imagemeta.PNG,
	"image/webp": imagemeta.WebP,
}

// ExtractEXIF parses camera settings, GPS and capture time from raw image
// bytes of the given MIME type (as reported by ProbeImage). Returns
// (nil, zero time) if the format carries no EXIF container, the data cannot
// be parsed or it holds none of the wanted tags.
// Graceful degradation: never returns an error.
func ExtractEXIF(data []byte, mimeType string) (*EXIF, time.Time) {
	format, ok := exifFormats[mimeType]
	if len(data) == 0 || !ok {
		return nil, time.Time{}
	}

	raw := make(map[string]any)
	_, err := imagemeta.Decode(imagemeta.Options{
		R:           bytes.NewReader(data),
		ImageFormat: format,
		Sources:     imagemeta.EXIF,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return ti.Source == imagemeta.EXIF && wantedEXIFTags[ti.Tag]
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			raw[ti.Tag] = ti.Value
			return nil
		},
	})
	if err != nil || len(raw) == 0 {
		return nil, time.Time{}
	}

	exif := &EXIF{
		Make:  tagValueString(raw["Make"]),
		Model: tagValueString(raw["Model"]),
		Lens:  tagValueString(raw["LensModel"]),
	}
	if f, ok := tagValueFloat(raw["FocalLength"]); ok && f > 0 {
		exif.FocalLength = formatNumber(f) + "mm"
	}
	if f, ok := tagValueFloat(raw["FNumber"]); ok && f > 0 {
		exif.Aperture = "f/" + formatNumber(f)
	}
	if f, ok := tagValueFloat(raw["ExposureTime"]); ok && f > 0 {
		exif.ExposureTime = FormatExposure(f)
	}
	iso, ok := tagValueFloat(raw["ISO"])
	if !ok {
		iso, ok = tagValueFloat(raw["ISOSpeedRatings"])
	}
	if ok && iso > 0 {
		exif.ISO = strconv.Itoa(int(math.Round(iso)))
	}
	exif.Flash = flashDescription(raw["Flash"])
	exif.GPS = gpsFromTags(raw)

	return exif, captureTime(raw["DateTimeOriginal"])
}

// FormatExposure renders an exposure time in seconds as "1/250s" for fast
// shutters and "2s" / "0.5s" otherwise.
func FormatExposure(seconds float64) string {
	if seconds <= 0 || !isFinite(seconds) {
		return ""
	}
	if seconds < 0.5 {
		return fmt.Sprintf("1/%ds", int(math.Round(1/seconds)))
	}
	return formatNumber(seconds) + "s"
}

// flashDescription maps the EXIF Flash bitfield (bit 0 = fired) to the
// wording EXIF viewers use.
func flashDescription(v any) string {
	if s := tagValueString(v); s != "" {
		return s
	}
	f, ok := tagValueFloat(v)
	if !ok {
		return ""
	}
	if int(f)&1 == 1 {
		return "Flash fired"
	}
	return "No flash"
}

func gpsFromTags(raw map[string]any) *GPS {
	lat, okLat := gpsCoordinate(raw["GPSLatitude"])
	lng, okLng := gpsCoordinate(raw["GPSLongitude"])
	if !okLat || !okLng {
		return nil
	}
	if strings.EqualFold(tagValueString(raw["GPSLatitudeRef"]), "S") {
		lat = -lat
	}
	if strings.EqualFold(tagValueString(raw["GPSLongitudeRef"]), "W") {
		lng = -lng
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 || (lat == 0 && lng == 0) {
		return nil
	}

	g := &GPS{Latitude: lat, Longitude: lng}
	if alt, ok := tagValueFloat(raw["GPSAltitude"]); ok {
		if ref, _ := tagValueFloat(raw["GPSAltitudeRef"]); ref == 1 {
			alt = -alt
		}
		g.Altitude = &alt
	}
	return g
}

// gpsCoordinate accepts decimal degrees or a degrees/minutes/seconds triplet.
func gpsCoordinate(v any) (float64, bool) {
	var parts []any
	switch val := v.(type) {
	case []any:
		parts = val
	case []float64:
		for _, f := range val {
			parts = append(parts, f)
		}
	default:
		return tagValueFloat(v)
	}
	if len(parts) == 0 {
		return 0, false
	}

	var deg float64
	div := 1.0
	for i, p := range parts {
		if i > 2 {
			break
		}
		f, ok := tagValueFloat(p)
		if !ok {
			return 0, false
		}
		deg += f / div
		div *= 60
	}
	return deg, isFinite(deg)
}

func captureTime(v any) time.Time {
	switch val := v.(type) {
	case time.Time:
		return time.Date(val.Year(), val.Month(), val.Day(), val.Hour(), val.Minute(), val.Second(), 0, time.UTC)
	case string:
		t, err := time.Parse(exifDateLayout, strings.TrimSpace(strings.TrimRight(val, "\x00")))
		if err != nil {
			return time.Time{}
		}
		return t
	}
	return time.Time{}
}

// tagValueString extracts a trimmed string from a tag value.
func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(strings.TrimRight(val, "\x00"))
	case []string:
		if len(val) > 0 {
			return strings.TrimSpace(val[0])
		}
		return ""
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return strings.TrimSpace(s)
			}
		}
		return ""
	default:
		return ""
	}
}

// tagValueFloat extracts a number from a tag value. Rationals may arrive as
// a type with Float64, as a "num/den" string or as a one-element slice.
func tagValueFloat(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case int32:
		f = float64(val)
	case uint16:
		f = float64(val)
	case uint32:
		f = float64(val)
	case uint8:
		f = float64(val)
	case interface{ Float64() float64 }:
		f = val.Float64()
	case string:
		s := strings.TrimSpace(val)
		if num, den, ok := strings.Cut(s, "/"); ok {
			n, err1 := strconv.ParseFloat(num, 64)
			d, err2 := strconv.ParseFloat(den, 64)
			if err1 != nil || err2 != nil || d == 0 {
				return 0, false
			}
			f = n / d
		} else {
			p, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, false
			}
			f = p
		}
	case []any:
		if len(val) != 1 {
			return 0, false
		}
		return tagValueFloat(val[0])
	case []uint16:
		if len(val) == 0 {
			return 0, false
		}
		f = float64(val[0])
	default:
		return 0, false
	}
	return f, isFinite(f)
}

// formatNumber prints f without trailing zeros ("50", "1.8").
func formatNumber(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}
