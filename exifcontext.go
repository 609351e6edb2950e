package phototag

import (
	"regexp"
	"strconv"
	"strings"
)

// maxPrimaryExifTags bounds the EXIF contribution to the merged tag list.
const maxPrimaryExifTags = 5

// primaryExifKeywords select the EXIF tags worth surfacing, matched as substrings.
var primaryExifKeywords = []string{
	"golden-hour",
	"blue-hour",
	"bokeh",
	"shallow-dof",
	"deep-dof",
	"long-exposure",
	"low-light",
	"telephoto",
	"wide-angle",
	"studio-style",
}

var (
	numberRe     = regexp.MustCompile(`[\d.]+`)
	leadingIntRe = regexp.MustCompile(`^\s*[+-]?\d+`)
)

// InferShootingContext maps a photo's camera settings and capture time to
// photographic-style tags. Every rule runs independently and is skipped when
// its inputs are missing or unparseable, so a photo without EXIF yields no
// tags. The result may contain duplicates.
func InferShootingContext(p *Photo) []string {
	if p == nil {
		return nil
	}
	exif := p.EXIF
	tags := []string{}

	focal, hasFocal := parseFocalLength(exif.FocalLength)
	aperture, hasAperture := parseAperture(exif.Aperture)
	iso, hasISO := parseISO(exif.ISO)
	shutter, hasShutter := ParseShutterSpeed(exif.ExposureTime)

	if hasFocal {
		tags = append(tags, focalLengthTags(focal, aperture, hasAperture)...)
	}

	if hasAperture {
		switch {
		case aperture < 1.8:
			tags = append(tags, "ultra-wide-aperture", "extreme-bokeh")
		case aperture < 2.8:
			tags = append(tags, "wide-aperture", "shallow-dof")
		case aperture < 5.6:
			tags = append(tags, "moderate-aperture")
		case aperture < 11:
			tags = append(tags, "stopped-down")
		default:
			tags = append(tags, "deep-dof", "maximum-sharpness")
		}
	}

	if hasISO {
		switch {
		case iso < 200:
			tags = append(tags, "base-iso", "bright-conditions")
		case iso < 800:
			tags = append(tags, "moderate-iso", "controlled-light")
		case iso < 3200:
			tags = append(tags, "high-iso", "low-light")
		default:
			tags = append(tags, "very-high-iso", "extreme-low-light")
		}
	}

	if hasShutter {
		switch {
		case shutter < 1.0/1000:
			tags = append(tags, "ultra-fast-shutter", "frozen-action")
		case shutter < 1.0/250:
			tags = append(tags, "fast-shutter", "freeze-motion")
		case shutter < 1.0/60:
			tags = append(tags, "standard-shutter")
		case shutter < 1.0/15:
			tags = append(tags, "slow-shutter", "potential-motion-blur")
		case shutter < 1:
			tags = append(tags, "very-slow-shutter", "motion-blur")
		default:
			tags = append(tags, "long-exposure", "creative-blur")
		}
	}

	if exif.Flash != "" {
		f := strings.ToLower(exif.Flash)
		switch {
		case strings.Contains(f, "fired"):
			tags = append(tags, "flash-used")
			if hasISO && iso < 800 {
				tags = append(tags, "fill-flash")
			} else {
				tags = append(tags, "flash-main-light")
			}
		case strings.Contains(f, "no"):
			tags = append(tags, "natural-light")
		}
	}

	// Cross-signal patterns.
	if hasAperture && hasISO {
		if aperture < 2.8 && iso < 400 {
			tags = append(tags, "controlled-environment", "studio-style")
		}
		if aperture < 2.8 && iso > 1600 {
			tags = append(tags, "available-light", "low-light-performance")
		}
		if aperture > 8 && iso < 400 {
			tags = append(tags, "landscape-optimal", "maximum-detail")
		}
	}
	if hasFocal && hasShutter && focal > 200 && shutter < 1.0/500 {
		tags = append(tags, "action-photography", "fast-moving-subject")
	}

	if !p.TakenAt.IsZero() {
		tags = append(tags, timeOfDayTags(p.TakenAt.Hour())...)
	}

	if exif.Make != "" {
		tags = append(tags, cameraMakeTags(exif.Make)...)
	}

	return tags
}

func focalLengthTags(focal, aperture float64, hasAperture bool) []string {
	switch {
	case focal < 20:
		if hasAperture && aperture < 4 {
			return []string{"ultra-wide", "environmental", "immersive"}
		}
		return []string{"ultra-wide", "architectural-detail"}
	case focal < 35:
		if hasAperture && aperture > 8 {
			return []string{"wide-angle", "landscape-style"}
		}
		return []string{"wide-angle", "street-style"}
	case focal <= 85:
		if hasAperture && aperture < 2.8 {
			return []string{"standard-focal-length", "street-portrait", "environmental-portrait"}
		}
		return []string{"standard-focal-length", "documentary-style"}
	case focal <= 200:
		if hasAperture && aperture < 4 {
			return []string{"telephoto", "compression-effect", "subject-isolation"}
		}
		return []string{"telephoto", "distant-capture"}
	default:
		return []string{"super-telephoto", "wildlife-or-sports", "extreme-compression"}
	}
}

// timeOfDayTags buckets a local capture hour. 19 belongs to the golden-hour bucket.
func timeOfDayTags(hour int) []string {
	switch {
	case hour >= 5 && hour <= 7:
		return []string{"morning-golden-hour", "sunrise"}
	case hour >= 17 && hour <= 19:
		return []string{"evening-golden-hour", "sunset"}
	case hour >= 20 && hour <= 21:
		return []string{"blue-hour", "dusk"}
	case hour >= 22 || hour <= 4:
		return []string{"night-time", "after-dark"}
	case hour >= 11 && hour <= 15:
		return []string{"midday", "harsh-light"}
	default:
		return []string{"daytime"}
	}
}

func cameraMakeTags(make string) []string {
	m := strings.ToLower(make)
	switch {
	case strings.Contains(m, "apple") || strings.Contains(m, "iphone"):
		return []string{"mobile-photography", "smartphone"}
	case strings.Contains(m, "sony"):
		return []string{"mirrorless"}
	case strings.Contains(m, "canon") || strings.Contains(m, "nikon"):
		return []string{"dslr"}
	case strings.Contains(m, "fuji"):
		return []string{"mirrorless", "film-simulation-style"}
	case strings.Contains(m, "leica"):
		return []string{"rangefinder-style", "premium-optics"}
	}
	return nil
}

// PrimaryExifTags keeps the tags containing a priority keyword, at most 5.
// When none match, the first 5 tags are returned unfiltered.
func PrimaryExifTags(tags []string) []string {
	var primary []string
	for _, t := range tags {
		for _, kw := range primaryExifKeywords {
			if strings.Contains(t, kw) {
				primary = append(primary, t)
				break
			}
		}
	}
	if len(primary) == 0 {
		primary = tags
	}
	if len(primary) > maxPrimaryExifTags {
		primary = primary[:maxPrimaryExifTags]
	}
	return append([]string{}, primary...)
}

// parseFocalLength reads the first number of "50mm" / "50 mm" / "50.0".
func parseFocalLength(s string) (float64, bool) {
	return firstNumber(s)
}

// parseAperture reads "f/1.8", "F1.8" or "1.8".
func parseAperture(s string) (float64, bool) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "f/")
	return firstNumber(s)
}

// parseISO reads a leading integer ("400", "400 ISO").
func parseISO(s string) (int, bool) {
	m := leadingIntRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(m))
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseShutterSpeed converts "1/250s", "1/250", "0.5s" or "2" to seconds.
// Unparseable and non-positive values report false so the caller skips
// shutter-based rules instead of bucketing a zero.
func ParseShutterSpeed(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(raw, "s"), "S"))
	if raw == "" {
		return 0, false
	}

	var v float64
	if num, den, ok := strings.Cut(raw, "/"); ok {
		n, err1 := strconv.ParseFloat(strings.TrimSpace(num), 64)
		d, err2 := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, false
		}
		v = n / d
	} else {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, false
		}
		v = f
	}

	if !isFinite(v) || v <= 0 {
		return 0, false
	}
	return v, true
}

func firstNumber(s string) (float64, bool) {
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || !isFinite(f) {
		return 0, false
	}
	return f, true
}
