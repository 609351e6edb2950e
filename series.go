package phototag

import "strings"

// SeriesInfo names a trip series and the keywords that place a photo in it.
type SeriesInfo struct {
	Slug     string   `json:"slug"`
	Label    string   `json:"label"`
	Keywords []string `json:"-"`
}

// KnownSeries is checked in order; the first keyword hit wins.
var KnownSeries = []SeriesInfo{
	{Slug: "niagara", Label: "Niagara Falls", Keywords: []string{"niagara"}},
	{Slug: "bruce", Label: "Bruce Peninsula", Keywords: []string{"bruce", "grotto", "tobermory"}},
	{Slug: "montreal", Label: "Montreal", Keywords: []string{"montreal", "mtl"}},
	{Slug: "toronto", Label: "Toronto", Keywords: []string{"toronto", "etobicoke", "ontario place"}},
	{Slug: "goa", Label: "Goa", Keywords: []string{"goa"}},
	{Slug: "kerala", Label: "Kerala", Keywords: []string{"kerala", "munnar", "vagamon"}},
	{Slug: "bhuj", Label: "Bhuj", Keywords: []string{"bhuj", "kachchh", "kutch"}},
	{Slug: "quebec", Label: "Quebec", Keywords: []string{"quebec", "qc", "old quebec", "quebec city"}},
	{Slug: "etobicoke", Label: "Etobicoke", Keywords: []string{"etobicoke"}},
}

// InferSeries matches the photo's series, location and tags against
// KnownSeries. Without a hit the stored series is returned as is.
func InferSeries(p *Photo) string {
	if p == nil {
		return ""
	}
	haystack := strings.ToLower(p.Series + " " + p.Location + " " + strings.Join(p.Tags, " "))
	for _, s := range KnownSeries {
		for _, kw := range s.Keywords {
			if strings.Contains(haystack, kw) {
				return s.Slug
			}
		}
	}
	return p.Series
}

// SeriesLabel returns the display label of slug, or slug itself.
func SeriesLabel(slug string) string {
	for _, s := range KnownSeries {
		if s.Slug == slug {
			return s.Label
		}
	}
	return slug
}

// SeriesOptions lists "all" followed by every series present in photos,
// lowercased, in first-seen order.
func SeriesOptions(photos []Photo) []string {
	opts := []string{"all"}
	seen := map[string]bool{"all": true}
	for i := range photos {
		s := strings.ToLower(InferSeries(&photos[i]))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		opts = append(opts, s)
	}
	return opts
}
