package phototag

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
)

// nearMatchRadius is the degree-space distance (~1km) for fallback matches.
const nearMatchRadius = 0.01

//go:embed data/gazetteer.json
var gazetteerJSON []byte

// PlaceType is the broad kind of a catalogued location.
type PlaceType string

// Place is one catalogued location.
type Place struct {
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	Name     string    `json:"name"`
	Tags     []string  `json:"tags"`
	Monument string    `json:"monument,omitempty"`
	Landmark string    `json:"landmark,omitempty"`
	Type     PlaceType `json:"type,omitempty"`
}

// Gazetteer is an immutable table of places, looked up by exact coordinate
// first and by proximity second. Entries keep their file order, which
// decides ties on near matches.
type Gazetteer struct {
	places []Place
	byKey  map[string]int
}

// regionRule adds region tags when a location name mentions any keyword.
type regionRule struct {
	keywords []string
	tags     []string
}

var regionRules = []regionRule{
	{[]string{"toronto", "ontario"}, []string{"toronto", "ontario", "canada"}},
	{[]string{"montreal", "quebec"}, []string{"montreal", "quebec", "canada"}},
	{[]string{"bruce", "grotto"}, []string{"bruce peninsula", "grotto", "national park", "ontario", "canada"}},
	{[]string{"niagara"}, []string{"niagara falls", "waterfall", "natural wonder", "ontario", "canada"}},
	{[]string{"india"}, []string{"india"}},
	{[]string{"gujarat", "ahmedabad", "bhuj"}, []string{"gujarat", "india"}},
	{[]string{"kerala", "munnar", "kollam"}, []string{"kerala", "india"}},
	{[]string{"goa"}, []string{"goa", "india"}},
}

// DefaultGazetteer returns the built-in table. It is parsed once.
var DefaultGazetteer = sync.OnceValue(func() *Gazetteer {
	g, err := ParseGazetteer(gazetteerJSON)
	if err != nil {
		panic(fmt.Sprintf("phototag: embedded gazetteer: %v", err))
	}
	return g
})

// NewGazetteer builds a gazetteer over places. The slice is copied.
func NewGazetteer(places []Place) *Gazetteer {
	g := &Gazetteer{
		places: append([]Place(nil), places...),
		byKey:  make(map[string]int, len(places)),
	}
	for i, p := range g.places {
		key := coordKey(p.Lat, p.Lng)
		if _, dup := g.byKey[key]; !dup {
			g.byKey[key] = i
		}
	}
	return g
}

// ParseGazetteer decodes a JSON array of places.
func ParseGazetteer(data []byte) (*Gazetteer, error) {
	var places []Place
	if err := json.Unmarshal(data, &places); err != nil {
		return nil, fmt.Errorf("parse gazetteer: %w", err)
	}
	return NewGazetteer(places), nil
}

// Len reports the number of catalogued places.
func (g *Gazetteer) Len() int {
	if g == nil {
		return 0
	}
	return len(g.places)
}

// Lookup returns the exact entry for (lat, lng), else the first entry in
// table order closer than ~1km.
func (g *Gazetteer) Lookup(lat, lng float64) (Place, bool) {
	if g == nil || !isFinite(lat) || !isFinite(lng) {
		return Place{}, false
	}
	if p, ok := g.exact(lat, lng); ok {
		return p, true
	}
	for _, p := range g.places {
		if math.Hypot(lat-p.Lat, lng-p.Lng) < nearMatchRadius {
			return p, true
		}
	}
	return Place{}, false
}

// Tags returns the place tags for a coordinate, or an empty list.
func (g *Gazetteer) Tags(lat, lng float64) []string {
	p, ok := g.Lookup(lat, lng)
	if !ok {
		return []string{}
	}
	return append([]string{}, p.Tags...)
}

// Monument returns the monument at exactly (lat, lng), if catalogued.
func (g *Gazetteer) Monument(lat, lng float64) string {
	p, _ := g.exact(lat, lng)
	return p.Monument
}

// Landmark returns the landmark at exactly (lat, lng), if catalogued.
func (g *Gazetteer) Landmark(lat, lng float64) string {
	p, _ := g.exact(lat, lng)
	return p.Landmark
}

// TagsForName maps a free-text location ("Old Quebec, Canada") to tags.
// An exact name match wins outright; otherwise tags from every partially
// matching entry are combined with the region keyword rules.
func (g *Gazetteer) TagsForName(name string) []string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return []string{}
	}

	if g != nil {
		for _, p := range g.places {
			if strings.ToLower(p.Name) == lower {
				return append([]string{}, p.Tags...)
			}
		}
	}

	var tags []string
	if g != nil {
		for _, p := range g.places {
			pn := strings.ToLower(p.Name)
			if strings.Contains(lower, pn) || strings.Contains(pn, lower) {
				tags = append(tags, p.Tags...)
			}
		}
	}

	for _, r := range regionRules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				tags = append(tags, r.tags...)
				break
			}
		}
	}

	return dedupeTags(tags)
}

func (g *Gazetteer) exact(lat, lng float64) (Place, bool) {
	if g == nil {
		return Place{}, false
	}
	i, ok := g.byKey[coordKey(lat, lng)]
	if !ok {
		return Place{}, false
	}
	return g.places[i], true
}

func coordKey(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}
