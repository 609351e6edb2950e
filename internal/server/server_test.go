package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/anatolykoptev/go-phototag"
	"github.com/anatolykoptev/go-phototag/internal/assets"
	"github.com/anatolykoptev/go-phototag/internal/retag"
	"github.com/anatolykoptev/go-phototag/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAnalyzer struct {
	result phototag.Analysis
}

func (f *fakeAnalyzer) Analyze(_ context.Context, imagePath string, _ *phototag.Photo) phototag.Analysis {
	if _, err := os.Stat(imagePath); err != nil {
		return phototag.FallbackAnalysis()
	}
	return f.result
}

type fakeLegacy struct {
	result phototag.LegacyResult
	err    error
}

func (f *fakeLegacy) Classify(context.Context, string) (phototag.LegacyResult, error) {
	return f.result, f.err
}

type fakeLocator struct {
	mu    sync.Mutex
	calls int
	name  string
}

func (f *fakeLocator) Locate(context.Context, float64, float64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.name
}

func okAnalysis() phototag.Analysis {
	return phototag.Analysis{
		Category: "nature",
		Tags:     []string{"nature", "golden-hour", "serene", "deep-dof"},
		Metadata: phototag.Metadata{
			Lighting: "golden-hour",
			Mood:     "serene",
			Composition: phototag.Composition{
				Techniques:   []string{},
				DepthOfField: phototag.DepthDeep,
			},
		},
		Confidence: phototag.Confidence{Category: 0.9, Lighting: 0.8, Mood: 0.7},
		Status:     phototag.StatusOK,
	}
}

type testEnv struct {
	srv     *Server
	router  *gin.Engine
	photos  *store.Store
	dir     string
	locator *fakeLocator
}

func newTestEnv(t *testing.T, analyzer Analyzer, legacy LegacyClassifier) *testEnv {
	t.Helper()
	root := t.TempDir()
	photos, err := store.Open(filepath.Join(root, "data", "photos.json"))
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(root, "photos")
	files, err := assets.NewDiskStore(dir, "/photos")
	if err != nil {
		t.Fatal(err)
	}
	locator := &fakeLocator{name: "Toronto, Canada"}
	srv := New(Deps{
		Photos:   photos,
		Assets:   files,
		Analyzer: analyzer,
		Legacy:   legacy,
		Geocoder: locator,
		Metrics:  NewMetrics(),
		Retag: &retag.Job{
			Analyzer: analyzer,
			Photos:   photos,
			Files:    files,
		},
		Models:  func() map[string]bool { return map[string]bool{"scene": true} },
		TempDir: root,
	})
	return &testEnv{srv: srv, router: srv.Router(), photos: photos, dir: dir, locator: locator}
}

func makeJPEG(w, h int, shade uint8) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x*255/w) ^ shade, G: uint8(y*255/h) ^ shade, B: shade, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if field != "" {
		fw, err := w.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatal(err)
		}
	} else if err := w.WriteField("note", "no file here"); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, w.FormDataContentType()
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) upload(t *testing.T, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, "file", filename, data)
	return e.do(t, http.MethodPost, "/api/upload", body, ct)
}

type uploadResponse struct {
	Success     bool   `json:"success"`
	DuplicateOf string `json:"duplicateOf"`
	Error       string `json:"error"`
	Photo       struct {
		phototag.Photo
		DisplayTitle string `json:"displayTitle"`
	} `json:"photo"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func TestUpload_Tiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		analyzer     Analyzer
		legacy       LegacyClassifier
		wantCategory string
		wantTags     []string
		wantTier     string
	}{
		{
			name:         "pipeline",
			analyzer:     &fakeAnalyzer{result: okAnalysis()},
			legacy:       &fakeLegacy{err: errors.New("unused")},
			wantCategory: "nature",
			wantTags:     []string{"nature", "golden-hour", "serene", "deep-dof"},
			wantTier:     tierPipeline,
		},
		{
			name:         "legacy after fallback",
			analyzer:     &fakeAnalyzer{result: phototag.FallbackAnalysis()},
			legacy:       &fakeLegacy{result: phototag.LegacyResult{Category: "wildlife", Tags: []string{"dog", "grass"}}},
			wantCategory: "wildlife",
			wantTags:     []string{"dog", "grass"},
			wantTier:     tierLegacy,
		},
		{
			name:         "default when everything fails",
			analyzer:     &fakeAnalyzer{result: phototag.FallbackAnalysis()},
			legacy:       &fakeLegacy{err: errors.New("model down")},
			wantCategory: "other",
			wantTags:     []string{"unclassified"},
			wantTier:     tierDefault,
		},
		{
			name:         "no classifiers",
			wantCategory: "other",
			wantTags:     []string{"unclassified"},
			wantTier:     tierDefault,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, tc.analyzer, tc.legacy)

			rec := env.upload(t, "Sunset walk.jpg", makeJPEG(64, 48, 0))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			resp := decode[uploadResponse](t, rec)
			if !resp.Success {
				t.Fatalf("success = false: %s", rec.Body.String())
			}
			p := resp.Photo
			if p.Category != tc.wantCategory || strings.Join(p.Tags, ",") != strings.Join(tc.wantTags, ",") {
				t.Errorf("category/tags = %q/%v, want %q/%v", p.Category, p.Tags, tc.wantCategory, tc.wantTags)
			}
			if p.Title != "Sunset walk" || p.Location != unknownLocation || p.Width != 64 || p.Height != 48 {
				t.Errorf("photo = %+v", p.Photo)
			}
			if !strings.HasPrefix(p.Src, "/photos/") || p.Hash == "" {
				t.Errorf("src/hash = %q/%q", p.Src, p.Hash)
			}
			if _, err := os.Stat(filepath.Join(env.dir, strings.TrimPrefix(p.Src, "/photos/"))); err != nil {
				t.Errorf("stored file: %v", err)
			}

			stored, err := env.photos.Get(p.ID)
			if err != nil {
				t.Fatalf("stored photo: %v", err)
			}
			if stored.Category != tc.wantCategory {
				t.Errorf("stored category = %q", stored.Category)
			}

			metrics := env.do(t, http.MethodGet, "/metrics", nil, "")
			if !strings.Contains(metrics.Body.String(), `phototag_uploads_total{tier="`+tc.wantTier+`"} 1`) {
				t.Errorf("metrics missing upload tier %q", tc.wantTier)
			}
		})
	}
}

type fixedScene struct{}

func (fixedScene) Classify(context.Context, string) (phototag.Scene, error) {
	return phototag.Scene{
		Category:   "nature",
		Lighting:   "natural",
		Mood:       "serene",
		Confidence: map[string]float64{"category": 0.8},
	}, nil
}

type fixedDepth struct{}

func (fixedDepth) Profile(context.Context, string) (phototag.DepthProfile, error) {
	return phototag.DepthProfile{DepthOfField: phototag.DepthDeep}, nil
}

func TestUpload_CameraEXIF(t *testing.T) {
	t.Parallel()

	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "exif_gps.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	analyzer := phototag.NewAnalyzer(phototag.Config{
		Scene: fixedScene{},
		Depth: fixedDepth{},
		Gazetteer: phototag.NewGazetteer([]phototag.Place{
			{Lat: 26.5825, Lng: -80.02, Name: "Boynton Inlet", Tags: []string{"boynton inlet", "florida"}},
		}),
	})
	env := newTestEnv(t, analyzer, nil)

	rec := env.upload(t, "inlet.jpg", data)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	p := decode[uploadResponse](t, rec).Photo

	if p.EXIF.FocalLength != "4.2mm" || p.EXIF.Aperture != "f/1.7" {
		t.Errorf("exif = %+v", p.EXIF)
	}
	if p.Coordinates == nil || p.Coordinates.Lat < 26.58 || p.Coordinates.Lat > 26.59 {
		t.Errorf("coordinates = %+v", p.Coordinates)
	}
	if p.Location != "Toronto, Canada" || env.locator.calls != 1 {
		t.Errorf("location = %q after %d geocoder calls", p.Location, env.locator.calls)
	}
	if want := time.Date(2017, 5, 29, 11, 11, 16, 0, time.UTC); !p.TakenAt.Equal(want) {
		t.Errorf("takenAt = %v, want %v", p.TakenAt, want)
	}

	tags := strings.Join(p.Tags, ",")
	for _, want := range []string{"nature", "deep-dof", "extreme-bokeh", "studio-style", "boynton inlet", "florida"} {
		if !hasTag(p.Tags, want) {
			t.Errorf("tags %s missing %q", tags, want)
		}
	}
}

func TestUpload_AutoTitle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeAnalyzer{result: okAnalysis()}, nil)
	resp := decode[uploadResponse](t, env.upload(t, "IMG_4821.jpg", makeJPEG(32, 32, 0)))
	// No GPS, so the title falls back to the category.
	if resp.Photo.Title != "nature" {
		t.Errorf("Title = %q, want nature", resp.Photo.Title)
	}
	if env.locator.calls != 0 {
		t.Errorf("geocoder called %d times for a photo without GPS", env.locator.calls)
	}
}

func TestUpload_Duplicate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeAnalyzer{result: okAnalysis()}, nil)
	img := makeJPEG(64, 64, 0)

	first := decode[uploadResponse](t, env.upload(t, "a.jpg", img))
	if first.DuplicateOf != "" {
		t.Errorf("first upload flagged as duplicate of %q", first.DuplicateOf)
	}
	second := decode[uploadResponse](t, env.upload(t, "b.jpg", img))
	if second.DuplicateOf != first.Photo.ID {
		t.Errorf("DuplicateOf = %q, want %q", second.DuplicateOf, first.Photo.ID)
	}
	if second.Photo.ID == first.Photo.ID {
		t.Error("duplicate upload reused the id")
	}
}

func TestUpload_BadRequests(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeAnalyzer{result: okAnalysis()}, nil)

	body, ct := multipartBody(t, "", "", nil)
	if rec := env.do(t, http.MethodPost, "/api/upload", body, ct); rec.Code != http.StatusBadRequest {
		t.Errorf("missing file: status = %d", rec.Code)
	}
	if rec := env.upload(t, "notes.txt", []byte("just some text")); rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("text file: status = %d", rec.Code)
	}
	if rec := env.upload(t, "empty.jpg", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("empty file: status = %d", rec.Code)
	}

	photos, _ := env.photos.List()
	if len(photos) != 0 {
		t.Errorf("rejected uploads were stored: %d", len(photos))
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeAnalyzer{result: okAnalysis()}, nil)
	body, ct := multipartBody(t, "file", "probe.jpg", makeJPEG(32, 32, 0))
	rec := env.do(t, http.MethodPost, "/api/analyze", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Category   string              `json:"category"`
		Tags       []string            `json:"tags"`
		Confidence phototag.Confidence `json:"confidence"`
		Tier       string              `json:"tier"`
	}](t, rec)
	if resp.Category != "nature" || resp.Tier != tierPipeline || resp.Confidence.Category != 0.9 {
		t.Errorf("analyze = %+v", resp)
	}
	if photos, _ := env.photos.List(); len(photos) != 0 {
		t.Error("analyze must not store the photo")
	}
}

func seedPhoto(t *testing.T, env *testEnv, p phototag.Photo) {
	t.Helper()
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if err := env.photos.Upsert(p); err != nil {
		t.Fatal(err)
	}
}

func TestPatchPhoto(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeAnalyzer{result: okAnalysis()}, nil)
	alt := 120.0
	seedPhoto(t, env, phototag.Photo{
		ID: "p1", Title: "Harbour", Location: unknownLocation,
		EXIF: phototag.EXIF{GPS: &phototag.GPS{Latitude: 1, Longitude: 1, Altitude: &alt}},
	})

	tests := []struct {
		name         string
		body         string
		wantStatus   int
		wantLocation string
	}{
		{"geocoded", `{"coordinates": {"lat": 43.6426, "lng": -79.3871}}`, http.StatusOK, "Toronto, Canada"},
		{"placeholder geocoded", `{"coordinates": {"lat": 43.6426, "lng": -79.3871}, "location": "Unknown Location"}`, http.StatusOK, "Toronto, Canada"},
		{"explicit location", `{"coordinates": {"lat": 43.6426, "lng": -79.3871}, "location": "Harbourfront"}`, http.StatusOK, "Harbourfront"},
		{"missing coordinates", `{"location": "Somewhere"}`, http.StatusBadRequest, ""},
		{"latitude out of range", `{"coordinates": {"lat": 91, "lng": 0}}`, http.StatusBadRequest, ""},
		{"not json", `coordinates`, http.StatusBadRequest, ""},
	}

	for _, tc := range tests {
		rec := env.do(t, http.MethodPatch, "/api/photos/p1", strings.NewReader(tc.body), "application/json")
		if rec.Code != tc.wantStatus {
			t.Errorf("%s: status = %d, want %d: %s", tc.name, rec.Code, tc.wantStatus, rec.Body.String())
			continue
		}
		if tc.wantStatus != http.StatusOK {
			continue
		}
		resp := decode[uploadResponse](t, rec)
		p := resp.Photo
		if p.Location != tc.wantLocation {
			t.Errorf("%s: location = %q, want %q", tc.name, p.Location, tc.wantLocation)
		}
		if p.Coordinates == nil || p.Coordinates.Lat != 43.6426 || p.EXIF.GPS == nil || p.EXIF.GPS.Longitude != -79.3871 {
			t.Errorf("%s: position not updated: %+v", tc.name, p.Photo)
		}
		if p.EXIF.GPS.Altitude == nil || *p.EXIF.GPS.Altitude != alt {
			t.Errorf("%s: altitude lost", tc.name)
		}
	}

	if rec := env.do(t, http.MethodPatch, "/api/photos/nope", strings.NewReader(`{"coordinates": {"lat": 1, "lng": 1}}`), "application/json"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown id: status = %d", rec.Code)
	}
}

func TestDeletePhoto(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeAnalyzer{result: okAnalysis()}, nil)
	resp := decode[uploadResponse](t, env.upload(t, "delete-me.jpg", makeJPEG(32, 32, 0)))
	file := filepath.Join(env.dir, strings.TrimPrefix(resp.Photo.Src, "/photos/"))

	if rec := env.do(t, http.MethodDelete, "/api/photos/"+resp.Photo.ID, nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Errorf("image file still exists: %v", err)
	}
	if rec := env.do(t, http.MethodGet, "/api/photos/"+resp.Photo.ID, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/photos/"+resp.Photo.ID, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", rec.Code)
	}

	// The duplicate index forgot the photo.
	again := decode[uploadResponse](t, env.upload(t, "again.jpg", makeJPEG(32, 32, 0)))
	if again.DuplicateOf != "" {
		t.Errorf("deleted photo still matched as duplicate: %q", again.DuplicateOf)
	}
}

func TestListPhotosAndSeries(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeAnalyzer{result: okAnalysis()}, nil)
	seedPhoto(t, env, phototag.Photo{ID: "n1", Title: "Falls", Category: "nature", Location: "Niagara Falls, Canada", Tags: []string{"waterfall"}})
	seedPhoto(t, env, phototag.Photo{ID: "s1", Title: "Market", Category: "street", Location: "Bhuj, India", Tags: []string{"Market"}})
	seedPhoto(t, env, phototag.Photo{ID: "g1", Title: "IMG_0042", Category: "nature", Location: "Unknown Location",
		Coordinates: &phototag.Coordinates{Lat: 45.5, Lng: -73.5}})

	type listResponse struct {
		Photos []struct {
			ID           string `json:"id"`
			DisplayTitle string `json:"displayTitle"`
			SeriesLabel  string `json:"seriesLabel"`
			DMS          string `json:"dms"`
			MapsURL      string `json:"mapsUrl"`
		} `json:"photos"`
	}
	ids := func(r listResponse) string {
		var out []string
		for _, p := range r.Photos {
			out = append(out, p.ID)
		}
		return strings.Join(out, ",")
	}

	tests := []struct {
		query string
		want  string
	}{
		{"", "g1,s1,n1"},
		{"?category=NATURE", "g1,n1"},
		{"?tag=market", "s1"},
		{"?series=niagara", "n1"},
		{"?series=all", "g1,s1,n1"},
		{"?series=bhuj&category=street", "s1"},
		{"?tag=missing", ""},
	}
	for _, tc := range tests {
		rec := env.do(t, http.MethodGet, "/api/photos"+tc.query, nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%q: status = %d", tc.query, rec.Code)
		}
		if got := ids(decode[listResponse](t, rec)); got != tc.want {
			t.Errorf("GET /api/photos%s = %q, want %q", tc.query, got, tc.want)
		}
	}

	all := decode[listResponse](t, env.do(t, http.MethodGet, "/api/photos", nil, ""))
	for _, p := range all.Photos {
		switch p.ID {
		case "g1":
			if p.DisplayTitle == "" {
				t.Error("g1 display title empty")
			}
			if p.DMS == "" || !strings.Contains(p.MapsURL, "45.5,-73.5") {
				t.Errorf("g1 dms/maps = %q/%q", p.DMS, p.MapsURL)
			}
		case "n1":
			if p.SeriesLabel != "Niagara Falls" || !strings.Contains(p.MapsURL, "Niagara+Falls") {
				t.Errorf("n1 series/maps = %q/%q", p.SeriesLabel, p.MapsURL)
			}
		}
	}

	series := decode[struct {
		Series []struct {
			Slug  string `json:"slug"`
			Label string `json:"label"`
		} `json:"series"`
	}](t, env.do(t, http.MethodGet, "/api/series", nil, ""))
	var slugs []string
	for _, s := range series.Series {
		slugs = append(slugs, s.Slug+"="+s.Label)
	}
	if got, want := strings.Join(slugs, ","), "all=All,bhuj=Bhuj,niagara=Niagara Falls"; got != want {
		t.Errorf("series = %q, want %q", got, want)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeAnalyzer{result: okAnalysis()}, nil)
	rec := env.do(t, http.MethodGet, "/api/health", nil, "")
	resp := decode[struct {
		Status string          `json:"status"`
		Models map[string]bool `json:"models"`
	}](t, rec)
	if resp.Status != "ok" || !resp.Models["scene"] {
		t.Errorf("health = %+v", resp)
	}
}

func TestIndexExisting(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeAnalyzer{result: okAnalysis()}, nil)
	img := makeJPEG(48, 48, 0)
	seedPhoto(t, env, phototag.Photo{ID: "old", Hash: phototag.PerceptualHash(img)})

	if err := env.srv.IndexExisting(); err != nil {
		t.Fatal(err)
	}
	resp := decode[uploadResponse](t, env.upload(t, "new.jpg", img))
	if resp.DuplicateOf != "old" {
		t.Errorf("DuplicateOf = %q, want old", resp.DuplicateOf)
	}
}

func TestWebsocketRetag(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeAnalyzer{result: okAnalysis()}, nil)
	for _, name := range []string{"one.jpg", "two.jpg"} {
		if rec := env.upload(t, name, makeJPEG(32, 32, uint8(len(name)*40))); rec.Code != http.StatusOK {
			t.Fatalf("seed upload: %d", rec.Code)
		}
	}

	ts := httptest.NewServer(env.router)
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	if err := conn.WriteJSON(Message{Type: "bogus"}); err != nil {
		t.Fatal(err)
	}
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "error" {
		t.Fatalf("bogus message reply = %+v, %v", msg, err)
	}

	if err := conn.WriteJSON(Message{Type: "start_retag"}); err != nil {
		t.Fatal(err)
	}
	var progress int
	for {
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type == "progress" {
			progress++
			continue
		}
		if msg.Type != "complete" {
			t.Fatalf("unexpected message %s: %s", msg.Type, msg.Payload)
		}
		break
	}

	var summary retag.Summary
	if err := json.Unmarshal(msg.Payload, &summary); err != nil {
		t.Fatal(err)
	}
	if progress != 2 || summary.Total != 2 || summary.Updated != 2 {
		t.Errorf("progress = %d, summary = %+v", progress, summary)
	}
}
