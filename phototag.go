package phototag

import (
	"time"
)

// MaxTags is the upper bound on the merged tag list produced by Analyzer.
const MaxTags = 15

// Default thresholds for the multi-label scene sets.
const (
	DefaultCompositionThreshold = 0.25
	DefaultCompositionLimit     = 3
	DefaultSubjectThreshold     = 0.35
	DefaultSubjectLimit         = 4
)

// Config holds all dependencies injected by the consumer of Analyzer.
type Config struct {
	Scene     SceneAnalyzer // required (nil = every photo gets the fallback analysis)
	Depth     DepthAnalyzer // required (nil = every photo gets the fallback analysis)
	Gazetteer *Gazetteer    // default: DefaultGazetteer()

	// Timeout bounds the whole analysis. Zero means no timeout.
	// When it fires the analyzer returns FallbackAnalysis.
	Timeout time.Duration

	// Optional callbacks for metrics/logging.
	OnAnalysis func(AnalysisEvent)
	OnPanic    func(tag string, r any)
}

// defaults fills zero-value fields with sensible defaults.
func (c *Config) defaults() {
	if c.Gazetteer == nil {
		c.Gazetteer = DefaultGazetteer()
	}
}

// AnalysisEvent is emitted once per Analyze call.
type AnalysisEvent struct {
	ImagePath string
	Status    AnalysisStatus
	Reasons   []string
	Tags      int
	Duration  time.Duration
}
