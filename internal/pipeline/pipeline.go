// Package pipeline orchestrates one map run: fetch the raw ways for
// every feature class, classify them, and render the finished map.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/didzislauva/osmplot/internal/feature"
	"github.com/didzislauva/osmplot/internal/geo"
	"github.com/didzislauva/osmplot/internal/observability"
	"github.com/didzislauva/osmplot/internal/render"
	"github.com/didzislauva/osmplot/internal/source"
)

// Result summarizes one completed run.
type Result struct {
	RunID    string
	BBox     geo.BBox
	Counts   map[feature.Class]int
	Dropped  int
	Duration time.Duration
	Map      *render.Map
}

// Pipeline fetches, classifies and renders. Safe for concurrent runs.
type Pipeline struct {
	source     source.Source
	classifier *feature.Classifier
	metrics    *observability.Metrics
}

// Option adjusts a new Pipeline.
type Option func(*Pipeline)

// WithMetrics wires run counters into p.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New creates a Pipeline reading from src.
func New(src source.Source, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:     src,
		classifier: feature.NewClassifier(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the full pipeline for one bounding box and returns the
// finished map with its run summary. A failed fetch aborts the run.
func (p *Pipeline) Run(ctx context.Context, b geo.BBox, ropts render.Options) (*Result, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID), zap.String("bbox", b.String()))
	log.Info("pipeline: run starting")
	start := time.Now()

	// Fetch every class in parallel. The Overpass client's rate
	// limiter serializes the actual requests.
	raws := make(map[feature.Class][]feature.Raw, len(feature.Classes))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, class := range feature.Classes {
		class := class // per-iteration copy: go directive < 1.22
		g.Go(func() error {
			rs, err := p.source.Fetch(gctx, b, class)
			if err != nil {
				if p.metrics != nil {
					p.metrics.UpstreamErrors.Inc()
				}
				return eris.Wrapf(err, "pipeline: fetch %s", class)
			}
			if p.metrics != nil {
				p.metrics.FeaturesFetched.WithLabelValues(string(class)).Add(float64(len(rs)))
			}
			mu.Lock()
			raws[class] = rs
			mu.Unlock()
			log.Debug("pipeline: class fetched",
				zap.String("class", string(class)),
				zap.Int("ways", len(rs)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Classify in the fixed class order. A way tagged for more than
	// one class comes back from several fetches; the first one wins.
	var features []feature.Feature
	counts := make(map[feature.Class]int, len(feature.Classes))
	seen := make(map[int64]bool)
	dropped := 0
	for _, class := range feature.Classes {
		for _, raw := range raws[class] {
			if seen[raw.ID] {
				continue
			}
			seen[raw.ID] = true
			f, ok := p.classifier.Classify(raw)
			if !ok {
				dropped++
				continue
			}
			features = append(features, f)
			counts[f.Class]++
		}
	}
	log.Info("pipeline: features classified",
		zap.Int("roads", counts[feature.ClassRoads]),
		zap.Int("buildings", counts[feature.ClassBuildings]),
		zap.Int("forests", counts[feature.ClassForests]))
	if dropped > 0 {
		log.Debug("pipeline: unclassifiable ways dropped", zap.Int("dropped", dropped))
	}

	m, err := render.Render(features, b, ropts)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: render")
	}

	result := &Result{
		RunID:    runID,
		BBox:     b,
		Counts:   counts,
		Dropped:  dropped,
		Duration: time.Since(start),
		Map:      m,
	}
	log.Info("pipeline: run complete",
		zap.Int("features", len(features)),
		zap.Duration("duration", result.Duration))
	return result, nil
}
