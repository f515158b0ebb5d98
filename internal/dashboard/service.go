package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/civicatlas/msa-atlas/internal/atlas"
	"github.com/civicatlas/msa-atlas/internal/source"
)

// Options tunes the snapshot cache.
type Options struct {
	CacheTTL   time.Duration // how long a completed snapshot stays servable
	CacheSweep time.Duration // expired-entry sweep interval
}

// Service owns snapshot loading for the dashboard. Selections race: the
// newest call to Select supersedes any load still in flight, cancels it,
// and a superseded load never becomes the current snapshot.
type Service struct {
	loader  *source.Loader
	metrics *Metrics

	// cache holds completed snapshots under "year|category" and source
	// tables under "table|..." so category switches within a year do not
	// re-download anything.
	cache      *gocache.Cache
	generation atomic.Uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	current *Snapshot

	staticMu  sync.Mutex
	crosswalk map[string][]string
	layers    map[string]*source.Layer
}

// NewService builds a Service around the loader. A nil metrics gets an
// unregistered set so tests do not have to care.
func NewService(loader *source.Loader, metrics *Metrics, opts Options) *Service {
	if metrics == nil {
		metrics = NewMetricsForTesting()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.CacheSweep <= 0 {
		opts.CacheSweep = 10 * time.Minute
	}
	return &Service{
		loader:  loader,
		metrics: metrics,
		cache:   gocache.New(opts.CacheTTL, opts.CacheSweep),
		layers:  map[string]*source.Layer{},
	}
}

// Years lists the selectable indicator years, ascending.
func (s *Service) Years() []string {
	return s.loader.Years()
}

// Current returns the snapshot of the most recent non-superseded load,
// nil before the first one completes.
func (s *Service) Current() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Select loads (or serves from cache) the snapshot for a year and
// category. An empty year means the latest configured year; the
// category is normalized before use. Failed loads come back as error
// snapshots, not Go errors.
func (s *Service) Select(ctx context.Context, year, category string) (*Snapshot, error) {
	if year == "" {
		years := s.loader.Years()
		if len(years) == 0 {
			return nil, eris.New("dashboard: no indicator years configured")
		}
		year = years[len(years)-1]
	}
	if !s.loader.HasYear(year) {
		return nil, eris.Errorf("dashboard: unknown year %q", year)
	}
	category = atlas.NormalizeSDG(category)

	key := year + "|" + category
	if v, ok := s.cache.Get(key); ok {
		s.metrics.SnapshotCache.WithLabelValues("hit").Inc()
		return v.(*Snapshot), nil
	}
	s.metrics.SnapshotCache.WithLabelValues("miss").Inc()

	gen := s.generation.Add(1)
	loadCtx, cancel := s.supersede(ctx)
	defer cancel()

	snap := s.load(loadCtx, year, category)
	snap.Generation = gen
	s.install(key, gen, snap)
	return snap, nil
}

// install makes snap the current snapshot unless a newer selection
// started while it loaded. A superseded result is still returned to its
// own caller; it just never becomes current and is never cached.
func (s *Service) install(key string, gen uint64, snap *Snapshot) bool {
	if s.generation.Load() != gen {
		s.metrics.StaleLoads.Inc()
		zap.L().Debug("superseded load discarded",
			zap.String("component", "dashboard"),
			zap.String("load_id", snap.LoadID),
			zap.Uint64("generation", gen))
		return false
	}

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	if !snap.Failed() {
		s.cache.SetDefault(key, snap)
	}
	return true
}

// supersede cancels whatever load is in flight and registers a fresh
// context for the new one.
func (s *Service) supersede(ctx context.Context) (context.Context, context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return loadCtx, cancel
}

// load fetches the year's sources concurrently and computes the joins.
func (s *Service) load(ctx context.Context, year, category string) *Snapshot {
	start := time.Now()
	snap := &Snapshot{
		LoadID:   uuid.NewString(),
		Year:     year,
		Category: category,
		LoadedAt: start.UTC(),
		Points:   []atlas.Point{},
		Report:   &atlas.JoinReport{},
		Values: atlas.ValueLookup{
			ByName: map[string]*float64{},
			ByCode: map[string]*float64{},
		},
	}

	var indicators, coords atlas.Table

	// The two source files are independent; fetch them together and
	// join only once both are in.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		indicators, err = s.indicatorTable(gctx, year)
		return err
	})
	g.Go(func() error {
		var err error
		coords, err = s.coordinateTable(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		snap.Error = err.Error()
		snap.ElapsedMS = time.Since(start).Milliseconds()
		s.metrics.LoadErrors.Inc()
		zap.L().Error("snapshot load failed",
			zap.String("component", "dashboard"),
			zap.String("load_id", snap.LoadID),
			zap.String("year", year),
			zap.String("category", category),
			zap.Error(err))
		return snap
	}

	obs := atlas.NormalizeObservations(indicators)
	index := atlas.BuildPointIndex(coords)
	points, report := atlas.JoinPoints(obs, index, category)
	if points == nil {
		points = []atlas.Point{}
	}

	snap.Points = points
	snap.Report = report
	snap.Values = atlas.AggregateValues(obs, category)
	snap.Rows = len(indicators.Rows)
	snap.ElapsedMS = time.Since(start).Milliseconds()

	s.metrics.RowsParsed.Add(float64(snap.Rows))
	s.metrics.PointsMatched.Add(float64(report.Matched))
	s.metrics.PointsUnmatched.Add(float64(len(report.Unmatched)))
	s.metrics.ValuesDropped.Add(float64(report.DroppedValue))
	s.metrics.LoadDuration.Observe(time.Since(start).Seconds())

	zap.L().Info("snapshot loaded",
		zap.String("component", "dashboard"),
		zap.String("load_id", snap.LoadID),
		zap.String("year", year),
		zap.String("category", category),
		zap.Int("rows", snap.Rows),
		zap.Int("matched", report.Matched),
		zap.Int("unmatched", len(report.Unmatched)),
		zap.Duration("elapsed", time.Since(start)))
	return snap
}

// indicatorTable fetches one year's indicator table through the TTL
// cache. Cached tables are treated as read-only by every consumer.
func (s *Service) indicatorTable(ctx context.Context, year string) (atlas.Table, error) {
	key := "table|indicators|" + year
	if v, ok := s.cache.Get(key); ok {
		return v.(atlas.Table), nil
	}
	tbl, err := s.loader.Indicators(ctx, year)
	if err != nil {
		return atlas.Table{}, err
	}
	s.cache.SetDefault(key, tbl)
	return tbl, nil
}

// coordinateTable fetches the coordinate table through the TTL cache.
func (s *Service) coordinateTable(ctx context.Context) (atlas.Table, error) {
	const key = "table|coordinates"
	if v, ok := s.cache.Get(key); ok {
		return v.(atlas.Table), nil
	}
	tbl, err := s.loader.Coordinates(ctx)
	if err != nil {
		return atlas.Table{}, err
	}
	s.cache.SetDefault(key, tbl)
	return tbl, nil
}

// Crosswalk returns the metro title to county GEOID mapping, loading it
// on first use. Errors are not memoized so a later call can retry.
func (s *Service) Crosswalk(ctx context.Context) (map[string][]string, error) {
	s.staticMu.Lock()
	defer s.staticMu.Unlock()
	if s.crosswalk != nil {
		return s.crosswalk, nil
	}
	cw, err := s.loader.Crosswalk(ctx)
	if err != nil {
		return nil, err
	}
	s.crosswalk = cw
	return cw, nil
}

// Counties resolves one metro title against the crosswalk: exact match
// first, canonical-form match second.
func (s *Service) Counties(ctx context.Context, title string) ([]string, error) {
	cw, err := s.Crosswalk(ctx)
	if err != nil {
		return nil, err
	}
	if geoids, ok := cw[title]; ok {
		return geoids, nil
	}
	want := atlas.Canon(atlas.Unquote(title))
	for t, geoids := range cw {
		if atlas.Canon(t) == want {
			return geoids, nil
		}
	}
	return nil, eris.Errorf("dashboard: no crosswalk entry for %q", title)
}

// Layer returns a boundary layer, loading and memoizing it on first use.
func (s *Service) Layer(ctx context.Context, name string) (*source.Layer, error) {
	s.staticMu.Lock()
	defer s.staticMu.Unlock()
	if layer, ok := s.layers[name]; ok {
		return layer, nil
	}
	layer, err := s.loader.Layer(ctx, name)
	if err != nil {
		return nil, err
	}
	s.layers[name] = layer
	return layer, nil
}

// LayerNames lists the configured boundary layers.
func (s *Service) LayerNames() []string {
	return s.loader.LayerNames()
}

// HasLayer reports whether the named layer is configured.
func (s *Service) HasLayer(name string) bool {
	return s.loader.HasLayer(name)
}
