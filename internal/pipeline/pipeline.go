// Package pipeline sequences the acquisition-and-decoding pipeline:
// resolve coverage, fetch the hourly archive, decode the sensor file, and
// render the false-color image.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/vissr-imagery-service/internal/cache"
	"github.com/couchcryptid/vissr-imagery-service/internal/domain"
	"github.com/couchcryptid/vissr-imagery-service/internal/observability"
	"github.com/couchcryptid/vissr-imagery-service/internal/render"
)

// Fetcher downloads one request's sensor file into scratchDir and returns
// its local path.
type Fetcher interface {
	Fetch(ctx context.Context, sat domain.Satellite, req domain.Request, scratchDir string) (string, error)
}

// Renderer turns a kelvin grid into an annotated raster.
type Renderer interface {
	Render(grid *domain.TemperatureGrid, sat domain.Satellite, req domain.Request) (*render.RenderedImage, error)
}

// Settings are the per-deployment pipeline parameters.
type Settings struct {
	Calibration domain.Calibration
	ScratchRoot string
	JPEGQuality int
}

// Generator runs one synchronous pipeline per Generate call. Concurrent
// calls are independent: each gets its own scratch directory and shares
// only read-only configuration and the internally-locked result cache.
type Generator struct {
	fetcher  Fetcher
	renderer Renderer
	cache    *cache.Cache
	settings Settings
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New creates a Generator.
func New(fetcher Fetcher, renderer Renderer, c *cache.Cache, settings Settings, logger *slog.Logger, metrics *observability.Metrics) *Generator {
	return &Generator{
		fetcher:  fetcher,
		renderer: renderer,
		cache:    c,
		settings: settings,
		logger:   logger,
		metrics:  metrics,
	}
}

// Generate produces the encoded JPEG for one request, consulting the result
// cache first. Identical requests inside the cache TTL return the stored
// image without touching the archive server.
func (g *Generator) Generate(ctx context.Context, req domain.Request) ([]byte, error) {
	if b, ok := g.cache.Get(req.Key()); ok {
		g.metrics.CacheLookups.WithLabelValues("hit").Inc()
		g.logger.Debug("cache hit", "request", req.Key())
		return b, nil
	}
	g.metrics.CacheLookups.WithLabelValues("miss").Inc()

	start := time.Now()
	b, err := g.generate(ctx, req)
	if err != nil {
		g.metrics.Requests.WithLabelValues("error").Inc()
		g.logger.Error("imagery generation failed", "request", req.Key(), "error", err)
		return nil, err
	}

	g.metrics.Requests.WithLabelValues("success").Inc()
	g.metrics.RequestDuration.Observe(time.Since(start).Seconds())
	g.cache.Put(req.Key(), b)
	g.logger.Info("imagery generated",
		"request", req.Key(),
		"bytes", len(b),
		"duration", time.Since(start),
	)
	return b, nil
}

func (g *Generator) generate(ctx context.Context, req domain.Request) ([]byte, error) {
	sat, ok := domain.Resolve(req.Time())
	if !ok {
		return nil, stageErr("resolve", req, domain.ErrOutOfCoverage)
	}

	scratch, err := os.MkdirTemp(g.settings.ScratchRoot, "vissr-")
	if err != nil {
		return nil, stageErr("scratch", req, fmt.Errorf("create scratch dir: %w", err))
	}
	defer g.cleanup(scratch)

	path, err := g.fetcher.Fetch(ctx, sat, req, scratch)
	if err != nil {
		return nil, stageErr("fetch", req, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, stageErr("decode", req, fmt.Errorf("read sensor file: %w", err))
	}

	result, err := domain.Decode(data, g.settings.Calibration)
	if err != nil {
		return nil, stageErr("decode", req, err)
	}
	g.metrics.DecodeStrategy.WithLabelValues(string(result.Strategy)).Inc()
	if result.Strategy == domain.StrategyHeuristic {
		g.logger.Warn("strict decode failed, heuristic recovery used",
			"request", req.Key(),
			"geometry", fmt.Sprintf("%dx%d", result.Grid.Width, result.Grid.Height),
		)
	}

	img, err := g.renderer.Render(result.Grid, sat, req)
	if err != nil {
		return nil, stageErr("render", req, err)
	}
	return encodeOrFail(img, g.settings.JPEGQuality, req)
}

func encodeOrFail(img *render.RenderedImage, quality int, req domain.Request) ([]byte, error) {
	b, err := img.EncodeJPEG(quality)
	if err != nil {
		return nil, stageErr("render", req, err)
	}
	return b, nil
}

// cleanup removes a scratch directory. Failures are logged and swallowed:
// they must never mask the pipeline's primary error.
func (g *Generator) cleanup(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		g.logger.Warn("scratch cleanup failed", "dir", dir, "error", err)
	}
}

func stageErr(stage string, req domain.Request, err error) error {
	return &domain.StageError{Stage: stage, Request: req, Err: err}
}

// CheckReadiness reports whether the service can serve: scratch space must
// be writable.
func (g *Generator) CheckReadiness(_ context.Context) error {
	dir, err := os.MkdirTemp(g.settings.ScratchRoot, "vissr-ready-")
	if err != nil {
		return fmt.Errorf("scratch space not writable: %w", err)
	}
	_ = os.RemoveAll(dir)
	return nil
}
