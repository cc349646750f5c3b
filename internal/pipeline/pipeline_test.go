package pipeline

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/vissr-imagery-service/internal/cache"
	"github.com/couchcryptid/vissr-imagery-service/internal/domain"
	"github.com/couchcryptid/vissr-imagery-service/internal/observability"
	"github.com/couchcryptid/vissr-imagery-service/internal/render"
)

// --- fakes ---

// fakeFetcher writes payload into the scratch dir, recording the dir so
// tests can verify cleanup.
type fakeFetcher struct {
	payload []byte
	err     error

	calls      int
	scratchDir string
}

func (f *fakeFetcher) Fetch(_ context.Context, _ domain.Satellite, req domain.Request, scratchDir string) (string, error) {
	f.calls++
	f.scratchDir = scratchDir
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(scratchDir, domain.ImageFileName(req))
	if err := os.WriteFile(path, f.payload, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type failingRenderer struct{}

func (failingRenderer) Render(*domain.TemperatureGrid, domain.Satellite, domain.Request) (*render.RenderedImage, error) {
	return nil, domain.ErrRender
}

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sensorFile builds a synthetic VISSR file: 352-byte header with big-endian
// geometry at offset 8 plus uniform pixel samples.
func sensorFile(width, height uint16, pixelCount int, fill byte) []byte {
	data := make([]byte, 352+pixelCount)
	binary.BigEndian.PutUint16(data[8:], width)
	binary.BigEndian.PutUint16(data[10:], height)
	for i := 352; i < len(data); i++ {
		data[i] = fill
	}
	return data
}

func newGenerator(t *testing.T, fetcher Fetcher, renderer Renderer) *Generator {
	t.Helper()
	if renderer == nil {
		opts := render.DefaultOptions()
		renderer = render.New(opts, discardLogger())
	}
	c := cache.New(8, time.Hour, clockwork.NewFakeClock())
	settings := Settings{
		Calibration: domain.DefaultCalibration,
		ScratchRoot: t.TempDir(),
		JPEGQuality: 85,
	}
	return New(fetcher, renderer, c, settings, discardLogger(), observability.NewMetricsForTesting())
}

var validReq = domain.Request{Year: 2000, Month: 1, Day: 1, Hour: 0}

// --- tests ---

func TestGenerateSuccess(t *testing.T) {
	fetcher := &fakeFetcher{payload: sensorFile(120, 100, 120*100, 0x80)}
	g := newGenerator(t, fetcher, nil)

	b, err := g.Generate(context.Background(), validReq)
	require.NoError(t, err)
	require.Greater(t, len(b), 2)
	assert.Equal(t, []byte{0xff, 0xd8}, b[:2], "JPEG output")

	assert.NoDirExists(t, fetcher.scratchDir, "scratch dir removed after success")
}

func TestGenerateOutOfCoverage(t *testing.T) {
	fetcher := &fakeFetcher{}
	g := newGenerator(t, fetcher, nil)

	// One hour before the GMS-5 window opens.
	req := domain.Request{Year: 1995, Month: 6, Day: 13, Hour: 5}
	_, err := g.Generate(context.Background(), req)

	require.ErrorIs(t, err, domain.ErrOutOfCoverage)
	assert.Equal(t, 0, fetcher.calls, "fetcher not consulted without coverage")

	var stage *domain.StageError
	require.ErrorAs(t, err, &stage)
	assert.Equal(t, "resolve", stage.Stage)
	assert.Equal(t, req, stage.Request)
}

func TestGenerateFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: domain.ErrRemoteFileNotFound}
	g := newGenerator(t, fetcher, nil)

	_, err := g.Generate(context.Background(), validReq)
	require.ErrorIs(t, err, domain.ErrRemoteFileNotFound)

	assert.NoDirExists(t, fetcher.scratchDir, "scratch dir removed after fetch failure")
}

func TestGenerateDecodeFailureCleansScratch(t *testing.T) {
	// Too short for even the header: both decoders fail.
	fetcher := &fakeFetcher{payload: make([]byte, 100)}
	g := newGenerator(t, fetcher, nil)

	_, err := g.Generate(context.Background(), validReq)
	require.ErrorIs(t, err, domain.ErrBothDecodersFailed)

	assert.NoDirExists(t, fetcher.scratchDir, "scratch dir removed after decode failure")
}

func TestGenerateRenderFailureCleansScratch(t *testing.T) {
	fetcher := &fakeFetcher{payload: sensorFile(120, 100, 120*100, 0x80)}
	g := newGenerator(t, fetcher, failingRenderer{})

	_, err := g.Generate(context.Background(), validReq)
	require.ErrorIs(t, err, domain.ErrRender)

	assert.NoDirExists(t, fetcher.scratchDir, "scratch dir removed after render failure")
}

func TestGenerateCacheShortCircuit(t *testing.T) {
	fetcher := &fakeFetcher{payload: sensorFile(120, 100, 120*100, 0x80)}
	g := newGenerator(t, fetcher, nil)

	first, err := g.Generate(context.Background(), validReq)
	require.NoError(t, err)

	second, err := g.Generate(context.Background(), validReq)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fetcher.calls, "second request served from cache")
}

func TestGenerateErrorsAreNotCached(t *testing.T) {
	fetcher := &fakeFetcher{err: domain.ErrTransport}
	g := newGenerator(t, fetcher, nil)

	_, err := g.Generate(context.Background(), validReq)
	require.Error(t, err)

	// A later attempt reaches the fetcher again.
	fetcher.err = nil
	fetcher.payload = sensorFile(120, 100, 120*100, 0x80)
	_, err = g.Generate(context.Background(), validReq)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)
}

func TestGenerateHeuristicFallbackStillRenders(t *testing.T) {
	// Garbage header: strict decode refuses, heuristic recovers.
	fetcher := &fakeFetcher{payload: sensorFile(0, 0, 2366*150, 0x40)}
	g := newGenerator(t, fetcher, nil)

	b, err := g.Generate(context.Background(), validReq)
	require.NoError(t, err)
	assert.Greater(t, len(b), 2)
}

func TestCheckReadiness(t *testing.T) {
	g := newGenerator(t, &fakeFetcher{}, nil)
	assert.NoError(t, g.CheckReadiness(context.Background()))
}

func TestCheckReadinessUnwritableScratch(t *testing.T) {
	fetcher := &fakeFetcher{}
	opts := render.DefaultOptions()
	c := cache.New(8, time.Hour, clockwork.NewFakeClock())
	settings := Settings{
		Calibration: domain.DefaultCalibration,
		ScratchRoot: filepath.Join(t.TempDir(), "does-not-exist"),
		JPEGQuality: 85,
	}
	g := New(fetcher, render.New(opts, discardLogger()), c, settings, discardLogger(), observability.NewMetricsForTesting())

	err := g.CheckReadiness(context.Background())
	assert.Error(t, err)
}
