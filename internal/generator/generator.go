package generator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"improvfest/internal/capture"
	"improvfest/internal/config"
	"improvfest/internal/festival"
	appLog "improvfest/internal/log"
	"improvfest/internal/ogimage"
	"improvfest/internal/render"
	"improvfest/internal/sheet"
)

// PreviewFile is the screenshot written next to index.html when enabled.
const PreviewFile = "preview.png"

// ErrBusy is returned by TryRun while another run is in progress.
var ErrBusy = errors.New("generator: a run is already in progress")

// Report describes one finished generation run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Result     festival.Result
}

// Generator performs generation runs. Runs are serialized: concurrent callers
// of Run wait for each other.
type Generator struct {
	cfg    *config.Config
	source sheet.Source
	images festival.ImageResolver

	// now and preview are replaceable in tests.
	now     func() time.Time
	preview func(context.Context, capture.Options) error

	runMu sync.Mutex

	lastMu sync.RWMutex
	last   *Report
}

// New builds a Generator around explicit collaborators.
func New(cfg *config.Config, source sheet.Source, images festival.ImageResolver) *Generator {
	return &Generator{
		cfg:     cfg,
		source:  source,
		images:  images,
		now:     time.Now,
		preview: capture.PreviewPNG,
	}
}

// NewFromConfig validates cfg and wires the sheet source and image resolver it
// selects.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		src sheet.Source
		err error
	)
	switch cfg.Source {
	case config.SourceWorkbook:
		src, err = sheet.NewWorkbookSource(cfg.WorkbookPath)
	default:
		src, err = sheet.NewGoogleSource(ctx, sheet.GoogleOptions{
			SpreadsheetID:   cfg.SpreadsheetID,
			CredentialsFile: cfg.CredentialsFile,
			APIKey:          cfg.APIKey,
		})
	}
	if err != nil {
		return nil, err
	}

	images := ogimage.NewHTTPResolver(ogimage.Options{
		Timeout:       time.Duration(cfg.Image.TimeoutSeconds) * time.Second,
		CacheDir:      cfg.Image.CacheDir,
		FacebookToken: cfg.Image.FacebookToken,
	})

	return New(cfg, src, images), nil
}

// Run performs one generation: fetch and classify every continent, render,
// write the artifacts and optionally capture a preview. On error the files
// from the previous successful run are left in place.
func (g *Generator) Run(ctx context.Context) (Report, error) {
	g.runMu.Lock()
	defer g.runMu.Unlock()
	return g.run(ctx)
}

// TryRun is Run, except it returns ErrBusy instead of waiting for a run that
// is already in progress.
func (g *Generator) TryRun(ctx context.Context) (Report, error) {
	if !g.runMu.TryLock() {
		return Report{}, ErrBusy
	}
	defer g.runMu.Unlock()
	return g.run(ctx)
}

// Last returns the most recent successful run.
func (g *Generator) Last() (Report, bool) {
	g.lastMu.RLock()
	defer g.lastMu.RUnlock()
	if g.last == nil {
		return Report{}, false
	}
	return *g.last, true
}

func (g *Generator) run(ctx context.Context) (Report, error) {
	rep := Report{
		RunID:     uuid.NewString(),
		StartedAt: g.now().In(g.cfg.Location()),
	}
	appLog.Info("generation started", "run_id", rep.RunID, "source", g.cfg.Source, "now", rep.StartedAt.Format(time.RFC3339))

	agg := &festival.Aggregator{
		Source:           g.source,
		Images:           g.images,
		ImageConcurrency: g.cfg.Image.Concurrency,
	}
	res, err := agg.Run(ctx, rep.StartedAt)
	if err != nil {
		appLog.Error("generation failed; keeping previous output", err, "run_id", rep.RunID)
		return Report{}, fmt.Errorf("generator: aggregate: %w", err)
	}
	rep.Result = res

	site := render.Site{
		Title:       g.cfg.Site.Title,
		Description: g.cfg.Site.Description,
		SheetURL:    g.cfg.SheetURL(),
	}
	if err := render.WriteSite(g.cfg.OutputDir, site, res); err != nil {
		appLog.Error("writing site failed", err, "run_id", rep.RunID, "output_dir", g.cfg.OutputDir)
		return Report{}, fmt.Errorf("generator: %w", err)
	}

	if g.cfg.Preview.Enabled {
		g.capturePreview(ctx, rep.RunID)
	}

	rep.FinishedAt = g.now().In(g.cfg.Location())

	failed := make([]string, 0, len(res.Failed))
	for _, c := range res.Failed {
		failed = append(failed, c.Slug)
	}
	appLog.Info("generation finished",
		"run_id", rep.RunID,
		"events", len(res.Events),
		"failed_continents", failed,
		"output_dir", g.cfg.OutputDir,
		"duration", rep.FinishedAt.Sub(rep.StartedAt).String(),
	)

	g.lastMu.Lock()
	g.last = &rep
	g.lastMu.Unlock()

	return rep, nil
}

// capturePreview screenshots the freshly written page. Failures only cost
// the preview image, never the run.
func (g *Generator) capturePreview(ctx context.Context, runID string) {
	pageURL, err := capture.FileURL(filepath.Join(g.cfg.OutputDir, render.IndexFile))
	if err != nil {
		appLog.Error("preview capture skipped", err, "run_id", runID)
		return
	}

	err = g.preview(ctx, capture.Options{
		URL:        pageURL,
		OutputPath: filepath.Join(g.cfg.OutputDir, PreviewFile),
		Width:      g.cfg.Preview.Width,
		Height:     g.cfg.Preview.Height,
	})
	if err != nil {
		appLog.Error("preview capture failed", err, "run_id", runID)
		return
	}
	appLog.Info("preview captured", "run_id", runID)
}
