package festival

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	appLog "improvfest/internal/log"
	"improvfest/internal/model"
	"improvfest/internal/sheet"
)

const defaultImageConcurrency = 8

// ErrAllContinentsFailed is returned when no continent sheet could be read.
var ErrAllContinentsFailed = errors.New("festival: every continent sheet failed")

// Aggregator runs the per-continent pipeline and merges the results.
type Aggregator struct {
	Source sheet.Source
	Images ImageResolver

	// Continents defaults to model.Continents().
	Continents []model.Continent

	// ImageConcurrency bounds parallel image lookups. Zero means the default.
	ImageConcurrency int
}

// Result is the outcome of one aggregation run.
type Result struct {
	Now time.Time
	// Continents lists every continent that was processed, in display order.
	Continents []model.Continent
	// Events holds all upcoming festivals sorted by year and month.
	Events []model.Event
	// Failed lists continents whose sheet could not be fetched.
	Failed []model.Continent
}

// Group is the events of one continent in chronological order.
type Group struct {
	Continent model.Continent `json:"continent"`
	Events    []model.Event   `json:"events"`
}

// ByContinent splits the sorted events by continent, keeping their order.
// Every processed continent gets a group, empty ones included.
func (r Result) ByContinent() []Group {
	groups := make([]Group, len(r.Continents))
	index := make(map[string]int, len(r.Continents))
	for i, c := range r.Continents {
		groups[i] = Group{Continent: c, Events: []model.Event{}}
		index[c.Slug] = i
	}
	for _, ev := range r.Events {
		i, ok := index[ev.Continent.Slug]
		if !ok {
			continue
		}
		groups[i].Events = append(groups[i].Events, ev)
	}
	return groups
}

// Run fetches and processes every continent as of now. A continent whose
// sheet cannot be fetched contributes no events and is listed in
// Result.Failed; the other continents are unaffected.
func (a *Aggregator) Run(ctx context.Context, now time.Time) (Result, error) {
	continents := a.Continents
	if len(continents) == 0 {
		continents = model.Continents()
	}

	res := Result{Now: now, Continents: continents}
	b := Builder{Now: now, Images: a.Images}

	var fetchErrs []error
	for _, c := range continents {
		rows, err := a.Source.Fetch(ctx, c.Label)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			appLog.Error("continent sheet fetch failed", err, "continent", c.Slug, "label", c.Label)
			res.Failed = append(res.Failed, c)
			fetchErrs = append(fetchErrs, err)
			continue
		}

		events := draftContinent(b, rows, c)
		appLog.Info("continent processed",
			"continent", c.Slug,
			"rows", max(len(rows)-1, 0),
			"upcoming", len(events),
		)
		res.Events = append(res.Events, events...)
	}

	if len(res.Failed) == len(continents) {
		return Result{}, fmt.Errorf("%w: %w", ErrAllContinentsFailed, errors.Join(fetchErrs...))
	}

	if err := a.resolveImages(ctx, b, res.Events); err != nil {
		return Result{}, err
	}

	SortEvents(res.Events)
	return res, nil
}

// draftContinent maps the header row and drafts every data row below it.
func draftContinent(b Builder, rows [][]string, c model.Continent) []model.Event {
	if len(rows) == 0 {
		return nil
	}

	mapping := sheet.MapColumns(rows[0], b.Now)
	out := make([]model.Event, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		ev, ok := b.Draft(sheet.NewRow(cells, mapping), c)
		if !ok {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// resolveImages fills in Event.Image with bounded concurrency. Each goroutine
// writes only its own slice element.
func (a *Aggregator) resolveImages(ctx context.Context, b Builder, events []model.Event) error {
	if a.Images == nil {
		return nil
	}

	limit := a.ImageConcurrency
	if limit <= 0 {
		limit = defaultImageConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range events {
		if events[i].Webpage == "" && events[i].Facebook == "" {
			continue
		}
		i := i
		g.Go(func() error {
			events[i].Image = b.resolveImage(gctx, events[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// SortEvents orders events by year and month. Events in the same month keep
// their relative order.
func SortEvents(events []model.Event) {
	slices.SortStableFunc(events, func(x, y model.Event) int {
		switch {
		case x.When.Before(y.When):
			return -1
		case y.When.Before(x.When):
			return 1
		default:
			return 0
		}
	})
}
