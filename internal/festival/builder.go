package festival

import (
	"context"
	"time"

	"improvfest/internal/model"
	"improvfest/internal/sheet"
)

// ImageResolver finds a preview image for a festival. It returns "" when no
// image could be found; failures are never surfaced to the caller.
type ImageResolver interface {
	Resolve(ctx context.Context, webpage, facebook string) string
}

// Builder turns mapped spreadsheet rows into Events as of a fixed reference
// time.
type Builder struct {
	Now    time.Time
	Images ImageResolver
}

// Date reads the month and both year columns of row and classifies them.
// Rows without a valid month are rejected before anything else is read.
func (b Builder) Date(row sheet.Row) (Dating, bool) {
	raw, ok := row.Get(sheet.FieldMonthNumber)
	if !ok {
		return Dating{}, false
	}
	month, ok := ParseMonth(raw)
	if !ok {
		return Dating{}, false
	}

	current := row.Value(sheet.YearKey(b.Now.Year()))
	next := row.Value(sheet.YearKey(b.Now.Year() + 1))
	return Classify(month, current, next, b.Now)
}

// Draft builds the Event for row without resolving its image.
func (b Builder) Draft(row sheet.Row, continent model.Continent) (model.Event, bool) {
	d, ok := b.Date(row)
	if !ok {
		return model.Event{}, false
	}

	return model.Event{
		Name:        row.Value(sheet.FieldName),
		City:        row.Value(sheet.FieldCity),
		Country:     row.Value(sheet.FieldCountry),
		Languages:   row.Value(sheet.FieldLanguages),
		Webpage:     row.Value(sheet.FieldWebpage),
		Facebook:    row.Value(sheet.FieldFacebook),
		Email:       row.Value(sheet.FieldEmail),
		When:        d.When,
		DisplayDate: d.Display,
		Continent:   continent,
	}, true
}

// Build is Draft followed by image resolution.
func (b Builder) Build(ctx context.Context, row sheet.Row, continent model.Continent) (model.Event, bool) {
	ev, ok := b.Draft(row, continent)
	if !ok {
		return model.Event{}, false
	}
	ev.Image = b.resolveImage(ctx, ev)
	return ev, true
}

func (b Builder) resolveImage(ctx context.Context, ev model.Event) string {
	if b.Images == nil || (ev.Webpage == "" && ev.Facebook == "") {
		return ""
	}
	return b.Images.Resolve(ctx, ev.Webpage, ev.Facebook)
}
