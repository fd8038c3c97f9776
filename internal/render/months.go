package render

import (
	"time"

	"github.com/teambition/rrule-go"

	"improvfest/internal/model"
)

// MonthEntry is one stop of the page's month jump-bar.
type MonthEntry struct {
	When  model.YearMonth
	Label string
	Count int
}

// MonthIndex lists every month from now's month through the month of the
// latest event, with the number of events in each. Months without events are
// kept so the bar reads as a continuous timeline. It returns nil when there
// are no events.
func MonthIndex(now time.Time, events []model.Event) []MonthEntry {
	if len(events) == 0 {
		return nil
	}

	counts := make(map[model.YearMonth]int, len(events))
	last := events[0].When
	for _, ev := range events {
		counts[ev.When]++
		if last.Before(ev.When) {
			last = ev.When
		}
	}

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(last.Year, time.Month(last.Month), 1, 0, 0, 0, 0, time.UTC)
	if until.Before(start) {
		until = start
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.MONTHLY,
		Dtstart: start,
		Until:   until,
	})
	if err != nil {
		return nil
	}

	months := r.All()
	out := make([]MonthEntry, 0, len(months))
	for _, t := range months {
		ym := model.YearMonth{Year: t.Year(), Month: int(t.Month())}
		out = append(out, MonthEntry{
			When:  ym,
			Label: t.Format("Jan 2006"),
			Count: counts[ym],
		})
	}
	return out
}
