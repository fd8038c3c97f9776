package festival

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"improvfest/internal/model"
)

// YearCase classifies which of the two year columns of a row carry a usable
// date.
type YearCase int

const (
	AllEmpty YearCase = iota
	CurrentYearOnly
	NextYearOnly
	BothYears
)

func (c YearCase) String() string {
	switch c {
	case AllEmpty:
		return "all-empty"
	case CurrentYearOnly:
		return "current-year-only"
	case NextYearOnly:
		return "next-year-only"
	case BothYears:
		return "both-years-present"
	default:
		return "unknown"
	}
}

// Dating is the outcome of classifying a row that has an upcoming date.
type Dating struct {
	When    model.YearMonth
	Display string
	Case    YearCase
}

// Usable reports whether a year-column value counts as a date: it must be
// non-blank and contain at least one decimal digit. "June 12-15" is usable,
// "TBD" is not.
func Usable(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	return strings.ContainsFunc(v, func(r rune) bool { return r >= '0' && r <= '9' })
}

// ClassifyYearCase derives the YearCase from the raw current-year and
// next-year column values.
func ClassifyYearCase(current, next string) YearCase {
	hasCurrent, hasNext := Usable(current), Usable(next)
	switch {
	case hasCurrent && hasNext:
		return BothYears
	case hasCurrent:
		return CurrentYearOnly
	case hasNext:
		return NextYearOnly
	default:
		return AllEmpty
	}
}

// Classify decides whether a festival held in month is still upcoming as of
// now, which year it falls in, and which year column supplies its display
// date. It reports false when the row must be discarded.
//
// A festival in the current month counts as upcoming.
func Classify(month int, current, next string, now time.Time) (Dating, bool) {
	if month < 1 || month > 12 {
		return Dating{}, false
	}

	thisYear := now.Year()
	stillAhead := month >= int(now.Month())
	yc := ClassifyYearCase(current, next)

	dateIn := func(year int, display string) (Dating, bool) {
		return Dating{
			When:    model.YearMonth{Year: year, Month: month},
			Display: strings.TrimSpace(display),
			Case:    yc,
		}, true
	}

	switch yc {
	case CurrentYearOnly:
		if stillAhead {
			return dateIn(thisYear, current)
		}
		return Dating{}, false
	case NextYearOnly:
		return dateIn(thisYear+1, next)
	case BothYears:
		if stillAhead {
			return dateIn(thisYear, current)
		}
		return dateIn(thisYear+1, next)
	default:
		return Dating{}, false
	}
}

// ParseMonth reads a month-number cell. It accepts "6", "06" and "6.0"
// (spreadsheet number formatting) and rejects anything outside 1..12.
func ParseMonth(s string) (int, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 12 {
		return 0, false
	}
	return n, true
}
