package render

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"improvfest/internal/festival"
	"improvfest/internal/model"
	"improvfest/internal/sheet"
)

const productID = "-//improvfest//Improv Festivals Worldwide//EN"

// ICS renders the festivals as an iCalendar feed. Only the month of a
// festival is known, so each one becomes an all-day event on the 1st of its
// month; the human-entered date goes into the description.
func ICS(site Site, res festival.Result) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(site.Title)
	cal.SetXWRCalDesc(site.Description)

	stamp := res.Now.UTC()
	seen := make(map[string]int, len(res.Events))
	for _, ev := range res.Events {
		start := time.Date(ev.When.Year, time.Month(ev.When.Month), 1, 0, 0, 0, 0, time.UTC)

		uid := eventUID(ev)
		seen[uid]++
		if n := seen[uid]; n > 1 {
			uid = strings.TrimSuffix(uid, uidDomain) + fmt.Sprintf("-%d", n) + uidDomain
		}

		vev := cal.AddEvent(uid)
		vev.SetDtStampTime(stamp)
		vev.SetAllDayStartAt(start)
		vev.SetAllDayEndAt(start.AddDate(0, 0, 1))
		vev.SetSummary(ev.Name)
		if loc := location(ev); loc != "" {
			vev.SetLocation(loc)
		}
		vev.SetDescription(eventDescription(ev))
		if link := primaryLink(ev); link != "" {
			vev.SetURL(link)
		}
	}

	return cal.Serialize()
}

const uidDomain = "@improvfest"

// eventUID is stable across runs for an unchanged row. The digest separates
// rows that share name, continent and month; rows identical in every field
// are numbered by ICS.
func eventUID(ev model.Event) string {
	name := sheet.Slug(ev.Name)
	if name == "" {
		name = "festival"
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{ev.DisplayDate, ev.City, ev.Country, ev.Webpage, ev.Facebook}, "\x00")))
	return fmt.Sprintf("%s-%s-%04d-%02d-%s%s", ev.Continent.Slug, name, ev.When.Year, ev.When.Month, hex.EncodeToString(sum[:4]), uidDomain)
}

func location(ev model.Event) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{ev.City, ev.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func eventDescription(ev model.Event) string {
	lines := []string{fmt.Sprintf("%s, %d", ev.DisplayDate, ev.When.Year)}
	if ev.Languages != "" {
		lines = append(lines, "Languages: "+ev.Languages)
	}
	if ev.Email != "" {
		lines = append(lines, "Contact: "+ev.Email)
	}
	return strings.Join(lines, "\n")
}

func primaryLink(ev model.Event) string {
	if ev.Webpage != "" {
		return ev.Webpage
	}
	return ev.Facebook
}
