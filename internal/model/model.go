package model

import "fmt"

// Continent is one of the fixed geographic partitions of the festival
// spreadsheet. Each continent has its own tab.
type Continent struct {
	// Slug is the stable identifier used for grouping, element IDs and URLs.
	Slug string `json:"slug"`
	// Label is the spreadsheet tab name.
	Label string `json:"label"`
	// Title is the human-readable name shown on the page.
	Title string `json:"title"`
}

var continents = []Continent{
	{Slug: "europe", Label: "EUROPE", Title: "Europe"},
	{Slug: "north-america", Label: "NORTH AMERICA", Title: "North America"},
	{Slug: "south-america", Label: "SOUTH AMERICA", Title: "South America"},
	{Slug: "asia", Label: "ASIA", Title: "Asia"},
	{Slug: "australia-pacific", Label: "AUSTRALASIA/PACIFIC", Title: "Australasia/Pacific"},
}

// Continents returns the fixed continent enumeration in display order.
// The returned slice is a copy.
func Continents() []Continent {
	out := make([]Continent, len(continents))
	copy(out, continents)
	return out
}

// ContinentBySlug looks up a continent by its slug.
func ContinentBySlug(slug string) (Continent, bool) {
	for _, c := range continents {
		if c.Slug == slug {
			return c, true
		}
	}
	return Continent{}, false
}

// YearMonth is a calendar month without day precision.
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Before reports whether ym sorts strictly before other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// String formats as YYYY-MM.
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// Event is a dated, upcoming festival ready for rendering.
type Event struct {
	Name      string `json:"name"`
	City      string `json:"city"`
	Country   string `json:"country"`
	Languages string `json:"languages"`
	Webpage   string `json:"webpage,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Email     string `json:"email,omitempty"`

	// Image is the resolved preview image URL; empty when none was found.
	Image string `json:"image,omitempty"`

	// When is the inferred year and month of the festival.
	When YearMonth `json:"when"`
	// DisplayDate is the free-text date from the year column that produced When.Year.
	DisplayDate string `json:"display_date"`

	Continent Continent `json:"continent"`
}
