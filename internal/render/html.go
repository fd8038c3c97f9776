package render

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"regexp"
	"strings"
	"time"

	"improvfest/internal/festival"
	"improvfest/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTmpl = template.Must(
	template.New("index.html.tmpl").
		Funcs(template.FuncMap{
			"location":  location,
			"hrefSafe":  hrefSafe,
			"monthSlug": func(ym model.YearMonth) string { return ym.String() },
		}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

// Site holds the page-level copy.
type Site struct {
	Title       string
	Description string
	// SheetURL links to the shared spreadsheet; omitted when empty.
	SheetURL string
}

// DefaultContinent is the tab shown when the page loads.
const DefaultContinent = "europe"

type pageData struct {
	Site        Site
	GeneratedAt time.Time
	Default     string
	Groups      []festival.Group
	Months      []MonthEntry
}

// HTML renders the static festival page.
func HTML(w io.Writer, site Site, res festival.Result) error {
	return pageTmpl.Execute(w, pageData{
		Site:        site,
		GeneratedAt: res.Now,
		Default:     DefaultContinent,
		Groups:      res.ByContinent(),
		Months:      MonthIndex(res.Now, res.Events),
	})
}

type jsonDoc struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Continents  []festival.Group `json:"continents"`
	Failed      []string         `json:"failed,omitempty"`
}

// JSON renders the grouped festivals for machine consumers.
func JSON(res festival.Result) ([]byte, error) {
	doc := jsonDoc{
		GeneratedAt: res.Now,
		Continents:  res.ByContinent(),
	}
	for _, c := range res.Failed {
		doc.Failed = append(doc.Failed, c.Slug)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// schemePrefix matches a leading "scheme:" that is not a host:port pair.
var schemePrefix = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:([^0-9]|[0-9]+[^0-9/])`)

// hrefSafe drops spreadsheet links that are not plain web URLs. Bare
// domains get an https:// prefix.
func hrefSafe(raw string) string {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	switch {
	case s == "":
		return ""
	case strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "http://"):
		return s
	case strings.Contains(s, "://"), strings.Contains(s, " "), schemePrefix.MatchString(s):
		return ""
	default:
		return "https://" + s
	}
}
