package sheet

import (
	"strconv"
	"time"
)

// Canonical field names understood by the column mapper.
const (
	FieldName        = "name"
	FieldCity        = "city"
	FieldCountry     = "country"
	FieldMonthNumber = "month-number"
	FieldLanguages   = "languages"
	FieldWebpage     = "webpage"
	FieldFacebook    = "facebook"
	FieldEmail       = "email"
)

// headerAliases maps the header slugs the shared spreadsheet actually uses
// onto the canonical field they stand for. Every canonical field also matches
// itself. A free-text "Month" column is not an alias of month-number.
var headerAliases = map[string]string{
	"festival-name": FieldName,
	"mm":            FieldMonthNumber,
}

var fixedFields = []string{
	FieldName,
	FieldCity,
	FieldCountry,
	FieldMonthNumber,
	FieldLanguages,
	FieldWebpage,
	FieldFacebook,
	FieldEmail,
}

// Mapping maps canonical field names to their column index in a sheet's raw
// grid. A field that is absent from the mapping was not found in the header.
// Mappings are built once per sheet per run and must not be mutated.
type Mapping map[string]int

// Index returns the column index for field.
func (m Mapping) Index(field string) (int, bool) {
	idx, ok := m[field]
	return idx, ok
}

// YearKey returns the dynamic mapping key for a year column.
func YearKey(year int) string {
	return strconv.Itoa(year)
}

// MapColumns builds the column mapping for a header row. The allowed keys are
// the fixed canonical fields plus the year columns for now's year and the
// following year. When two header cells resolve to the same field, the first
// one wins. Unrecognized cells are ignored.
func MapColumns(header []string, now time.Time) Mapping {
	allowed := make(map[string]string, len(fixedFields)+len(headerAliases)+2)
	for _, f := range fixedFields {
		allowed[f] = f
	}
	for alias, f := range headerAliases {
		allowed[alias] = f
	}
	for _, y := range []int{now.Year(), now.Year() + 1} {
		k := YearKey(y)
		allowed[k] = k
	}

	m := make(Mapping)
	for idx, title := range header {
		field, ok := allowed[Slug(title)]
		if !ok {
			continue
		}
		if _, taken := m[field]; taken {
			continue
		}
		m[field] = idx
	}
	return m
}
