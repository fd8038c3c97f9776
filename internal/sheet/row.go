package sheet

import "strings"

// Row gives field-name access to one raw spreadsheet row. Column order is not
// stable across sheets or years, so callers never index cells directly.
type Row struct {
	cells   []string
	mapping Mapping
}

func NewRow(cells []string, mapping Mapping) Row {
	return Row{cells: cells, mapping: mapping}
}

// Get returns the trimmed value of field. It reports false when the field is
// unmapped, the row is shorter than the mapped column, or the cell is blank.
func (r Row) Get(field string) (string, bool) {
	idx, ok := r.mapping.Index(field)
	if !ok || idx < 0 || idx >= len(r.cells) {
		return "", false
	}
	v := strings.TrimSpace(r.cells[idx])
	if v == "" {
		return "", false
	}
	return v, true
}

// Value is Get without the presence flag.
func (r Row) Value(field string) string {
	v, _ := r.Get(field)
	return v
}
