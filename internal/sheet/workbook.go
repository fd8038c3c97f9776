package sheet

import (
	"context"
	"errors"

	"github.com/xuri/excelize/v2"
)

// WorkbookSource reads tabs from a local .xlsx file, typically a download of
// the shared spreadsheet. The file is reopened on every Fetch so edits are
// picked up between runs.
type WorkbookSource struct {
	path string
}

func NewWorkbookSource(path string) (*WorkbookSource, error) {
	if path == "" {
		return nil, errors.New("sheet: workbook path is empty")
	}
	return &WorkbookSource{path: path}, nil
}

func (s *WorkbookSource) Fetch(ctx context.Context, label string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, &FetchError{Label: label, Err: err}
	}
	defer f.Close()

	rows, err := f.GetRows(label)
	if err != nil {
		return nil, &FetchError{Label: label, Err: err}
	}
	return rows, nil
}
