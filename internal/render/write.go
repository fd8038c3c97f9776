package render

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"

	"improvfest/internal/festival"
	"improvfest/internal/fileutil"
)

// Artifact file names inside the output directory.
const (
	IndexFile = "index.html"
	ICSFile   = "festivals.ics"
	JSONFile  = "festivals.json"
)

// WriteSite renders every artifact and writes them into dir. Each file is
// replaced atomically; on error, files already in dir are left as they were.
func WriteSite(dir string, site Site, res festival.Result) error {
	if dir == "" {
		return errors.New("render: output dir is empty")
	}

	var page bytes.Buffer
	if err := HTML(&page, site, res); err != nil {
		return fmt.Errorf("render: html: %w", err)
	}
	doc, err := JSON(res)
	if err != nil {
		return fmt.Errorf("render: json: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{JSONFile, doc},
		{ICSFile, []byte(ICS(site, res))},
		{IndexFile, page.Bytes()},
	}
	for _, f := range files {
		if err := fileutil.WriteAtomic(filepath.Join(dir, f.name), f.data, 0o755, 0o644); err != nil {
			return fmt.Errorf("render: write %s: %w", f.name, err)
		}
	}
	return nil
}
