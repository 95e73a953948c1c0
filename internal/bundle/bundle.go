// Package bundle packages function code for upload.
package bundle

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Zip returns an in-memory zip archive holding the one file at path, stored
// under its base name and marked executable so it can act as a custom
// runtime bootstrap.
func Zip(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	header := &zip.FileHeader{
		Name:   filepath.Base(path),
		Method: zip.Deflate,
	}
	header.SetMode(0755)

	f, err := w.CreateHeader(header)
	if err != nil {
		return nil, fmt.Errorf("failed to add %s to archive: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write %s to archive: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}

	return buf.Bytes(), nil
}
