package bundle

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootstrap")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho backup\n"), 0o755))

	data, err := Zip(path)
	require.NoError(t, err)

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, r.File, 1)

	entry := r.File[0]
	assert.Equal(t, "bootstrap", entry.Name)
	assert.Equal(t, os.FileMode(0o755), entry.Mode().Perm())

	rc, err := entry.Open()
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\necho backup\n", string(content))
}

func TestZipMissingFile(t *testing.T) {
	_, err := Zip(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
