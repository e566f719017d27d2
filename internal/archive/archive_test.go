package archive

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b_certificate.png": "bbb",
		"a_certificate.png": "aaa",
		"notes.txt":         "skip me",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.png"), 0o755))

	dest := filepath.Join(dir, "certificates.zip")
	names, err := Create(dir, dest, ".png")
	require.NoError(t, err)
	assert.Equal(t, []string{"a_certificate.png", "b_certificate.png"}, names)

	zr, err := zip.OpenReader(dest)
	require.NoError(t, err)
	defer zr.Close()

	require.Len(t, zr.File, 2)
	for i, f := range zr.File {
		assert.Equal(t, names[i], f.Name)
		assert.Equal(t, zip.Deflate, f.Method)

		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, files[f.Name], string(body))
	}
}

func TestCreateEmptyDir(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "certificates.zip")

	names, err := Create(dir, dest, ".png")
	require.NoError(t, err)
	assert.Empty(t, names)

	zr, err := zip.OpenReader(dest)
	require.NoError(t, err)
	defer zr.Close()
	assert.Empty(t, zr.File)
}

func TestCreateMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	_, err := Create(dir, filepath.Join(t.TempDir(), "out.zip"), ".png")
	assert.Error(t, err)
}
