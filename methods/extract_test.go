package methods

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "upload.zip")
	zipFile, err := os.Create(zipPath)
	require.NoError(t, err)
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)
	for name, content := range entries {
		w, err := zipWriter.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zipWriter.Close())
	return zipPath
}

func TestExtractShapefileCompleteSet(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"parcels.shp": "shp-bytes",
		"parcels.shx": "shx-bytes",
		"parcels.dbf": "dbf-bytes",
		"parcels.prj": `AUTHORITY["EPSG","4326"]`,
		"readme.txt":  "not a shapefile",
	})
	scratch := t.TempDir()

	parts, err := ExtractShapefile(zipPath, scratch)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(scratch, "parcels.shp"), parts.Shp)
	assert.Equal(t, filepath.Join(scratch, "parcels.shx"), parts.Shx)
	assert.Equal(t, filepath.Join(scratch, "parcels.dbf"), parts.Dbf)
	assert.Equal(t, filepath.Join(scratch, "parcels.prj"), parts.Prj)
}

func TestExtractShapefileNestedAndMixedCase(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"data/layers/Parcels.SHP": "shp",
		"data/layers/PARCELS.shx": "shx",
		"data/layers/parcels.DBF": "dbf",
		"data/layers/Parcels.prj": "prj",
	})
	scratch := t.TempDir()

	parts, err := ExtractShapefile(zipPath, scratch)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(scratch, "data", "layers", "Parcels.SHP"), parts.Shp)
}

func TestExtractShapefileIncomplete(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"parcels.shp": "shp",
		"parcels.dbf": "dbf",
	})
	_, err := ExtractShapefile(zipPath, t.TempDir())
	assert.ErrorIs(t, err, ErrIncompleteShapefile)
}

func TestUnzipRejectsTraversal(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"fine.txt":         "ok",
		"../../etc/passwd": "evil",
	})
	scratch := t.TempDir()

	err := UnzipTo(zipPath, scratch)
	require.ErrorIs(t, err, ErrUnsafeArchiveEntry)

	// The hostile entry list must be rejected before anything is written.
	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries)
	_, err = os.Stat(filepath.Join(scratch, "..", "..", "etc", "passwd"))
	assert.True(t, os.IsNotExist(err))
}

func TestUnzipRejectsAbsolutePath(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"/etc/passwd": "evil",
	})
	err := UnzipTo(zipPath, t.TempDir())
	assert.ErrorIs(t, err, ErrUnsafeArchiveEntry)
}

func TestFindShapefilePicksFirstCompleteSet(t *testing.T) {
	root := t.TempDir()
	// a/ holds an incomplete set, b/ a complete one.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a"), os.ModePerm))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b"), os.ModePerm))
	for _, name := range []string{"a/lonely.shp", "b/roads.shp", "b/roads.shx", "b/roads.dbf", "b/roads.prj"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}

	parts, err := FindShapefile(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "b", "roads.shp"), parts.Shp)
}
