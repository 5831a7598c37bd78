package methods

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ShapefilePartSet is the .shp/.shx/.dbf/.prj group for one vector layer.
// All four paths live under the scratch directory and die with it.
type ShapefilePartSet struct {
	Shp string
	Shx string
	Dbf string
	Prj string
}

var partExtensions = []string{".shx", ".dbf", ".prj"}

// ExtractShapefile unpacks an untrusted ZIP into scratchDir and locates a
// complete shapefile part set. Every entry path is validated before anything
// is written to disk.
func ExtractShapefile(archivePath string, scratchDir string) (*ShapefilePartSet, error) {
	if err := UnzipTo(archivePath, scratchDir); err != nil {
		return nil, err
	}
	return FindShapefile(scratchDir)
}

// UnzipTo extracts a ZIP archive into dest. The whole entry list is checked
// for zip-slip paths first, so a hostile entry never touches the filesystem.
func UnzipTo(src string, dest string) error {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if _, err := safeEntryPath(file.Name, dest); err != nil {
			return err
		}
	}
	for _, file := range reader.File {
		if err := extractEntry(file, dest); err != nil {
			return err
		}
	}
	return nil
}

// safeEntryPath resolves an archive entry name under dest and rejects
// absolute paths and parent traversal.
func safeEntryPath(name string, dest string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(filepath.ToSlash(name), "/") {
		return "", fmt.Errorf("%w: absolute path %q", ErrUnsafeArchiveEntry, name)
	}
	fpath := filepath.Join(dest, name)
	if !strings.HasPrefix(fpath, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q escapes the extraction directory", ErrUnsafeArchiveEntry, name)
	}
	return fpath, nil
}

func extractEntry(zf *zip.File, dest string) error {
	fpath, err := safeEntryPath(zf.Name, dest)
	if err != nil {
		return err
	}

	if zf.FileInfo().IsDir() {
		return os.MkdirAll(fpath, os.ModePerm)
	}
	if err := os.MkdirAll(filepath.Dir(fpath), os.ModePerm); err != nil {
		return err
	}
	outFile, err := os.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, zf.Mode())
	if err != nil {
		return err
	}
	rc, err := zf.Open()
	if err != nil {
		outFile.Close()
		return err
	}
	_, err = io.Copy(outFile, rc)
	rc.Close()
	outFile.Close()
	return err
}

// FindShapefile walks root in lexical order and returns the first .shp whose
// .shx/.dbf/.prj siblings exist with the same base name, case-insensitively.
func FindShapefile(root string) (*ShapefilePartSet, error) {
	var found *ShapefilePartSet
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".shp") {
			return nil
		}
		set, ok := completePartSet(path)
		if ok {
			found = set
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: archive must contain .shp, .shx, .dbf and .prj files sharing one name", ErrIncompleteShapefile)
	}
	return found, nil
}

func completePartSet(shpPath string) (*ShapefilePartSet, bool) {
	dir := filepath.Dir(shpPath)
	base := strings.TrimSuffix(filepath.Base(shpPath), filepath.Ext(shpPath))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, false
	}

	siblings := make(map[string]string, len(partExtensions))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if !strings.EqualFold(strings.TrimSuffix(name, ext), base) {
			continue
		}
		for _, want := range partExtensions {
			if strings.EqualFold(ext, want) {
				siblings[want] = filepath.Join(dir, name)
			}
		}
	}
	if len(siblings) != len(partExtensions) {
		return nil, false
	}
	return &ShapefilePartSet{
		Shp: shpPath,
		Shx: siblings[".shx"],
		Dbf: siblings[".dbf"],
		Prj: siblings[".prj"],
	}, true
}
