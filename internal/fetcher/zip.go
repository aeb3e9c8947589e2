package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIP unpacks an archive into destDir and returns the paths of the
// extracted files. Entry names that would escape destDir are rejected.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open archive %s", zipPath)
	}
	defer r.Close() //nolint:errcheck

	var extracted []string
	for _, f := range r.File {
		path, err := extractEntry(f, destDir)
		if err != nil {
			return extracted, err
		}
		if path != "" {
			extracted = append(extracted, path)
		}
	}
	return extracted, nil
}

// extractEntry writes one archive entry under destDir, returning the path
// written or "" for directories.
func extractEntry(f *zip.File, destDir string) (string, error) {
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("fetcher: archive entry %q escapes destination", f.Name)
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(destPath, 0o755); err != nil {
			return "", eris.Wrapf(err, "fetcher: create %s", destPath)
		}
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrapf(err, "fetcher: create %s", filepath.Dir(destPath))
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: open entry %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	if _, err := writeFile(rc, destPath); err != nil {
		return "", err
	}
	return destPath, nil
}
