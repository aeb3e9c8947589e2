// Package fetcher retrieves and reads the source files the ZIP gazetteer is
// built from: HTTP and FTP transports for the Census servers, ZIP archive
// extraction, and streaming readers for CSV and XLSX tables.
package fetcher

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// Fetcher downloads remote files. HTTPFetcher and FTPFetcher implement it
// for the schemes the Census publishes under.
type Fetcher interface {
	// Download fetches the URL and returns the response body. The caller
	// closes it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL into a local file and returns the
	// number of bytes written.
	DownloadToFile(ctx context.Context, url, path string) (int64, error)
}

// writeFile copies r into a newly created file at path.
func writeFile(r io.Reader, path string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "fetcher: create %s", path)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, eris.Wrapf(err, "fetcher: write %s", path)
	}
	return n, nil
}
