package dataset

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/VIDA-NYU/openclean-geo/internal/fetcher"
)

const userAgent = "openclean-geo/1.0"

// downloader is the subset of fetcher.Fetcher both transports provide.
type downloader interface {
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// downloaderFor selects the transport from the URL scheme.
func downloaderFor(scheme string) (downloader, error) {
	switch scheme {
	case "http", "https":
		return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  userAgent,
			Timeout:    10 * time.Minute,
			MaxRetries: 3,
			RateLimiters: map[string]*rate.Limiter{
				censusHost: rate.NewLimiter(5, 5),
			},
		}), nil
	case "ftp":
		return fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: 5 * time.Minute}), nil
	default:
		return nil, eris.Errorf("dataset: unsupported scheme %q", scheme)
	}
}

// Fetch downloads rawURL into destDir and returns the path to the file with
// the wanted extension. ZIP archives are extracted next to the download.
// An existing non-empty download is reused.
func Fetch(ctx context.Context, rawURL, destDir, wantExt string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "dataset: parse url %s", rawURL)
	}

	dl, err := downloaderFor(u.Scheme)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "dataset: create dest dir")
	}

	name := path.Base(u.Path)
	dest := filepath.Join(destDir, name)

	log := zap.L().With(
		zap.String("component", "dataset.download"),
		zap.String("url", rawURL),
	)

	if info, statErr := os.Stat(dest); statErr == nil && info.Size() > 0 {
		log.Debug("download exists, skipping", zap.String("path", dest))
	} else {
		log.Info("downloading source")
		if _, err := dl.DownloadToFile(ctx, rawURL, dest); err != nil {
			return "", eris.Wrapf(err, "dataset: download %s", rawURL)
		}
	}

	if !strings.EqualFold(filepath.Ext(name), ".zip") {
		if strings.EqualFold(filepath.Ext(name), wantExt) {
			return dest, nil
		}
		return "", eris.Errorf("dataset: expected a %s file at %s", wantExt, rawURL)
	}

	extractDir := filepath.Join(destDir, strings.TrimSuffix(name, ".zip"))
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", eris.Wrap(err, "dataset: create extract dir")
	}
	if _, err := fetcher.ExtractZIP(dest, extractDir); err != nil {
		return "", eris.Wrapf(err, "dataset: extract %s", name)
	}

	return findFileByExt(extractDir, wantExt)
}

// findFileByExt finds the first file with the given extension in a directory.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "dataset: read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("dataset: no %s file found in %s", ext, dir)
}
