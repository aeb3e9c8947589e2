package fetcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFTPURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantAddr string
		wantPath string
		wantErr  bool
	}{
		{
			name:     "default port",
			url:      "ftp://ftp2.census.gov/geo/tiger/GENZ2024/shp/cb_2024_us_zcta520_500k.zip",
			wantAddr: "ftp2.census.gov:21",
			wantPath: "/geo/tiger/GENZ2024/shp/cb_2024_us_zcta520_500k.zip",
		},
		{
			name:     "explicit port kept",
			url:      "ftp://mirror.example.com:2121/pub/data.txt",
			wantAddr: "mirror.example.com:2121",
			wantPath: "/pub/data.txt",
		},
		{
			name:    "wrong scheme",
			url:     "https://ftp2.census.gov/geo/file.zip",
			wantErr: true,
		},
		{
			name:    "missing path",
			url:     "ftp://ftp2.census.gov",
			wantErr: true,
		},
		{
			name:    "unparseable",
			url:     "://bad",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, path, err := splitFTPURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, addr)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestNewFTPFetcher_Defaults(t *testing.T) {
	f := NewFTPFetcher(FTPOptions{})
	assert.Equal(t, 30*time.Second, f.opts.Timeout)

	f = NewFTPFetcher(FTPOptions{Timeout: time.Minute})
	assert.Equal(t, time.Minute, f.opts.Timeout)
}

func TestFTPDownload_BadURL(t *testing.T) {
	f := NewFTPFetcher(FTPOptions{})

	// Scheme check happens before any dial.
	_, err := f.Download(context.Background(), "https://example.com/file.zip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an ftp url")
}
