package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPFetcher downloads files from anonymous FTP servers such as the Census
// Bureau's ftp2.census.gov.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher returns a fetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPFetcher{opts: opts}
}

// splitFTPURL breaks an ftp:// URL into a dial address (host:port, default
// port 21) and the remote file path.
func splitFTPURL(rawURL string) (addr, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrapf(err, "fetcher: parse %s", rawURL)
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("fetcher: not an ftp url: %s", rawURL)
	}
	if u.Path == "" {
		return "", "", eris.Errorf("fetcher: missing path in %s", rawURL)
	}
	addr = u.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "21")
	}
	return addr, u.Path, nil
}

// ftpTransfer keeps the control connection open for the life of the data
// stream and quits it on Close.
type ftpTransfer struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (t *ftpTransfer) Read(p []byte) (int, error) { return t.resp.Read(p) }

func (t *ftpTransfer) Close() error {
	err := t.resp.Close()
	if qerr := t.conn.Quit(); err == nil {
		err = qerr
	}
	return err
}

// Download retrieves the file at an ftp:// URL using anonymous login. The
// returned reader owns the connection; callers must Close it.
func (f *FTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	addr, path, err := splitFTPURL(rawURL)
	if err != nil {
		return nil, err
	}

	conn, err := ftp.Dial(addr,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(f.opts.Timeout),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: dial %s", addr)
	}
	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "fetcher: login %s", addr)
	}
	resp, err := conn.Retr(path)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "fetcher: retrieve %s", path)
	}
	return &ftpTransfer{resp: resp, conn: conn}, nil
}

// DownloadToFile retrieves an ftp:// URL into a local file.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck
	return writeFile(body, path)
}
