// Package fetcher retrieves the dashboard's static source files over
// HTTP, FTP or the local filesystem and decodes the formats they arrive
// in (CSV, JSON, XLSX, ZIP archives).
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher downloads one source file. Inputs are static; there is no
// conditional-refresh surface here.
type Fetcher interface {
	// Download fetches the URL and returns the body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path.
	// Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Options configures the composite fetcher returned by New.
type Options struct {
	HTTP HTTPOptions
	FTP  FTPOptions
}

// New returns a Fetcher that routes by URL scheme: http/https, ftp, and
// file (or a bare path) for data bundled alongside the binary.
func New(opts Options) Fetcher {
	return &router{
		http: NewHTTPFetcher(opts.HTTP),
		ftp:  NewFTPFetcher(opts.FTP),
		file: NewFileFetcher(),
	}
}

type router struct {
	http *HTTPFetcher
	ftp  *FTPFetcher
	file *FileFetcher
}

func (r *router) pick(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %q", rawURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return r.http, nil
	case "ftp":
		return r.ftp, nil
	case "file", "":
		return r.file, nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q in %q", u.Scheme, rawURL)
	}
}

func (r *router) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f, err := r.pick(rawURL)
	if err != nil {
		return nil, err
	}
	return f.Download(ctx, rawURL)
}

func (r *router) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	f, err := r.pick(rawURL)
	if err != nil {
		return 0, err
	}
	return f.DownloadToFile(ctx, rawURL, path)
}

// writeToFile drains r into a freshly created file at path.
func writeToFile(r io.Reader, path string) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, r)
	if err != nil {
		return n, eris.Wrap(err, "write file")
	}
	return n, nil
}
