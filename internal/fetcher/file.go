package fetcher

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// FileFetcher serves file:// URLs and bare paths. Deployments that ship
// the static data files next to the binary go through here.
type FileFetcher struct{}

// NewFileFetcher creates a FileFetcher.
func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

// localPath strips the file:// prefix, leaving the path untouched
// otherwise.
func localPath(rawURL string) string {
	return strings.TrimPrefix(rawURL, "file://")
}

// Download opens the local file behind the URL.
func (f *FileFetcher) Download(_ context.Context, rawURL string) (io.ReadCloser, error) {
	path := localPath(rawURL)
	info, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrapf(err, "file: stat %s", path)
	}
	if info.IsDir() {
		return nil, eris.Errorf("file: %s is a directory", path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "file: open %s", path)
	}
	return file, nil
}

// DownloadToFile copies the local file to path. Returns bytes written.
func (f *FileFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	rc, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer rc.Close() //nolint:errcheck

	return writeToFile(rc, path)
}
