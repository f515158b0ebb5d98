package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_HTTPScheme(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("routed"))
	}))
	defer srv.Close()

	f := New(Options{})
	body, err := f.Download(context.Background(), srv.URL+"/x")
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck

	data, _ := io.ReadAll(body)
	assert.Equal(t, "routed", string(data))
}

func TestRouter_FileSchemeAndBarePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metros.csv")
	require.NoError(t, os.WriteFile(path, []byte("metro,state_id\n"), 0o644))

	f := New(Options{})

	for _, u := range []string{path, "file://" + path} {
		body, err := f.Download(context.Background(), u)
		require.NoError(t, err, "url: %s", u)
		data, _ := io.ReadAll(body)
		_ = body.Close()
		assert.Equal(t, "metro,state_id\n", string(data))
	}
}

func TestRouter_UnsupportedScheme(t *testing.T) {
	f := New(Options{})
	_, err := f.Download(context.Background(), "gopher://example.org/data")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")
}

func TestRouter_DownloadToFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.csv")
	dst := filepath.Join(dir, "dst.csv")
	require.NoError(t, os.WriteFile(src, []byte("a,b\n1,2\n"), 0o644))

	f := New(Options{})
	n, err := f.DownloadToFile(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))
}
