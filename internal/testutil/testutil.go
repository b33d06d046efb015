// Package testutil provides testing utilities for parley tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Iron-Ham/parley/internal/api"
	"github.com/Iron-Ham/parley/internal/credential"
	"github.com/Iron-Ham/parley/internal/testutil/fakeapi"
)

// StartAPI serves f from an in-process fake chat API and returns the
// server together with a client pointed at it. Both are torn down when the
// test completes, including idle keep-alive connections, so goroutine leak
// checks stay clean.
func StartAPI(t *testing.T, f fakeapi.Fixture, opts ...api.Option) (*fakeapi.Server, *api.Client) {
	t.Helper()

	srv := fakeapi.New(f)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.CloseClientConnections()
		ts.Close()
	})

	transport := &http.Transport{}
	t.Cleanup(transport.CloseIdleConnections)

	opts = append([]api.Option{api.WithHTTPClient(&http.Client{Transport: transport})}, opts...)
	return srv, api.New(ts.URL, opts...)
}

// TempStore returns a file credential store inside the test's temp dir.
func TempStore(t *testing.T) *credential.FileStore {
	t.Helper()
	return credential.NewFileStore(filepath.Join(t.TempDir(), "token.json"))
}
