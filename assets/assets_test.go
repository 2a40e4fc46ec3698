package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestOpenLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.ply")
	test.That(t, os.WriteFile(path, []byte("ply"), 0o600), test.ShouldBeNil)

	opener := NewDefaultOpener()
	data, err := ReadAll(context.Background(), opener, path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, "ply")

	data, err = ReadAll(context.Background(), opener, "file://"+path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, "ply")

	_, err = ReadAll(context.Background(), opener, filepath.Join(dir, "missing.ply"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = opener.Open(context.Background(), "")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = opener.Open(context.Background(), "ftp://example.com/scene.ply")
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported asset scheme")
}

func TestOpenHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scene.ply" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("remote"))
	}))
	defer server.Close()

	opener := &DefaultOpener{Client: server.Client()}
	data, err := ReadAll(context.Background(), opener, server.URL+"/scene.ply")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, "remote")

	_, err = ReadAll(context.Background(), opener, server.URL+"/other.ply")
	test.That(t, err.Error(), test.ShouldContainSubstring, "404")
}
