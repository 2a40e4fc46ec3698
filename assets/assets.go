// Package assets opens scene and image assets by location: a local path, a file:// URL or an
// http(s):// URL.
package assets

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Opener opens an asset location for reading.
type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, location string) (io.ReadCloser, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	return f(ctx, location)
}

// DefaultOpener reads local files and fetches http(s) URLs with its client.
type DefaultOpener struct {
	Client *http.Client
}

// NewDefaultOpener returns an opener backed by http.DefaultClient.
func NewDefaultOpener() *DefaultOpener {
	return &DefaultOpener{Client: http.DefaultClient}
}

// Open returns a reader for the location. Remote responses other than 2xx are errors.
func (o *DefaultOpener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if location == "" {
		return nil, errors.New("empty asset location")
	}
	parsed, err := url.Parse(location)
	if err != nil || parsed.Scheme == "" || len(parsed.Scheme) == 1 {
		// No scheme, or a windows drive letter.
		return openFile(location)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "file":
		return openFile(parsed.Path)
	case "http", "https":
		return o.fetch(ctx, parsed.String())
	default:
		return nil, errors.Errorf("unsupported asset scheme %q", parsed.Scheme)
	}
}

func openFile(path string) (io.ReadCloser, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open asset %q", path)
	}
	return f, nil
}

func (o *DefaultOpener) fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "bad asset url %q", location)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot fetch asset %q", location)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		//nolint:errcheck
		resp.Body.Close()
		return nil, errors.Errorf("fetching asset %q: unexpected status %s", location, resp.Status)
	}
	return resp.Body, nil
}

// ReadAll opens the location with opener and reads it fully.
func ReadAll(ctx context.Context, opener Opener, location string) ([]byte, error) {
	rc, err := opener.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "reading asset %q", location)
	}
	return data, nil
}
