// Package descriptor resolves a scene identifier into the locations of its assets.
package descriptor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// StatusCompleted is the only status a scene can be viewed in.
const StatusCompleted = "completed"

// Descriptor describes a processed scene.
type Descriptor struct {
	Status             string `json:"status"`
	ImageAssetLocation string `json:"image_url,omitempty"`
	PLYAssetLocation   string `json:"ply_url,omitempty"`
}

// Ready reports whether the scene can be loaded.
func (d Descriptor) Ready() bool {
	return d.Status == StatusCompleted && d.PLYAssetLocation != ""
}

// Lookup resolves scene identifiers.
type Lookup interface {
	Resolve(ctx context.Context, id string) (Descriptor, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, id string) (Descriptor, error)

// Resolve calls f.
func (f LookupFunc) Resolve(ctx context.Context, id string) (Descriptor, error) {
	return f(ctx, id)
}

// maxDescriptorBytes bounds the response body read.
const maxDescriptorBytes = 1 << 20

// HTTPLookup fetches descriptors as JSON from BaseURL/<id>. Failed requests are not retried.
type HTTPLookup struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPLookup returns a lookup against baseURL using http.DefaultClient.
func NewHTTPLookup(baseURL string) *HTTPLookup {
	return &HTTPLookup{BaseURL: baseURL, Client: http.DefaultClient}
}

// Resolve fetches the descriptor for id.
func (l *HTTPLookup) Resolve(ctx context.Context, id string) (Descriptor, error) {
	if id == "" {
		return Descriptor{}, errors.New("empty scene id")
	}
	if l.BaseURL == "" {
		return Descriptor{}, errors.New("no descriptor url configured")
	}
	endpoint := strings.TrimSuffix(l.BaseURL, "/") + "/" + url.PathEscape(id)

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Descriptor{}, errors.Wrapf(err, "bad descriptor url %q", endpoint)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return Descriptor{}, errors.Wrapf(err, "cannot fetch descriptor for %q", id)
	}
	defer func() {
		//nolint:errcheck
		resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Descriptor{}, errors.Errorf("descriptor request for %q failed: %s", id, resp.Status)
	}

	var desc Descriptor
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDescriptorBytes)).Decode(&desc); err != nil {
		return Descriptor{}, errors.Wrapf(err, "malformed descriptor for %q", id)
	}
	return desc, nil
}
