package asset

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const blobPrefix = "blob:"

// Loader fetches and decodes images for the editor store. It resolves
// stored assets (/assets/...), remote http(s) URLs, data: URLs and blob:
// URLs registered in memory. Blob URLs are released once their image has
// been decoded.
type Loader struct {
	dir    string
	base   string // when set, stored assets are fetched from base + "/assets/"
	client *http.Client

	mu    sync.Mutex
	blobs map[string][]byte // nil value marks a revoked url
}

type LoaderOption func(*Loader)

// WithAssetBaseURL fetches /assets/ urls over http from base instead of
// reading the asset directory. Browser builds have no local disk.
func WithAssetBaseURL(base string) LoaderOption {
	return func(l *Loader) { l.base = strings.TrimSuffix(base, "/") }
}

// NewLoader creates a loader reading stored assets from dir and fetching
// remote images with the given timeout.
func NewLoader(dir string, timeout time.Duration, opts ...LoaderOption) *Loader {
	l := &Loader{
		dir:    dir,
		client: &http.Client{Timeout: timeout},
		blobs:  make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RegisterBlob keeps data in memory and returns a blob: url for it.
func (l *Loader) RegisterBlob(data []byte) string {
	u := blobPrefix + uuid.NewString()
	l.mu.Lock()
	l.blobs[u] = bytes.Clone(data)
	l.mu.Unlock()
	return u
}

// Owns reports whether u is a live blob url allocated by this loader.
func (l *Loader) Owns(u string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, ok := l.blobs[u]
	return ok && data != nil
}

// Release revokes a blob url and frees its data.
func (l *Loader) Release(u string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.blobs[u]; ok {
		l.blobs[u] = nil
	}
}

// Load fetches and decodes the image behind u.
func (l *Loader) Load(ctx context.Context, u string) (image.Image, error) {
	data, err := l.fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", u, err)
	}
	return img, nil
}

func (l *Loader) fetch(ctx context.Context, u string) ([]byte, error) {
	switch {
	case u == "":
		return nil, fmt.Errorf("source url is required")
	case strings.HasPrefix(u, blobPrefix):
		return l.blob(u)
	case strings.HasPrefix(u, "data:"):
		return decodeDataURL(u)
	case strings.HasPrefix(u, "/assets/") && l.base != "":
		return l.remote(ctx, l.base+u)
	case strings.HasPrefix(u, "/assets/"):
		return l.stored(strings.TrimPrefix(u, "/assets/"))
	case strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "https://"):
		return l.remote(ctx, u)
	}
	return nil, fmt.Errorf("unsupported image url %q", u)
}

func (l *Loader) blob(u string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, ok := l.blobs[u]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, u)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrRevoked, u)
	}
	return data, nil
}

func (l *Loader) stored(name string) ([]byte, error) {
	name = filepath.Base(name)
	data, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read asset %s: %w", name, err)
	}
	return data, nil
}

func (l *Loader) remote(ctx context.Context, u string) ([]byte, error) {
	if _, err := url.Parse(u); err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, u)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", u, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	return data, nil
}

// decodeDataURL handles base64 data: urls, the form canvases export to.
func decodeDataURL(u string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(u, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("unsupported data url")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return data, nil
}
