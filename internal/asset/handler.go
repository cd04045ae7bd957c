package asset

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/blake2b"
	_ "golang.org/x/image/webp"

	"github.com/inamate/photoedit/internal/typeid"
)

var (
	ErrNotFound = errors.New("asset not found")
	ErrRevoked  = errors.New("blob url revoked")
)

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Digest string `json:"digest"`
}

// Handler serves asset upload and retrieval endpoints.
type Handler struct {
	dir       string // directory to store asset files
	maxUpload int64

	mu      sync.RWMutex
	digests map[string]string // file name -> blake2b-256 hex
}

// NewHandler creates a new asset handler that stores files in dir.
func NewHandler(dir string, maxUploadMB int64) *Handler {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir, maxUpload: maxUploadMB << 20, digests: make(map[string]string)}
}

// Dir is the directory assets are stored in.
func (h *Handler) Dir() string { return h.dir }

// Upload handles POST /assets/upload (multipart form with "file" field).
// Images are stored re-encoded as PNG.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		http.Error(w, fmt.Sprintf("file too large (max %dMB)", h.maxUpload>>20), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !supportedType(contentType) {
		http.Error(w, "only PNG, JPEG and WebP images are supported", http.StatusBadRequest)
		return
	}

	img, _, err := image.Decode(file)
	if err != nil {
		http.Error(w, "invalid image: "+err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		slog.Error("encode png", "error", err)
		http.Error(w, "failed to encode image", http.StatusInternalServerError)
		return
	}

	assetID := typeid.NewAssetID()
	filename := assetID + ".png"
	if err := os.WriteFile(filepath.Join(h.dir, filename), buf.Bytes(), 0644); err != nil {
		slog.Error("write asset file", "error", err)
		http.Error(w, "failed to save file", http.StatusInternalServerError)
		return
	}

	digest := digestOf(buf.Bytes())
	h.mu.Lock()
	h.digests[filename] = digest
	h.mu.Unlock()

	bounds := img.Bounds()
	resp := UploadResponse{
		ID:     assetID,
		URL:    "/assets/" + filename,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Type:   "png",
		Name:   header.Filename,
		Digest: digest,
	}

	slog.Info("asset uploaded", "id", assetID, "width", resp.Width, "height", resp.Height)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func supportedType(ct string) bool {
	for _, t := range []string{"image/png", "image/jpeg", "image/webp"} {
		if strings.HasPrefix(ct, t) {
			return true
		}
	}
	return false
}

func digestOf(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Serve returns an http.Handler that serves stored asset files. Asset ids
// are unique, so files are immutable and tagged with their content digest.
func (h *Handler) Serve() http.Handler {
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Base(r.URL.Path)
		data, err := os.ReadFile(filepath.Join(h.dir, name))
		if err != nil {
			http.NotFound(w, r)
			return
		}

		h.mu.RLock()
		digest, ok := h.digests[name]
		h.mu.RUnlock()
		if !ok {
			digest = digestOf(data)
			h.mu.Lock()
			h.digests[name] = digest
			h.mu.Unlock()
		}

		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Header().Set("ETag", `"`+digest+`"`)
		http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
	}))
}

// Delete removes an asset file from disk.
func (h *Handler) Delete(assetID string) error {
	if err := typeid.Validate(assetID, typeid.PrefixAsset); err != nil {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	name := assetID + ".png"
	if err := os.Remove(filepath.Join(h.dir, name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, assetID)
		}
		return fmt.Errorf("remove asset %s: %w", assetID, err)
	}
	h.mu.Lock()
	delete(h.digests, name)
	h.mu.Unlock()
	return nil
}

// Remove handles DELETE /assets/{assetId}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	err := h.Delete(mux.Vars(r)["assetId"])
	if errors.Is(err, ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("delete asset", "error", err)
		http.Error(w, "failed to delete asset", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
