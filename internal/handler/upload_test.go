package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/rinsr/internal/session"
	"github.com/DukeRupert/rinsr/internal/storage"
)

var uploadPath = regexp.MustCompile(`^/uploads/\d+-[0-9a-f]{8}-My-File\.png$`)

// pngBytes is a PNG signature followed by filler.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 24)...)

func newUploadAPI(t *testing.T, maxBytes int64) (*http.ServeMux, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: dir, BaseURL: "/uploads"}, discardLogger())
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewUploadHandler(store, maxBytes, discardLogger()).RegisterRoutes(mux, nil)
	return mux, dir
}

func multipartRequest(t *testing.T, field, filename string, content []byte, withSession bool) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if withSession {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "tok-123"})
	}
	return req
}

func TestUpload_StoresFileUnderSanitizedName(t *testing.T) {
	mux, dir := newUploadAPI(t, 1<<20)

	rec, env := serve(mux, multipartRequest(t, "file", "My File.png", pngBytes, true))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, env.Success)

	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	url, _ := data["url"].(string)
	assert.Regexp(t, uploadPath, url)
	assert.Equal(t, "image/png", data["contentType"])
	assert.Equal(t, float64(len(pngBytes)), data["size"])
	assert.Equal(t, strings.TrimPrefix(url, "/uploads/"), data["filename"])

	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)
}

func TestUpload_ServeAndDeleteRoundTrip(t *testing.T) {
	mux, _ := newUploadAPI(t, 1<<20)

	_, env := serve(mux, multipartRequest(t, "file", "My File.png", pngBytes, true))
	url := env.Data.(map[string]any)["url"].(string)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, rec.Body.Bytes())

	del := httptest.NewRequest(http.MethodDelete, "/api/upload/"+strings.TrimPrefix(url, "/uploads/"), nil)
	del.AddCookie(&http.Cookie{Name: session.CookieName, Value: "tok-123"})
	delRec, delEnv := serve(mux, del)
	assert.Equal(t, http.StatusOK, delRec.Code)
	assert.True(t, delEnv.Success)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpload_RequiresSession(t *testing.T) {
	mux, dir := newUploadAPI(t, 1<<20)

	rec, env := serve(mux, multipartRequest(t, "file", "My File.png", pngBytes, false))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpload_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		filename string
		content  []byte
		status   int
	}{
		{"missing file field", "image", "a.png", pngBytes, http.StatusBadRequest},
		{"unsupported type", "file", "notes.txt", []byte("hello"), http.StatusBadRequest},
		{"too large", "file", "big.png", bytes.Repeat([]byte{1}, 64), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, _ := newUploadAPI(t, 32)

			rec, env := serve(mux, multipartRequest(t, tt.field, tt.filename, tt.content, true))

			assert.Equal(t, tt.status, rec.Code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Message)
		})
	}
}

func TestUpload_NotMultipart(t *testing.T) {
	mux, _ := newUploadAPI(t, 1<<20)

	rec, _ := serve(mux, apiRequest(http.MethodPost, "/api/upload", `{"file":"x"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeUpload_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("s3cr3t"), 0o600))

	store, err := storage.NewLocalStorage(storage.LocalConfig{
		BasePath: filepath.Join(dir, "uploads"),
		BaseURL:  "/uploads",
	}, discardLogger())
	require.NoError(t, err)
	h := NewUploadHandler(store, 1<<20, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/uploads/x", nil)
	req.SetPathValue("name", "../secret.txt")
	rec := httptest.NewRecorder()

	h.Serve(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "s3cr3t")
}

func TestUpload_LimiterWrapsUploadOnly(t *testing.T) {
	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir(), BaseURL: "/uploads"}, discardLogger())
	require.NoError(t, err)

	var limited []string
	limit := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limited = append(limited, r.Method+" "+r.URL.Path)
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}

	mux := http.NewServeMux()
	NewUploadHandler(store, 1<<20, discardLogger()).RegisterRoutes(mux, limit)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, multipartRequest(t, "file", "a.png", pngBytes, true))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, []string{"POST /api/upload"}, limited)
}

// memoryStore is an in-memory Storage; publicBase empty means the backend
// has no public domain.
type memoryStore struct {
	publicBase string
	objects    map[string][]byte
	types      map[string]string
}

func newMemoryStore(publicBase string) *memoryStore {
	return &memoryStore{publicBase: publicBase, objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStore) Put(ctx context.Context, key string, data io.Reader, opts storage.PutOptions) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[key] = b
	m.types[key] = opts.ContentType
	return nil
}

func (m *memoryStore) Get(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	b, ok := m.objects[key]
	if !ok {
		return nil, storage.ObjectInfo{}, &storage.StorageError{Op: "Get", Key: key, Err: storage.ErrNotFound}
	}
	return io.NopCloser(bytes.NewReader(b)), storage.ObjectInfo{Key: key, Size: int64(len(b)), ContentType: m.types[key]}, nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) PublicURL(key string) (string, bool) {
	if m.publicBase == "" {
		return "", false
	}
	return m.publicBase + "/" + key, true
}

func (m *memoryStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}

func TestUpload_BackendWithoutPublicDomain_ReturnsGatewayPath(t *testing.T) {
	store := newMemoryStore("")
	mux := http.NewServeMux()
	NewUploadHandler(store, 1<<20, discardLogger()).RegisterRoutes(mux, nil)

	rec, env := serve(mux, multipartRequest(t, "file", "My File.png", pngBytes, true))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	url := env.Data.(map[string]any)["url"].(string)
	assert.Regexp(t, uploadPath, url)
	assert.NotContains(t, url, "X-Amz-")

	// The returned path is served by the gateway from the backend.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngBytes, rec.Body.Bytes())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestUpload_BackendWithPublicDomain_ReturnsItsURL(t *testing.T) {
	store := newMemoryStore("https://cdn.rinsr.in")
	mux := http.NewServeMux()
	NewUploadHandler(store, 1<<20, discardLogger()).RegisterRoutes(mux, nil)

	rec, env := serve(mux, multipartRequest(t, "file", "My File.png", pngBytes, true))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := env.Data.(map[string]any)
	assert.Equal(t, "https://cdn.rinsr.in/"+data["filename"].(string), data["url"])
}

func TestUpload_ContentMustMatchExtension(t *testing.T) {
	gif := []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")
	html := []byte("<!DOCTYPE html><html><script>alert(1)</script></html>")

	tests := []struct {
		name     string
		filename string
		content  []byte
	}{
		{"html named as html", "x.html", pngBytes},
		{"html disguised as png", "shot.png", html},
		{"gif named as png", "anim.png", gif},
		{"no extension", "blob", pngBytes},
		{"svg extension without svg", "logo.svg", []byte("just some text")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore("")
			mux := http.NewServeMux()
			NewUploadHandler(store, 1<<20, discardLogger()).RegisterRoutes(mux, nil)

			rec, env := serve(mux, multipartRequest(t, "file", tt.filename, tt.content, true))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, env.Success)
			assert.Empty(t, store.objects)
		})
	}
}

func TestUpload_AcceptsSVGAndGIF(t *testing.T) {
	tests := []struct {
		filename    string
		content     []byte
		contentType string
	}{
		{"logo.svg", []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg"></svg>`), "image/svg+xml"},
		{"anim.GIF", []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"), "image/gif"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			store := newMemoryStore("")
			mux := http.NewServeMux()
			NewUploadHandler(store, 1<<20, discardLogger()).RegisterRoutes(mux, nil)

			rec, env := serve(mux, multipartRequest(t, "file", tt.filename, tt.content, true))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			data := env.Data.(map[string]any)
			assert.Equal(t, tt.contentType, data["contentType"])
			assert.Equal(t, tt.content, store.objects[data["filename"].(string)])
		})
	}
}
