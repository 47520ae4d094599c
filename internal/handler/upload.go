package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/DukeRupert/rinsr/internal/domain"
	"github.com/DukeRupert/rinsr/internal/metrics"
	"github.com/DukeRupert/rinsr/internal/storage"
)

// multipartOverhead is the allowance for form boundaries and headers on top
// of the file itself.
const multipartOverhead = 1 << 20

// UploadsPath is where the gateway serves stored uploads.
const UploadsPath = "/uploads/"

// UploadHandler stores dashboard uploads (service images, banners, avatars)
// and serves them back. It is the one API route that never talks to the
// upstream.
type UploadHandler struct {
	storage  storage.Storage
	maxBytes int64
	logger   *slog.Logger
	now      func() time.Time
}

// NewUploadHandler creates a new UploadHandler accepting files of at most
// maxBytes.
func NewUploadHandler(store storage.Storage, maxBytes int64, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		storage:  store,
		maxBytes: maxBytes,
		logger:   logger,
		now:      time.Now,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers the upload routes with the provided mux.
// limitUpload wraps the upload route (rate limiting); it may be nil.
//
// Routes:
// - POST   /api/upload         -> Upload
// - DELETE /api/upload/{name}  -> Delete
// - GET    /uploads/{name}     -> Serve (UploadsPath)
func (h *UploadHandler) RegisterRoutes(mux *http.ServeMux, limitUpload func(http.Handler) http.Handler) {
	upload := requireSession(h.logger, nil, h.Upload)
	if limitUpload != nil {
		upload = limitUpload(upload)
	}
	mux.Handle("POST /api/upload", upload)
	mux.Handle("DELETE /api/upload/{name}", requireSession(h.logger, nil, h.Delete))
	mux.HandleFunc("GET "+UploadsPath+"{name}", h.Serve)
}

// =============================================================================
// POST /api/upload
// =============================================================================

// Upload stores the multipart field "file" under
// "<unix millis>-<random>-<sanitized name>" and returns a permanent URL:
// the backend's public address when it has one, the gateway's uploads path
// otherwise.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request, _ string) {
	const op = "upload.create"

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.UploadFailed("too_large")
			ErrorResponse(w, r, h.logger, domain.TooLarge(op, h.tooLargeMessage()))
			return
		}
		metrics.UploadFailed("invalid")
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Failed to parse upload form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		metrics.UploadFailed("invalid")
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "No file uploaded"))
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		metrics.UploadFailed("too_large")
		ErrorResponse(w, r, h.logger, domain.TooLarge(op, h.tooLargeMessage()))
		return
	}

	head := make([]byte, storage.SniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		metrics.UploadFailed("invalid")
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Failed to read upload"))
		return
	}
	head = head[:n]

	key := storage.UploadKey(h.now(), header.Filename)

	contentType, err := storage.VerifyUpload(key, head)
	if err != nil {
		metrics.UploadFailed("unsupported_type")
		h.logger.Info("upload rejected",
			"filename", header.Filename,
			"declared_type", header.Header.Get("Content-Type"),
		)
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Unsupported file type. Upload an image (JPEG, PNG, WebP, GIF, SVG or AVIF) with a matching file extension."))
		return
	}

	err = h.storage.Put(r.Context(), key, io.MultiReader(bytes.NewReader(head), file), storage.PutOptions{
		ContentType: contentType,
		MaxSize:     h.maxBytes,
		Public:      true,
	})
	if err != nil {
		if storage.IsTooLarge(err) {
			metrics.UploadFailed("too_large")
			ErrorResponse(w, r, h.logger, domain.TooLarge(op, h.tooLargeMessage()))
			return
		}
		metrics.UploadFailed("error")
		ErrorResponse(w, r, h.logger, domain.Server(err, op, "Failed to store file"))
		return
	}

	url, ok := h.storage.PublicURL(key)
	if !ok {
		url = UploadsPath + key
	}

	metrics.UploadStored(header.Size)
	h.logger.Info("file uploaded",
		"key", key,
		"size", header.Size,
		"content_type", contentType,
	)

	respondOK(w, http.StatusOK, domain.UploadResult{
		URL:         url,
		Filename:    key,
		Size:        header.Size,
		ContentType: contentType,
	}, "File uploaded successfully")
}

func (h *UploadHandler) tooLargeMessage() string {
	return fmt.Sprintf("File exceeds the %d MB upload limit", h.maxBytes>>20)
}

// =============================================================================
// DELETE /api/upload/{name}
// =============================================================================

// Delete removes a previously uploaded file. Deleting a missing file succeeds.
func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request, _ string) {
	const op = "upload.delete"

	key := r.PathValue("name")
	if err := h.storage.Delete(r.Context(), key); err != nil {
		if storage.IsInvalidKey(err) {
			ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid file name"))
			return
		}
		ErrorResponse(w, r, h.logger, domain.Server(err, op, "Failed to delete file"))
		return
	}

	h.logger.Info("file deleted", "key", key)

	respondOK(w, http.StatusOK, nil, "File deleted successfully")
}

// =============================================================================
// GET /uploads/{name}
// =============================================================================

// Serve streams an uploaded file. Upload keys are unique, so responses may
// be cached indefinitely.
func (h *UploadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("name")

	body, info, err := h.storage.Get(r.Context(), key)
	if err != nil {
		if storage.IsNotFound(err) || storage.IsInvalidKey(err) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("failed to read upload", "key", key, "error", err)
		http.Error(w, "Failed to read file", http.StatusInternalServerError)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", info.ContentType)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	// SVG may carry script; never let an upload execute in the dashboard origin.
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")

	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("failed to stream upload", "key", key, "error", err)
	}
}
