package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/evandyer/cleanloop/internal/imagestore"
)

type ImageHandler struct {
	images *imagestore.Store
	logger *slog.Logger
}

func NewImageHandler(images *imagestore.Store, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{images: images, logger: logger}
}

// Serve streams a stored report image back to the client. Keys are opaque
// UUID-based paths under images/, so a miss means the object was never ours.
func (h *ImageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" || strings.Contains(key, "..") {
		writeError(w, http.StatusBadRequest, "invalid image key")
		return
	}

	data, contentType, err := h.images.Get(r.Context(), "images/"+key)
	if err != nil {
		if errors.Is(err, imagestore.ErrNotConfigured) {
			writeError(w, http.StatusNotFound, "image storage not configured")
			return
		}
		h.logger.Warn("fetch image", "key", key, "error", err)
		writeError(w, http.StatusNotFound, "image not found")
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
