package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/evandyer/cleanloop/internal/imagestore"
	"github.com/evandyer/cleanloop/internal/oracle"
)

// maxImageBytes caps uploaded photo size.
const maxImageBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func parseLimit(r *http.Request, fallback int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > 100 {
		return fallback
	}
	return n
}

// readImageForm extracts the uploaded photo from a multipart form under the
// given field name, enforcing the accepted image types.
func readImageForm(r *http.Request, field string) (oracle.Image, error) {
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		return oracle.Image{}, err
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return oracle.Image{}, err
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !imagestore.Allowed(contentType) {
		return oracle.Image{}, errUnsupportedImage
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		return oracle.Image{}, err
	}
	return oracle.Image{Data: data, MimeType: contentType}, nil
}

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

const errUnsupportedImage = sentinelError("unsupported image type")
