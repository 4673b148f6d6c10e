package handlers

import (
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/streamcatalog/backend/internal/logging"
)

const maxUploadBytes = 32 << 20

// FileHandler implements the asset upload endpoint. Uploads land in the
// configured object store under an optional folder prefix.
type FileHandler struct {
	Storage FileStorage
}

// Upload handles POST /api/files requests (admin only).
func (h FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Storage == nil {
		logger.Error("file storage unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "file storage unavailable")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.Warn("invalid multipart upload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.Warn("upload missing file field", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	folder := sanitizeFolder(r.URL.Query().Get("folder"))
	name := uuid.NewString() + strings.ToLower(path.Ext(header.Filename))
	if folder != "" {
		name = folder + "/" + name
	}

	url, err := h.Storage.Save(ctx, name, file)
	if err != nil {
		logger.Error("file upload failed", "error", err, "name", name)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store file")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{
		"url":  url,
		"name": header.Filename,
	})
}

// sanitizeFolder keeps the folder a single flat path segment.
func sanitizeFolder(folder string) string {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	folder = strings.ReplaceAll(folder, "..", "")
	folder = strings.ReplaceAll(folder, "/", "-")
	return folder
}
