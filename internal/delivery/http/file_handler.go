package http

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"careercompass/internal/usecase"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type FileHandler struct {
	fileUc usecase.FileUsecase
	log    *zap.Logger
}

func NewFileHandler(fileUc usecase.FileUsecase, log *zap.Logger) *FileHandler {
	return &FileHandler{
		fileUc: fileUc,
		log:    log,
	}
}

// Method Get /files/{filename}
// Public categories stream without a token; private categories (resumes,
// chat) require an authenticated principal.
func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	principal := PrincipalFrom(r.Context())

	rc, meta, err := h.fileUc.Open(r.Context(), filename, principal)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", meta.Metadata.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(meta.Length, 10))
	w.Header().Set("Content-Disposition", "inline")
	if _, err := io.Copy(w, rc); err != nil {
		// Headers are out; nothing to do beyond noting the broken transfer.
		h.log.Warn("file stream interrupted", zap.String("filename", filename), zap.Error(err))
	}
}

// Method Get /files/{id}/download
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	principal := PrincipalFrom(r.Context())

	rc, meta, err := h.fileUc.OpenByID(r.Context(), id, principal)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	defer rc.Close()

	name := meta.Metadata.OriginalName
	if name == "" {
		name = meta.Filename
	}

	w.Header().Set("Content-Type", meta.Metadata.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(meta.Length, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := io.Copy(w, rc); err != nil {
		h.log.Warn("file download interrupted", zap.String("id", id), zap.Error(err))
	}
}

// Method Delete /files/{id}
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	principal := PrincipalFrom(r.Context())

	if err := h.fileUc.Delete(r.Context(), id, principal); err != nil {
		writeError(w, h.log, err)
		return
	}

	writeData(w, http.StatusOK, "file deleted", nil)
}

// Method Get /files/user/{userId}
func (h *FileHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userId := chi.URLParam(r, "userId")
	principal := PrincipalFrom(r.Context())

	files, err := h.fileUc.ListByUploader(r.Context(), userId, principal)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeData(w, http.StatusOK, "success", files)
}
