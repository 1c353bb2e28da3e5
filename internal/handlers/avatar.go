package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/eventcrm/apiserver/internal/storage"
	"github.com/go-chi/chi/v5"
)

const (
	maxAvatarBytes  = 5 << 20
	formFieldAvatar = "avatar"
)

// AvatarHandler stores and serves profile pictures from object storage.
type AvatarHandler struct {
	storage *storage.Storage
}

// NewAvatarHandler constructs an AvatarHandler.
func NewAvatarHandler(st *storage.Storage) *AvatarHandler {
	return &AvatarHandler{storage: st}
}

// AvatarRouter registers the avatar routes. All routes require auth.
func AvatarRouter(r chi.Router, st *storage.Storage, authMiddleware func(http.Handler) http.Handler) {
	handler := NewAvatarHandler(st)

	r.With(authMiddleware).Post("/profile/avatar", handler.Upload)
	r.With(authMiddleware).Get("/profile/avatar", handler.Fetch)
	r.With(authMiddleware).Delete("/profile/avatar", handler.Delete)
}

// Upload stores the multipart "avatar" file under the authenticated identity.
func (h *AvatarHandler) Upload(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile(formFieldAvatar)
	if err != nil {
		writeError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	if header.Size > maxAvatarBytes {
		writeError(w, http.StatusBadRequest, "avatar exceeds the 5 MiB limit")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "avatar must be an image")
		return
	}

	if err := h.storage.Put(r.Context(), avatarKey(subject), file, header.Size, contentType); err != nil {
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Avatar uploaded successfully"})
}

// Fetch streams the stored avatar back to the client.
func (h *AvatarHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reader, contentType, err := h.storage.Get(r.Context(), avatarKey(subject))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeError(w, http.StatusNotFound, "No avatar uploaded")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	defer reader.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

// Delete removes the stored avatar.
func (h *AvatarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.storage.Delete(r.Context(), avatarKey(subject)); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Avatar deleted successfully"})
}

func avatarKey(subject string) string {
	return "avatars/" + subject
}
