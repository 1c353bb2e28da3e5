package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eventcrm/apiserver/internal/services"
	"github.com/eventcrm/apiserver/internal/store"
	"github.com/eventcrm/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// ProfileHandler provides the authenticated profile endpoints.
type ProfileHandler struct {
	userService *services.UserService
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(userService *services.UserService) *ProfileHandler {
	return &ProfileHandler{userService: userService}
}

// ProfileRouter registers the profile routes. All routes require auth.
func ProfileRouter(r chi.Router, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewProfileHandler(userService)

	r.With(authMiddleware).Get("/profile", handler.GetProfile)
	r.With(authMiddleware).Put("/profile", handler.UpdateProfile)
	r.With(authMiddleware).Put("/change-password", handler.ChangePassword)
}

// GetProfile returns the authenticated user's record with credential-bearing
// fields stripped by the entity's JSON encoding.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.Profile(r.Context(), subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type UpdateProfileRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	CompanyName string `json:"companyName"`
}

type UpdateProfileResponse struct {
	Message string           `json:"message"`
	User    types.PublicUser `json:"user"`
}

// UpdateProfile mutates the allowed subset of profile fields.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), subject, store.ProfileUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, UpdateProfileResponse{
		Message: "Profile updated successfully",
		User:    user.PublicWithContact(),
	})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword verifies the current password and replaces it.
func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "Current password and new password are required")
		return
	}

	if err := h.userService.ChangePassword(r.Context(), subject, req.CurrentPassword, req.NewPassword); err != nil {
		var validation *services.ValidationError
		switch {
		case errors.As(err, &validation):
			writeFieldErrors(w, validation.Fields)
		case errors.Is(err, services.ErrPasswordMismatch):
			writeError(w, http.StatusBadRequest, "Current password is incorrect")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			writeError(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}
