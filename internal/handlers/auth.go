package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eventcrm/apiserver/internal/auth"
	"github.com/eventcrm/apiserver/internal/services"
	"github.com/eventcrm/apiserver/internal/store"
	"github.com/eventcrm/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// AuthHandler provides the registration, login, and password-reset endpoints.
type AuthHandler struct {
	userService *services.UserService
	tokens      *auth.TokenIssuer
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, tokens *auth.TokenIssuer) *AuthHandler {
	return &AuthHandler{userService: userService, tokens: tokens}
}

// AuthRouter registers the auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, tokens *auth.TokenIssuer) {
	handler := NewAuthHandler(userService, tokens)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/forgot-password", handler.ForgotPassword)
	r.Post("/reset-password", handler.ResetPassword)
	r.With(handler.RequireAuth).Get("/verify-token", handler.VerifyToken)
	r.With(handler.RequireAuth).Post("/logout", handler.Logout)
}

// RequireAuth enforces bearer authentication and injects the subject and
// role into the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		subject, role, err := h.tokens.Verify(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), contextSubjectKey, subject)
		ctx = context.WithValue(ctx, contextRoleKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type RegisterRequest struct {
	Role             string `json:"role"`
	CompanyName      string `json:"companyName"`
	RegistrationCode string `json:"uniqueRegistrationCode"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	PhoneNumber      string `json:"phoneNumber"`
	Password         string `json:"password"`
}

type RegisterResponse struct {
	Message string           `json:"message"`
	User    types.PublicUser `json:"user"`
}

// Register creates a new account and reports its public identity fields.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.Register(r.Context(), services.RegisterInput{
		Role:             req.Role,
		CompanyName:      req.CompanyName,
		RegistrationCode: req.RegistrationCode,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		PhoneNumber:      req.PhoneNumber,
		Password:         req.Password,
	})
	if err != nil {
		var validation *services.ValidationError
		switch {
		case errors.As(err, &validation):
			writeFieldErrors(w, validation.Fields)
		case errors.Is(err, store.ErrDuplicateEmail):
			writeError(w, http.StatusConflict, "Email already in use")
		default:
			writeError(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{
		Message: "Registration successful",
		User:    user.Public(),
	})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token  string           `json:"token"`
	Role   types.Role       `json:"role"`
	UserID string           `json:"userId"`
	User   types.PublicUser `json:"user"`
}

// Login verifies credentials and returns a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:  result.Token,
		Role:   result.User.Role,
		UserID: result.User.ID.Hex(),
		User:   result.User.PublicWithCompany(),
	})
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword issues a reset token and emails it to the account holder.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	if err := h.userService.ForgotPassword(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, services.ErrNotificationFailed):
			writeError(w, http.StatusInternalServerError, "Failed to send reset email")
		default:
			writeError(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password reset email sent successfully"})
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword consumes a reset token and replaces the password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "Token and new password are required")
		return
	}

	if err := h.userService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		var validation *services.ValidationError
		switch {
		case errors.As(err, &validation):
			writeFieldErrors(w, validation.Fields)
		case errors.Is(err, services.ErrInvalidResetToken):
			writeError(w, http.StatusBadRequest, "Invalid or expired reset token")
		default:
			writeError(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password reset successfully"})
}

type VerifyTokenResponse struct {
	Valid bool             `json:"valid"`
	User  types.PublicUser `json:"user"`
}

// VerifyToken echoes the authenticated identity for a valid session token.
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.Profile(r.Context(), subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, VerifyTokenResponse{Valid: true, User: user.PublicWithCompany()})
}

// Logout acknowledges the request. Sessions are stateless: the token stays
// valid until expiry and removal happens client-side.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}
