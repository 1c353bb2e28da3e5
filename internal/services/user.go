package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/eventcrm/apiserver/internal/auth"
	"github.com/eventcrm/apiserver/internal/notify"
	"github.com/eventcrm/apiserver/internal/store"
	"github.com/eventcrm/apiserver/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrInvalidCredentials covers unknown email, deactivated account, and
	// password mismatch alike, so callers cannot tell which failed.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidResetToken signals a reset token that matches no record or
	// has expired.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	// ErrPasswordMismatch signals a wrong current password on change-password.
	ErrPasswordMismatch = errors.New("current password is incorrect")
	// ErrNotificationFailed signals that the reset email could not be
	// dispatched. The persisted token stays valid; the caller may retry.
	ErrNotificationFailed = errors.New("failed to send reset email")
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

// ValidationError carries field-level messages for malformed input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d invalid field(s)", len(e.Fields))
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, update store.ProfileUpdate) (types.User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
	SetResetToken(ctx context.Context, id primitive.ObjectID, verifier string, expires time.Time) error
	ConsumeResetToken(ctx context.Context, verifier string, now time.Time, passwordHash string) (types.User, error)
	RecordLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
}

// UserService orchestrates registration, authentication, password reset, and
// profile management.
type UserService struct {
	repo     UserRepository
	tokens   *auth.TokenIssuer
	notifier notify.Dispatcher
	logger   *slog.Logger
	now      func() time.Time
}

func NewUserService(repo UserRepository, tokens *auth.TokenIssuer, notifier notify.Dispatcher, logger *slog.Logger) *UserService {
	return &UserService{
		repo:     repo,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	Role             string
	CompanyName      string
	RegistrationCode string
	FirstName        string
	LastName         string
	Email            string
	PhoneNumber      string
	Password         string
}

// Register validates the input, creates the account, and dispatches a
// welcome email. Email dispatch is best-effort: a failure is logged and does
// not roll the registration back.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (types.User, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.CompanyName = strings.TrimSpace(input.CompanyName)
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)

	fields := map[string]string{}
	if !emailPattern.MatchString(input.Email) {
		fields["email"] = "Invalid email format"
	}
	if len(input.Password) < 8 {
		fields["password"] = "Password must be at least 8 characters"
	}
	if !phonePattern.MatchString(input.PhoneNumber) {
		fields["phoneNumber"] = "Invalid phone format"
	}
	role := types.Role(strings.TrimSpace(input.Role))
	if !role.Valid() {
		fields["role"] = "Invalid role"
	}
	if input.FirstName == "" {
		fields["firstName"] = "First name is required"
	}
	if input.LastName == "" {
		fields["lastName"] = "Last name is required"
	}
	if input.CompanyName == "" {
		fields["companyName"] = "Company name is required"
	}
	if len(fields) > 0 {
		return types.User{}, &ValidationError{Fields: fields}
	}

	code := strings.TrimSpace(input.RegistrationCode)
	if code == "" {
		generated, err := newRegistrationCode()
		if err != nil {
			return types.User{}, err
		}
		code = generated
	}

	passwordHash, err := auth.HashPassword(input.Password)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Role:             role,
		CompanyName:      input.CompanyName,
		RegistrationCode: code,
		FirstName:        input.FirstName,
		LastName:         input.LastName,
		Email:            input.Email,
		PhoneNumber:      input.PhoneNumber,
		PasswordHash:     passwordHash,
		Active:           true,
	})
	if err != nil {
		return types.User{}, err
	}

	if err := s.notifier.SendWelcome(ctx, user.Email, user.FirstName, user.Role); err != nil {
		s.logger.Error("welcome email dispatch failed", "email", user.Email, "err", err)
	}

	return user, nil
}

// LoginResult bundles the session token and the authenticated user.
type LoginResult struct {
	Token string
	User  types.User
}

// Login authenticates by email and password, stamps the last login, and
// issues a session token.
func (s *UserService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !user.Active {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.repo.RecordLogin(ctx, user.ID, now); err != nil {
		return LoginResult{}, err
	}
	user.LastLogin = &now

	token, err := s.tokens.Issue(user.ID.Hex(), string(user.Role))
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, User: user}, nil
}

// ForgotPassword issues a reset token, persists its verifier, and dispatches
// the reset email. Each request overwrites the single verifier slot, so a new
// token invalidates any prior unused one. The token is committed before the
// email goes out: a dispatch failure leaves it valid and the call retryable.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}

	plaintext, verifier, expires, err := auth.NewResetToken(s.now())
	if err != nil {
		return err
	}
	if err := s.repo.SetResetToken(ctx, user.ID, verifier, expires); err != nil {
		return err
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, user.FirstName, plaintext); err != nil {
		s.logger.Error("reset email dispatch failed", "email", user.Email, "err", err)
		return ErrNotificationFailed
	}
	return nil
}

// ResetPassword consumes a reset token: the new password hash replaces the
// old one and both reset fields are cleared in the same store update.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return &ValidationError{Fields: map[string]string{
			"newPassword": "Password must be at least 8 characters",
		}}
	}
	if strings.TrimSpace(token) == "" {
		return ErrInvalidResetToken
	}

	passwordHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	_, err = s.repo.ConsumeResetToken(ctx, auth.HashResetToken(token), s.now(), passwordHash)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidResetToken
	}
	return err
}

// ChangePassword replaces the stored hash after verifying the current
// password. Setting the same password again is a no-op.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return &ValidationError{Fields: map[string]string{
			"newPassword": "Password must be at least 8 characters",
		}}
	}

	id, err := parseID(userID)
	if err != nil {
		return err
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(currentPassword, user.PasswordHash) {
		return ErrPasswordMismatch
	}
	if auth.CheckPassword(newPassword, user.PasswordHash) {
		return nil
	}

	passwordHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, user.ID, passwordHash)
}

// Profile returns the user record for the given identity.
func (s *UserService) Profile(ctx context.Context, userID string) (types.User, error) {
	id, err := parseID(userID)
	if err != nil {
		return types.User{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile mutates the allowed subset of profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, update store.ProfileUpdate) (types.User, error) {
	id, err := parseID(userID)
	if err != nil {
		return types.User{}, err
	}
	return s.repo.UpdateProfile(ctx, id, update)
}

// Deactivate flips the account inactive so subsequent logins fail.
func (s *UserService) Deactivate(ctx context.Context, userID string) error {
	id, err := parseID(userID)
	if err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, false)
}

func parseID(userID string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(userID))
	if err != nil {
		return primitive.ObjectID{}, store.ErrNotFound
	}
	return id, nil
}

// newRegistrationCode draws a random 8-digit human-facing code.
func newRegistrationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(90000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+10000000), nil
}
