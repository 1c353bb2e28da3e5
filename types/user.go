package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role classifies an account within the CRM.
type Role string

const (
	RoleRepresentative Role = "Representative"
	RoleSupplier       Role = "Supplier"
	RoleClient         Role = "Client"
)

// Valid reports whether the role is one of the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleRepresentative, RoleSupplier, RoleClient:
		return true
	default:
		return false
	}
}

// User represents an account in the system.
// It contains identity, credential, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID primitive.ObjectID `json:"id" bson:"_id,omitempty"`

	// Role indicates the user's position within the CRM.
	Role Role `json:"role" bson:"role"`

	// CompanyName is the company the user registered under.
	CompanyName string `json:"companyName" bson:"companyName"`

	// RegistrationCode is a unique human-facing code assigned at registration.
	RegistrationCode string `json:"uniqueRegistrationCode" bson:"uniqueRegistrationCode"`

	FirstName string `json:"firstName" bson:"firstName"`
	LastName  string `json:"lastName" bson:"lastName"`

	// Email is the user's unique email address.
	Email string `json:"email" bson:"email"`

	PhoneNumber string `json:"phoneNumber" bson:"phoneNumber"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" bson:"password"`

	// EmailVerified reports whether the email address has been confirmed.
	EmailVerified bool `json:"isEmailVerified" bson:"isEmailVerified"`

	// ResetTokenHash holds the sha256 verifier of an outstanding
	// password-reset token. Set and cleared together with ResetTokenExpires.
	ResetTokenHash    string     `json:"-" bson:"resetPasswordToken,omitempty"`
	ResetTokenExpires *time.Time `json:"-" bson:"resetPasswordExpires,omitempty"`

	// LastLogin is the timestamp of the most recent successful login.
	LastLogin *time.Time `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`

	// Active gates authentication: deactivated accounts cannot log in.
	Active bool `json:"isActive" bson:"isActive"`

	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" bson:"updatedAt"`
}

// PublicUser is the identity subset safe to return from auth endpoints.
type PublicUser struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	CompanyName string `json:"companyName,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// Public returns the identity fields of the user without credential data.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID.Hex(),
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

// PublicWithCompany is the login/verify-token response shape, which also
// carries the company name.
func (u User) PublicWithCompany() PublicUser {
	p := u.Public()
	p.CompanyName = u.CompanyName
	return p
}

// PublicWithContact additionally carries the phone number, used by the
// profile-update response.
func (u User) PublicWithContact() PublicUser {
	p := u.PublicWithCompany()
	p.PhoneNumber = u.PhoneNumber
	return p
}
