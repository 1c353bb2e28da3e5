// Package client is a Go consumer of the CRM auth API. It keeps the current
// session in an explicit cache object that rehydrates from storage on
// construction and is cleared on logout.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eventcrm/apiserver/types"
)

// ErrNoSession is returned when a protected call is made while logged out.
var ErrNoSession = errors.New("no active session")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// Client talks to the CRM backend.
type Client struct {
	baseURL  string
	http     *http.Client
	sessions *SessionStore
	session  *Session
}

// New constructs a Client and rehydrates any persisted session.
func New(baseURL string, sessions *SessionStore) (*Client, error) {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		sessions: sessions,
	}
	if sessions != nil {
		session, ok, err := sessions.Load()
		if err != nil {
			return nil, err
		}
		if ok {
			c.session = &session
		}
	}
	return c, nil
}

// Session returns the cached session, if any.
func (c *Client) Session() (Session, bool) {
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// RegisterParams carries the registration form fields.
type RegisterParams struct {
	Role             string `json:"role"`
	CompanyName      string `json:"companyName"`
	RegistrationCode string `json:"uniqueRegistrationCode,omitempty"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	PhoneNumber      string `json:"phoneNumber"`
	Password         string `json:"password"`
}

// Register creates an account and returns its public identity fields.
func (c *Client) Register(ctx context.Context, params RegisterParams) (types.PublicUser, error) {
	var resp struct {
		User types.PublicUser `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/register", params, false, &resp)
	return resp.User, err
}

// Login authenticates and caches the resulting session.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	body := map[string]string{"email": email, "password": password}
	var resp struct {
		Token string           `json:"token"`
		User  types.PublicUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/login", body, false, &resp); err != nil {
		return Session{}, err
	}

	session := Session{Token: resp.Token, User: resp.User}
	c.session = &session
	if c.sessions != nil {
		if err := c.sessions.Save(session); err != nil {
			return Session{}, err
		}
	}
	return session, nil
}

// Logout tells the server goodbye and clears the cached session. The server
// keeps no session state, so the local clear is what ends the session here.
func (c *Client) Logout(ctx context.Context) error {
	if c.session == nil {
		return ErrNoSession
	}
	err := c.do(ctx, http.MethodPost, "/api/logout", nil, true, nil)

	c.session = nil
	if c.sessions != nil {
		if clearErr := c.sessions.Clear(); clearErr != nil && err == nil {
			err = clearErr
		}
	}
	return err
}

// ForgotPassword requests a reset email for the address.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/forgot-password", map[string]string{"email": email}, false, nil)
}

// ResetPassword consumes an emailed reset token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := map[string]string{"token": token, "newPassword": newPassword}
	return c.do(ctx, http.MethodPost, "/api/reset-password", body, false, nil)
}

// VerifyToken checks the cached session against the server.
func (c *Client) VerifyToken(ctx context.Context) (types.PublicUser, error) {
	var resp struct {
		Valid bool             `json:"valid"`
		User  types.PublicUser `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/verify-token", nil, true, &resp)
	return resp.User, err
}

// Profile fetches the full sanitized record of the authenticated user.
func (c *Client) Profile(ctx context.Context) (types.User, error) {
	var user types.User
	err := c.do(ctx, http.MethodGet, "/api/profile", nil, true, &user)
	return user, err
}

// UpdateProfileParams carries the mutable profile fields; empty fields are
// left untouched.
type UpdateProfileParams struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
}

// UpdateProfile mutates the allowed subset of profile fields.
func (c *Client) UpdateProfile(ctx context.Context, params UpdateProfileParams) (types.PublicUser, error) {
	var resp struct {
		User types.PublicUser `json:"user"`
	}
	err := c.do(ctx, http.MethodPut, "/api/profile", params, true, &resp)
	return resp.User, err
}

// ChangePassword replaces the password after verifying the current one.
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	body := map[string]string{"currentPassword": currentPassword, "newPassword": newPassword}
	return c.do(ctx, http.MethodPut, "/api/change-password", body, true, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, authed bool, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		if c.session == nil {
			return ErrNoSession
		}
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
