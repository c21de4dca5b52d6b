package domain

import (
	"errors"
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleParent = "parent"
)

var ErrInvalidCredentials = errors.New("invalid username/email or password")
var ErrInvalidQRCode = errors.New("invalid or expired QR code")
var ErrUserNotFound = errors.New("user not found")
var ErrUsernameTaken = errors.New("username already taken")
var ErrEmailTaken = errors.New("email already registered")
var ErrPasswordMismatch = errors.New("passwords do not match")
var ErrInvalidRole = errors.New("invalid role")
var ErrForbidden = errors.New("access forbidden")
var ErrUnauthorized = errors.New("authentication required")

// User models an account at the center: a parent, a staff member, or an
// administrator. PasswordHash and QRToken are bearer secrets and are never
// serialized to clients.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	QRToken      string    `json:"-"`
	QREnabled    bool      `json:"qr_enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleStaff, RoleParent:
		return true
	}
	return false
}
