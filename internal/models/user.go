package models

import (
	"time"

	"gorm.io/datatypes"
)

// Role enumerates the access levels a user may carry.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Status enumerates the account lifecycle states relevant to authentication.
type Status string

const (
	// StatusUnverified marks accounts that have not yet confirmed their email.
	StatusUnverified Status = "unverified"
	// StatusActive marks accounts allowed to log in.
	StatusActive Status = "active"
	// StatusInactive marks administratively disabled accounts. Terminal for login.
	StatusInactive Status = "inactive"
)

// User is the identity record for the platform. Password is empty for
// accounts created through federated login.
type User struct {
	BaseModel

	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `json:"-"`

	Role   Role   `gorm:"not null;default:user" json:"role"`
	Status Status `gorm:"not null;default:unverified;index" json:"status"`

	// VerificationToken holds the outstanding email verification token, if any.
	VerificationToken string `json:"-"`

	// ResetToken and ResetTokenExpiresAt gate password resets. Both must
	// match the presented token for a reset to succeed, in addition to the
	// token's own signature check.
	ResetToken          string     `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`

	ConsentFlags datatypes.JSONMap `json:"consent_flags,omitempty"`

	Profile *Profile `gorm:"foreignKey:UserID" json:"profile,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `json:"last_login_ip"`
}

// Sanitized returns a copy safe to hand back to API consumers. The password
// hash and token columns are stripped on every path that returns a user.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}

	cpy := *u
	cpy.Password = ""
	cpy.VerificationToken = ""
	cpy.ResetToken = ""
	cpy.ResetTokenExpiresAt = nil
	return &cpy
}

// CanLogin reports whether the account status permits issuing sessions.
func (u *User) CanLogin() bool {
	return u != nil && u.Status == StatusActive
}
