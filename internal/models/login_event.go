package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LoginMethod identifies how a login attempt authenticated.
type LoginMethod string

const (
	MethodCredentials LoginMethod = "credentials"
	MethodGoogle      LoginMethod = "google"
)

// LoginEvent is an immutable audit record written once per login attempt,
// successful or not. Rows are never updated; removal happens only through
// retention cleanup.
type LoginEvent struct {
	ID     string  `gorm:"primaryKey;type:uuid" json:"id"`
	UserID *string `gorm:"type:uuid;index" json:"user_id"`
	User   *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Email      string      `gorm:"index" json:"email"`
	Successful bool        `gorm:"not null" json:"successful"`
	Method     LoginMethod `gorm:"not null;index" json:"method"`

	FailureReason string `json:"failure_reason,omitempty"`

	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	Device    string `json:"device"`

	Metadata datatypes.JSONMap `json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (e *LoginEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
