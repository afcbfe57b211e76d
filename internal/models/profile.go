package models

// Profile carries business metadata owned 1:1 by a user. It is created in
// the same transaction as its owner and has no independent lifecycle.
type Profile struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	DisplayName string `json:"display_name"`
	Company     string `json:"company"`
	Country     string `json:"country"`
	AvatarURL   string `json:"avatar_url"`
}
