package models

import (
	"time"
)

// User mirrors the account table owned by the companion web application.
// The worker only ever reads pending users and advances their onboarding
// cursor, completion flag and sync timestamp.
type User struct {
	ID                 string     `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email              string     `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	LastPointer        *string    `gorm:"column:last_pointer;type:varchar(255)" json:"lastPointer"`
	OnboardingComplete bool       `gorm:"column:onboarding_complete;default:false;index" json:"onboardingComplete"`
	LastSync           *time.Time `gorm:"column:last_sync;type:timestamp" json:"lastSync"`
	CreatedAt          time.Time  `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
