package models

import "time"

// Token is the API credential of a user. There is at most one per user; it
// is created on the first successful login and handed out again afterwards.
type Token struct {
	Key       string `gorm:"primaryKey;size:512"`
	UserID    uint   `gorm:"not null;uniqueIndex"`
	User      User   `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}
