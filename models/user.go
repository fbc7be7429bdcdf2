package models

import (
	"errors"
	"strings"
	"time"
)

var ErrEmptyEmail = errors.New("users must have an email address")

type User struct {
	ID          uint   `gorm:"primarykey"`
	Email       string `gorm:"size:255;uniqueIndex;not null"`
	Password    string `gorm:"size:255;not null" json:"-"` // bcrypt hash, never exposed
	Name        string `gorm:"size:255;not null;default:''"`
	IsActive    bool   `gorm:"not null"`
	IsStaff     bool   `gorm:"not null"`
	IsSuperuser bool   `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NormalizeEmail lowercases the domain part of an address and keeps the
// local part as written: "Test3@EXAMPLE.com" becomes "Test3@example.com".
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrEmptyEmail
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email, nil
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:]), nil
}
