package models

import "time"

// Attribute holds the columns shared by tags and ingredients: a name owned by
// a user, unique per (user, name).
type Attribute struct {
	ID        uint   `gorm:"primarykey"`
	UserID    uint   `gorm:"not null;index:,unique,composite:user_name"`
	Name      string `gorm:"size:255;not null;index:,unique,composite:user_name"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Base gives generic code access to the shared columns.
func (a *Attribute) Base() *Attribute { return a }

// AttributePtr is satisfied by *Tag and *Ingredient.
type AttributePtr[T any] interface {
	*T
	Base() *Attribute
}

type Tag struct {
	Attribute
	User User `gorm:"constraint:OnDelete:CASCADE"`
}

type Ingredient struct {
	Attribute
	User User `gorm:"constraint:OnDelete:CASCADE"`
}
