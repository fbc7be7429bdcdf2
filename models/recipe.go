package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Recipe struct {
	ID          uint            `gorm:"primarykey"`
	UserID      uint            `gorm:"not null;index"`
	User        User            `gorm:"constraint:OnDelete:CASCADE"`
	Title       string          `gorm:"size:255;not null"`
	TimeMinutes int             `gorm:"not null"`
	Price       decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	Description string          `gorm:"type:text"`
	Link        string          `gorm:"size:255"`
	Tags        []Tag           `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE"`
	Ingredients []Ingredient    `gorm:"many2many:recipe_ingredients;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
