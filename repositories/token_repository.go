package repositories

import (
	"context"
	"errors"

	"recipe-restful/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TokenRepository interface {
	// GetOrCreate returns the user's token, storing newKey() as the token
	// when the user has none yet.
	GetOrCreate(ctx context.Context, userID uint, newKey func() (string, error)) (*models.Token, error)
	FindByKey(ctx context.Context, key string) (*models.Token, error)
}

type tokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) GetOrCreate(ctx context.Context, userID uint, newKey func() (string, error)) (*models.Token, error) {
	var token models.Token
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&token).Error
	if err == nil {
		return &token, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	key, err := newKey()
	if err != nil {
		return nil, err
	}
	// A concurrent login may have stored a token between the lookup and the
	// insert; the unique user_id index keeps it the only one.
	candidate := models.Token{Key: key, UserID: userID}
	if err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&candidate).Error; err != nil {
		return nil, err
	}

	token = models.Token{}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// FindByKey loads the token together with its user.
func (r *tokenRepository) FindByKey(ctx context.Context, key string) (*models.Token, error) {
	if key == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var token models.Token
	if err := r.db.WithContext(ctx).Preload("User").Where(&models.Token{Key: key}).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}
