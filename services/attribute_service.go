package services

import (
	"context"
	"errors"
	"strings"

	"recipe-restful/apperrors"
	"recipe-restful/models"
	"recipe-restful/repositories"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AttributeService manages a user's tags or ingredients. Records are created
// only through recipe writes; this service lists, renames and deletes them.
type AttributeService[T any] interface {
	List(ctx context.Context, userID uint, assignedOnly bool) ([]T, error)
	Update(ctx context.Context, userID, id uint, input *AttributeInput, partial bool) (*T, error)
	Delete(ctx context.Context, userID, id uint) error
}

type (
	TagService        = AttributeService[models.Tag]
	IngredientService = AttributeService[models.Ingredient]
)

type AttributeInput struct {
	Name *string `json:"name" validate:"omitempty,max=255"`
}

type attributeService[T any, PT models.AttributePtr[T]] struct {
	repo   repositories.AttributeRepository[T]
	kind   string // "tag" or "ingredient", used in messages and logs
	logger *zap.Logger
}

func NewTagService(repo repositories.TagRepository, logger *zap.Logger) TagService {
	return &attributeService[models.Tag, *models.Tag]{repo: repo, kind: "tag", logger: logger}
}

func NewIngredientService(repo repositories.IngredientRepository, logger *zap.Logger) IngredientService {
	return &attributeService[models.Ingredient, *models.Ingredient]{repo: repo, kind: "ingredient", logger: logger}
}

func (s *attributeService[T, PT]) List(ctx context.Context, userID uint, assignedOnly bool) ([]T, error) {
	items, err := s.repo.ListByUser(ctx, userID, assignedOnly)
	if err != nil {
		return nil, apperrors.NewInternal("Database error listing "+s.kind+"s", err)
	}
	return items, nil
}

// Update renames the record. Names stay unique per user.
func (s *attributeService[T, PT]) Update(ctx context.Context, userID, id uint, input *AttributeInput, partial bool) (*T, error) {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		input.Name = &name
	}
	fields, err := validateStruct(input)
	if err != nil {
		return nil, err
	}
	if input.Name == nil && !partial {
		fields.add("name", msgRequired)
	}
	if input.Name != nil && *input.Name == "" {
		fields.add("name", msgBlank)
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	item, err := s.find(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if input.Name == nil {
		return item, nil
	}

	name := *input.Name
	existing, err := s.repo.FindByName(ctx, userID, name)
	switch {
	case err == nil && PT(existing).Base().ID != id:
		return nil, s.nameTaken()
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperrors.NewInternal("Database error checking "+s.kind+" name", err)
	}

	PT(item).Base().Name = name
	if err := s.repo.Update(ctx, item); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.nameTaken()
		}
		return nil, apperrors.NewInternal("Failed to update "+s.kind, err)
	}
	return item, nil
}

// Delete removes the record and unlinks it from the user's recipes.
func (s *attributeService[T, PT]) Delete(ctx context.Context, userID, id uint) error {
	item, err := s.find(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, item); err != nil {
		return apperrors.NewInternal("Failed to delete "+s.kind, err)
	}
	s.logger.Info(s.kind+" deleted", zap.Uint("user_id", userID), zap.Uint("id", id))
	return nil
}

func (s *attributeService[T, PT]) find(ctx context.Context, userID, id uint) (*T, error) {
	item, err := s.repo.FindByUser(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Not found.")
		}
		return nil, apperrors.NewInternal("Database error retrieving "+s.kind, err)
	}
	return item, nil
}

func (s *attributeService[T, PT]) nameTaken() error {
	return apperrors.NewFieldError("name", s.kind+" with this name already exists.")
}
