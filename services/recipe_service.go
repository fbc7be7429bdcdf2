package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"recipe-restful/apperrors"
	"recipe-restful/models"
	"recipe-restful/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RecipeService manages the recipes of one user at a time. Every method takes
// the authenticated user's id; recipes of other users are reported as not found.
type RecipeService interface {
	List(ctx context.Context, userID uint, filter repositories.RecipeFilter) ([]models.Recipe, error)
	Get(ctx context.Context, userID, id uint) (*models.Recipe, error)
	Create(ctx context.Context, userID uint, input *RecipeInput) (*models.Recipe, error)
	// Update replaces the recipe's fields. With partial set, fields missing
	// from input keep their value; otherwise title, time_minutes and price
	// are required.
	Update(ctx context.Context, userID, id uint, input *RecipeInput, partial bool) (*models.Recipe, error)
	Delete(ctx context.Context, userID, id uint) error
}

// NameInput is a nested tag or ingredient reference.
type NameInput struct {
	Name string `json:"name" validate:"required,max=255"`
}

// RecipeInput is the body of recipe writes. A nil Tags or Ingredients leaves
// the links untouched; an empty slice removes them all. Any "user" key in the
// body is ignored: the owner is always the authenticated user.
type RecipeInput struct {
	Title       *string          `json:"title" validate:"omitempty,max=255"`
	TimeMinutes *int             `json:"time_minutes" validate:"omitempty,gte=0"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
	Link        *string          `json:"link" validate:"omitempty,max=255"`
	Tags        *[]NameInput     `json:"tags"`
	Ingredients *[]NameInput     `json:"ingredients"`

	nulls []string `json:"-"` // scalar fields sent as JSON null
}

// nonNullableFields may be omitted but never set to null.
var nonNullableFields = []string{"title", "time_minutes", "price", "description", "link"}

// UnmarshalJSON decodes a recipe body, remembering which scalar fields were
// explicitly null. An unparsable price is reported as a type error on "price".
func (in *RecipeInput) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["price"]; ok && !isJSONNull(v) {
		var price decimal.Decimal
		if err := price.UnmarshalJSON(v); err != nil {
			return &json.UnmarshalTypeError{Value: string(v), Type: reflect.TypeOf(price), Field: "price"}
		}
	}

	type recipeInput RecipeInput
	var decoded recipeInput
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*in = RecipeInput(decoded)
	in.nulls = nil
	for _, field := range nonNullableFields {
		if v, ok := raw[field]; ok && isJSONNull(v) {
			in.nulls = append(in.nulls, field)
		}
	}
	return nil
}

func isJSONNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// maxPrice bounds decimal(5,2).
var maxPrice = decimal.NewFromInt(1000)

type recipeService struct {
	db          *gorm.DB
	recipes     repositories.RecipeRepository
	tags        repositories.TagRepository
	ingredients repositories.IngredientRepository
	logger      *zap.Logger
}

var _ RecipeService = (*recipeService)(nil)

func NewRecipeService(db *gorm.DB, recipes repositories.RecipeRepository, tags repositories.TagRepository,
	ingredients repositories.IngredientRepository, logger *zap.Logger) RecipeService {
	return &recipeService{db: db, recipes: recipes, tags: tags, ingredients: ingredients, logger: logger}
}

func (s *recipeService) List(ctx context.Context, userID uint, filter repositories.RecipeFilter) ([]models.Recipe, error) {
	recipes, err := s.recipes.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, apperrors.NewInternal("Database error listing recipes", err)
	}
	return recipes, nil
}

func (s *recipeService) Get(ctx context.Context, userID, id uint) (*models.Recipe, error) {
	recipe, err := s.recipes.FindByUser(ctx, userID, id)
	if err != nil {
		return nil, recipeLookupError(err)
	}
	return recipe, nil
}

func (s *recipeService) Create(ctx context.Context, userID uint, input *RecipeInput) (*models.Recipe, error) {
	if err := validateRecipeInput(input, false); err != nil {
		return nil, err
	}

	recipe := &models.Recipe{UserID: userID}
	applyRecipeInput(recipe, input)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.recipes.WithTx(tx).Create(ctx, recipe); err != nil {
			return apperrors.NewInternal("Failed to create recipe", err)
		}
		return s.attachRelations(ctx, tx, recipe, input)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("recipe created", zap.Uint("user_id", userID), zap.Uint("recipe_id", recipe.ID))
	return s.Get(ctx, userID, recipe.ID)
}

func (s *recipeService) Update(ctx context.Context, userID, id uint, input *RecipeInput, partial bool) (*models.Recipe, error) {
	if err := validateRecipeInput(input, partial); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipes := s.recipes.WithTx(tx)
		recipe, err := recipes.FindByUser(ctx, userID, id)
		if err != nil {
			return recipeLookupError(err)
		}

		applyRecipeInput(recipe, input)
		if err := recipes.Update(ctx, recipe); err != nil {
			return apperrors.NewInternal("Failed to update recipe", err)
		}
		return s.attachRelations(ctx, tx, recipe, input)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

func (s *recipeService) Delete(ctx context.Context, userID, id uint) error {
	recipe, err := s.recipes.FindByUser(ctx, userID, id)
	if err != nil {
		return recipeLookupError(err)
	}
	if err := s.recipes.Delete(ctx, recipe); err != nil {
		return apperrors.NewInternal("Failed to delete recipe", err)
	}
	s.logger.Info("recipe deleted", zap.Uint("user_id", userID), zap.Uint("recipe_id", id))
	return nil
}

// attachRelations replaces the recipe's tags and ingredients with the named
// records present in input, creating the ones the owner does not have yet.
func (s *recipeService) attachRelations(ctx context.Context, tx *gorm.DB, recipe *models.Recipe, input *RecipeInput) error {
	recipes := s.recipes.WithTx(tx)

	if input.Tags != nil {
		tags, err := resolveNames(ctx, s.tags.WithTx(tx), recipe.UserID, *input.Tags)
		if err != nil {
			return apperrors.NewInternal("Failed to resolve tags", err)
		}
		if err := recipes.ReplaceTags(ctx, recipe, tags); err != nil {
			return apperrors.NewInternal("Failed to link tags", err)
		}
	}
	if input.Ingredients != nil {
		ingredients, err := resolveNames(ctx, s.ingredients.WithTx(tx), recipe.UserID, *input.Ingredients)
		if err != nil {
			return apperrors.NewInternal("Failed to resolve ingredients", err)
		}
		if err := recipes.ReplaceIngredients(ctx, recipe, ingredients); err != nil {
			return apperrors.NewInternal("Failed to link ingredients", err)
		}
	}
	return nil
}

// resolveNames get-or-creates each name for the user in payload order.
// Repeated names resolve to a single record.
func resolveNames[T any](ctx context.Context, repo repositories.AttributeRepository[T], userID uint, names []NameInput) ([]T, error) {
	seen := make(map[string]struct{}, len(names))
	items := make([]T, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n.Name]; ok {
			continue
		}
		seen[n.Name] = struct{}{}

		item, err := repo.GetOrCreate(ctx, userID, n.Name)
		if err != nil {
			return nil, fmt.Errorf("get or create %q: %w", n.Name, err)
		}
		items = append(items, *item)
	}
	return items, nil
}

// validateRecipeInput trims the text fields and checks the whole body,
// reporting every invalid field at once.
func validateRecipeInput(input *RecipeInput, partial bool) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		input.Title = &title
	}

	fields, err := validateStruct(input)
	if err != nil {
		return err
	}

	null := make(map[string]bool, len(input.nulls))
	for _, field := range input.nulls {
		null[field] = true
		fields.add(field, msgNull)
	}
	if !partial {
		if input.Title == nil && !null["title"] {
			fields.add("title", msgRequired)
		}
		if input.TimeMinutes == nil && !null["time_minutes"] {
			fields.add("time_minutes", msgRequired)
		}
		if input.Price == nil && !null["price"] {
			fields.add("price", msgRequired)
		}
	}
	if input.Title != nil && *input.Title == "" {
		fields.add("title", msgBlank)
	}
	if input.Price != nil {
		if msg := checkPrice(*input.Price); msg != "" {
			fields.add("price", msg)
		}
	}

	for key, names := range map[string]*[]NameInput{"tags": input.Tags, "ingredients": input.Ingredients} {
		if names == nil {
			continue
		}
		for i := range *names {
			n := &(*names)[i]
			n.Name = strings.TrimSpace(n.Name)
			nested, err := validateStruct(n)
			if err != nil {
				return err
			}
			fields.merge(fmt.Sprintf("%s[%d].", key, i), nested)
		}
	}
	return fields.err()
}

// checkPrice enforces decimal(5,2): at most two decimal places and three integer digits.
func checkPrice(price decimal.Decimal) string {
	if !price.Round(2).Equal(price) {
		return "Ensure that there are no more than 2 decimal places."
	}
	if price.Abs().GreaterThanOrEqual(maxPrice) {
		return "Ensure that there are no more than 5 digits in total."
	}
	return ""
}

func applyRecipeInput(recipe *models.Recipe, input *RecipeInput) {
	if input.Title != nil {
		recipe.Title = *input.Title
	}
	if input.TimeMinutes != nil {
		recipe.TimeMinutes = *input.TimeMinutes
	}
	if input.Price != nil {
		recipe.Price = *input.Price
	}
	if input.Description != nil {
		recipe.Description = *input.Description
	}
	if input.Link != nil {
		recipe.Link = *input.Link
	}
}

func recipeLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewNotFound("Not found.")
	}
	return apperrors.NewInternal("Database error retrieving recipe", err)
}
