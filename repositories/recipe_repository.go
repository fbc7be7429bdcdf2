package repositories

import (
	"context"

	"recipe-restful/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecipeFilter narrows a recipe listing to recipes linked to any of the ids.
type RecipeFilter struct {
	TagIDs        []uint
	IngredientIDs []uint
}

// RecipeRepository interface defines Recipe-related database operations.
// Lookups take the owner's id; rows of other users are never returned.
type RecipeRepository interface {
	WithTx(tx *gorm.DB) RecipeRepository
	ListByUser(ctx context.Context, userID uint, filter RecipeFilter) ([]models.Recipe, error)
	FindByUser(ctx context.Context, userID, id uint) (*models.Recipe, error)
	Create(ctx context.Context, recipe *models.Recipe) error
	Update(ctx context.Context, recipe *models.Recipe) error
	ReplaceTags(ctx context.Context, recipe *models.Recipe, tags []models.Tag) error
	ReplaceIngredients(ctx context.Context, recipe *models.Recipe, ingredients []models.Ingredient) error
	Delete(ctx context.Context, recipe *models.Recipe) error
}

type recipeRepository struct {
	db *gorm.DB
}

func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

func (r *recipeRepository) WithTx(tx *gorm.DB) RecipeRepository {
	return &recipeRepository{db: tx}
}

func (r *recipeRepository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Tags").Preload("Ingredients")
}

// ListByUser returns the user's recipes, newest first.
func (r *recipeRepository) ListByUser(ctx context.Context, userID uint, filter RecipeFilter) ([]models.Recipe, error) {
	query := r.withRelations(ctx).Where("user_id = ?", userID)
	if len(filter.TagIDs) > 0 {
		query = query.Where("id IN (?)",
			r.db.Table("recipe_tags").Select("recipe_id").Where("tag_id IN ?", filter.TagIDs))
	}
	if len(filter.IngredientIDs) > 0 {
		query = query.Where("id IN (?)",
			r.db.Table("recipe_ingredients").Select("recipe_id").Where("ingredient_id IN ?", filter.IngredientIDs))
	}

	var recipes []models.Recipe
	if err := query.Order("id DESC").Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}

func (r *recipeRepository) FindByUser(ctx context.Context, userID, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := r.withRelations(ctx).Where("user_id = ? AND id = ?", userID, id).First(&recipe).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *recipeRepository) Create(ctx context.Context, recipe *models.Recipe) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(recipe).Error
}

// Update saves the scalar columns; links are changed through the Replace methods.
func (r *recipeRepository) Update(ctx context.Context, recipe *models.Recipe) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(recipe).Error
}

// ReplaceTags makes tags the exact tag set of the recipe. An empty slice
// removes every link; the tag rows themselves are kept.
func (r *recipeRepository) ReplaceTags(ctx context.Context, recipe *models.Recipe, tags []models.Tag) error {
	association := r.db.WithContext(ctx).Model(recipe).Association("Tags")
	if len(tags) == 0 {
		return association.Clear()
	}
	return association.Replace(tags)
}

// ReplaceIngredients is ReplaceTags for ingredients.
func (r *recipeRepository) ReplaceIngredients(ctx context.Context, recipe *models.Recipe, ingredients []models.Ingredient) error {
	association := r.db.WithContext(ctx).Model(recipe).Association("Ingredients")
	if len(ingredients) == 0 {
		return association.Clear()
	}
	return association.Replace(ingredients)
}

// Delete removes the recipe and its link rows; tags and ingredients stay.
func (r *recipeRepository) Delete(ctx context.Context, recipe *models.Recipe) error {
	return r.db.WithContext(ctx).Select("Tags", "Ingredients").Delete(recipe).Error
}
