package services

import (
	"context"
	"strings"
	"testing"

	"recipe-restful/apperrors"
	"recipe-restful/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "user@example.com")
	other := env.createUser(t, "other@example.com")
	env.createTag(t, user.ID, "Dessert")
	env.createTag(t, user.ID, "Vegan")
	env.createTag(t, other.ID, "Fruity")

	tags, err := env.tags.List(ctx, user.ID, false)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "Vegan", tags[0].Name, "ordered by name descending")
	assert.Equal(t, "Dessert", tags[1].Name)
}

func TestListAssignedOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "user@example.com")
	env.createTag(t, user.ID, "Unused")

	for _, title := range []string{"Eggs Benedict", "Herb eggs"} {
		input := sampleRecipe(title)
		input.Tags = names([]NameInput{{Name: "Breakfast"}})
		input.Ingredients = names([]NameInput{{Name: "Eggs"}})
		_, err := env.recipes.Create(ctx, user.ID, input)
		require.NoError(t, err)
	}

	tags, err := env.tags.List(ctx, user.ID, true)
	require.NoError(t, err)
	require.Len(t, tags, 1, "assigned tags are listed once")
	assert.Equal(t, "Breakfast", tags[0].Name)

	ingredients, err := env.ingredients.List(ctx, user.ID, true)
	require.NoError(t, err)
	require.Len(t, ingredients, 1)
	assert.Equal(t, "Eggs", ingredients[0].Name)

	all, err := env.tags.List(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateTag(t *testing.T) {
	ctx := context.Background()

	t.Run("Rename", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.createUser(t, "user@example.com")
		tag := env.createTag(t, user.ID, "After Dinner")

		updated, err := env.tags.Update(ctx, user.ID, tag.ID, &AttributeInput{Name: ptr("Dessert")}, true)
		require.NoError(t, err)
		assert.Equal(t, "Dessert", updated.Name)
		assert.Equal(t, tag.ID, updated.ID)
	})

	t.Run("Duplicate name", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.createUser(t, "user@example.com")
		env.createTag(t, user.ID, "Dessert")
		tag := env.createTag(t, user.ID, "Sweet")

		_, err := env.tags.Update(ctx, user.ID, tag.ID, &AttributeInput{Name: ptr("Dessert")}, false)
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, []string{"name"}, appErr.FieldNames())
	})

	t.Run("Name validation", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.createUser(t, "user@example.com")
		tag := env.createTag(t, user.ID, "Dessert")

		_, err := env.tags.Update(ctx, user.ID, tag.ID, &AttributeInput{}, false)
		assert.True(t, apperrors.IsValidation(err))

		_, err = env.tags.Update(ctx, user.ID, tag.ID, &AttributeInput{Name: ptr(strings.Repeat("a", 256))}, true)
		assert.True(t, apperrors.IsValidation(err))

		unchanged, err := env.tags.Update(ctx, user.ID, tag.ID, &AttributeInput{}, true)
		require.NoError(t, err)
		assert.Equal(t, "Dessert", unchanged.Name)
	})

	t.Run("Other user's tag", func(t *testing.T) {
		env := newTestEnv(t)
		owner := env.createUser(t, "owner@example.com")
		intruder := env.createUser(t, "intruder@example.com")
		tag := env.createTag(t, owner.ID, "Private")

		_, err := env.tags.Update(ctx, intruder.ID, tag.ID, &AttributeInput{Name: ptr("Mine")}, true)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestDeleteIngredient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "user@example.com")
	intruder := env.createUser(t, "intruder@example.com")

	input := sampleRecipe("Fried rice")
	input.Ingredients = names([]NameInput{{Name: "Rice"}, {Name: "Egg"}})
	recipe, err := env.recipes.Create(ctx, user.ID, input)
	require.NoError(t, err)

	var rice models.Ingredient
	for _, ing := range recipe.Ingredients {
		if ing.Name == "Rice" {
			rice = ing
		}
	}
	require.NotZero(t, rice.ID)

	assert.True(t, apperrors.IsNotFound(env.ingredients.Delete(ctx, intruder.ID, rice.ID)))
	require.NoError(t, env.ingredients.Delete(ctx, user.ID, rice.ID))

	stored, err := env.recipes.Get(ctx, user.ID, recipe.ID)
	require.NoError(t, err)
	require.Len(t, stored.Ingredients, 1)
	assert.Equal(t, "Egg", stored.Ingredients[0].Name)
}
