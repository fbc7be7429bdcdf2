package services

import (
	"context"
	"testing"

	"recipe-restful/auth"
	"recipe-restful/database"
	"recipe-restful/models"
	"recipe-restful/repositories"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	users       UserService
	recipes     RecipeService
	tags        TagService
	ingredients IngredientService
	tokens      repositories.TokenRepository
	signer      *auth.Signer
}

// setupTestDB initializes a fresh in-memory database for one test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", "file::memory:", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	logger := zap.NewNop()

	tokens := repositories.NewTokenRepository(db)
	tagRepo := repositories.NewTagRepository(db)
	ingredientRepo := repositories.NewIngredientRepository(db)
	signer := auth.NewSigner([]byte("test-secret"), "recipe-test")

	return &testEnv{
		db:          db,
		users:       NewUserService(repositories.NewUserRepository(db), tokens, signer, bcrypt.MinCost, logger),
		recipes:     NewRecipeService(db, repositories.NewRecipeRepository(db), tagRepo, ingredientRepo, logger),
		tags:        NewTagService(tagRepo, logger),
		ingredients: NewIngredientService(ingredientRepo, logger),
		tokens:      tokens,
		signer:      signer,
	}
}

func (e *testEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user, err := e.users.CreateUser(context.Background(), &CreateUserInput{Email: email, Password: "testpass123", Name: "Test"})
	require.NoError(t, err)
	return user
}

func (e *testEnv) createTag(t *testing.T, userID uint, name string) models.Tag {
	t.Helper()
	tag := models.Tag{Attribute: models.Attribute{UserID: userID, Name: name}}
	require.NoError(t, e.db.Omit("User").Create(&tag).Error)
	return tag
}

func (e *testEnv) countTags(t *testing.T, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.Tag{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func ptr[T any](v T) *T { return &v }

func names(items []NameInput) *[]NameInput { return &items }
