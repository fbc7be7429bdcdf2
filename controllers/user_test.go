package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"recipe-restful/auth"
	"recipe-restful/database"
	"recipe-restful/models"
	"recipe-restful/repositories"
	"recipe-restful/services"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testAPI struct {
	db        *gorm.DB
	container *restful.Container
}

// setupTestAPI builds the full HTTP API over a fresh in-memory database.
func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zap.NewNop()
	db, err := database.Open("sqlite", "file::memory:", logger)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	tokenRepo := repositories.NewTokenRepository(db)
	tagRepo := repositories.NewTagRepository(db)
	ingredientRepo := repositories.NewIngredientRepository(db)
	signer := auth.NewSigner([]byte("test-secret"), "recipe-test")
	authFilter := auth.NewAuthenticator(signer, tokenRepo, logger).AuthFilter()

	userService := services.NewUserService(repositories.NewUserRepository(db), tokenRepo, signer, bcrypt.MinCost, logger)
	recipeService := services.NewRecipeService(db, repositories.NewRecipeRepository(db), tagRepo, ingredientRepo, logger)

	container := NewContainer(Controllers{
		Users:       NewUserController(userService, authFilter, logger),
		Recipes:     NewRecipeController(recipeService, authFilter, logger),
		Tags:        NewTagController(services.NewTagService(tagRepo, logger), authFilter, logger),
		Ingredients: NewIngredientController(services.NewIngredientService(ingredientRepo, logger), authFilter, logger),
	})
	return &testAPI{db: db, container: container}
}

// do sends a JSON request; token may be empty for anonymous calls.
func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", restful.MIME_JSON)
	}
	req.Header.Set("Accept", restful.MIME_JSON)
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	a.container.ServeHTTP(w, req)
	return w
}

// register creates a user and returns its API token.
func (a *testAPI) register(t *testing.T, email string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/user/create", "", map[string]string{"email": email, "password": "testpass123", "name": "Test"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/api/user/token", "", map[string]string{"email": email, "password": "testpass123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestCreateUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		api := setupTestAPI(t)
		w := api.do(t, http.MethodPost, "/api/user/create", "", map[string]string{
			"email": "test@example.com", "password": "testpass123", "name": "Test Name",
		})
		assert.Equal(t, http.StatusCreated, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, map[string]any{"email": "test@example.com", "name": "Test Name"}, resp)

		var created models.User
		require.NoError(t, api.db.Where("email = ?", "test@example.com").First(&created).Error)
		assert.True(t, auth.CheckPassword(created.Password, "testpass123"))
	})

	t.Run("Email already exists", func(t *testing.T) {
		api := setupTestAPI(t)
		payload := map[string]string{"email": "test@example.com", "password": "testpass123"}
		require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/user/create", "", payload).Code)

		w := api.do(t, http.MethodPost, "/api/user/create", "", payload)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[ErrorResponse](t, w)
		assert.Contains(t, resp.Errors, "email")
	})

	t.Run("Password too short", func(t *testing.T) {
		api := setupTestAPI(t)
		w := api.do(t, http.MethodPost, "/api/user/create", "", map[string]string{"email": "test@example.com", "password": "pw"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var count int64
		require.NoError(t, api.db.Model(&models.User{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("Invalid request body", func(t *testing.T) {
		api := setupTestAPI(t)
		req := httptest.NewRequest(http.MethodPost, "/api/user/create", bytes.NewBufferString(`{"email":`))
		req.Header.Set("Content-Type", restful.MIME_JSON)
		w := httptest.NewRecorder()
		api.container.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCreateToken(t *testing.T) {
	api := setupTestAPI(t)
	token := api.register(t, "test@example.com")
	assert.NotEmpty(t, token)

	w := api.do(t, http.MethodPost, "/api/user/token", "", map[string]string{"email": "test@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, w.Body.String(), "token\"")

	w = api.do(t, http.MethodPost, "/api/user/token", "", map[string]string{"email": "test@example.com", "password": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfile(t *testing.T) {
	api := setupTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/user/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodGet, "/api/user/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := api.register(t, "test@example.com")

	w = api.do(t, http.MethodGet, "/api/user/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, UserResponse{Email: "test@example.com", Name: "Test"}, decode[UserResponse](t, w))

	w = api.do(t, http.MethodPost, "/api/user/me", token, map[string]string{})
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = api.do(t, http.MethodPatch, "/api/user/me", token, map[string]string{"name": "Updated name", "password": "newpassword123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Updated name", decode[UserResponse](t, w).Name)

	var stored models.User
	require.NoError(t, api.db.Where("email = ?", "test@example.com").First(&stored).Error)
	assert.True(t, auth.CheckPassword(stored.Password, "newpassword123"))
}

func TestHealthCheck(t *testing.T) {
	api := setupTestAPI(t)
	w := api.do(t, http.MethodGet, "/api/health-check", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"healthy": true}`, w.Body.String())
}

func TestAPIDocs(t *testing.T) {
	api := setupTestAPI(t)
	w := api.do(t, http.MethodGet, APIDocsPath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/recipe/recipes/{recipe-id}")
}
