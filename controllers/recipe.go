package controllers

import (
	"net/http"
	"sort"

	"recipe-restful/models"
	"recipe-restful/repositories"
	"recipe-restful/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

type RecipeController struct {
	recipeService services.RecipeService
	authFilter    restful.FilterFunction
	logger        *zap.Logger
}

func NewRecipeController(recipeService services.RecipeService, authFilter restful.FilterFunction, logger *zap.Logger) *RecipeController {
	return &RecipeController{recipeService: recipeService, authFilter: authFilter, logger: logger}
}

// RecipeResponse is the list representation of a recipe.
type RecipeResponse struct {
	ID          uint                `json:"id"`
	Title       string              `json:"title"`
	TimeMinutes int                 `json:"time_minutes"`
	Price       string              `json:"price"`
	Link        string              `json:"link"`
	Tags        []AttributeResponse `json:"tags"`
	Ingredients []AttributeResponse `json:"ingredients"`
}

// RecipeDetailResponse adds the description to the list representation.
type RecipeDetailResponse struct {
	RecipeResponse
	Description string `json:"description"`
}

func mapModelToRecipeResponse(recipe *models.Recipe) RecipeResponse {
	tags := make([]AttributeResponse, 0, len(recipe.Tags))
	for i := range recipe.Tags {
		tags = append(tags, mapAttributeResponse(recipe.Tags[i].Base()))
	}
	ingredients := make([]AttributeResponse, 0, len(recipe.Ingredients))
	for i := range recipe.Ingredients {
		ingredients = append(ingredients, mapAttributeResponse(recipe.Ingredients[i].Base()))
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	sort.Slice(ingredients, func(i, j int) bool { return ingredients[i].ID < ingredients[j].ID })

	return RecipeResponse{
		ID:          recipe.ID,
		Title:       recipe.Title,
		TimeMinutes: recipe.TimeMinutes,
		Price:       recipe.Price.StringFixed(2),
		Link:        recipe.Link,
		Tags:        tags,
		Ingredients: ingredients,
	}
}

func mapModelToRecipeDetailResponse(recipe *models.Recipe) RecipeDetailResponse {
	return RecipeDetailResponse{RecipeResponse: mapModelToRecipeResponse(recipe), Description: recipe.Description}
}

// RegisterRoutes adds the recipe routes to ws. Every route requires authentication.
func (ctl *RecipeController) RegisterRoutes(ws *restful.WebService) {
	tags := []string{"recipes"}
	idParam := ws.PathParameter("recipe-id", "Identifier of the recipe").DataType("integer")

	ws.Route(ws.GET("/recipes").Filter(ctl.authFilter).To(ctl.listRecipesHandler).
		Doc("List the authenticated user's recipes, newest first").
		Param(ws.QueryParameter("tags", "Comma separated tag ids to filter by").DataType("string")).
		Param(ws.QueryParameter("ingredients", "Comma separated ingredient ids to filter by").DataType("string")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes([]RecipeResponse{}).
		Returns(http.StatusOK, "Recipes", []RecipeResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}))

	ws.Route(ws.POST("/recipes").Filter(ctl.authFilter).To(ctl.createRecipeHandler).
		Doc("Create a recipe; nested tags and ingredients are created on demand").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.RecipeInput{}).
		Returns(http.StatusCreated, "Recipe created", RecipeDetailResponse{}).
		Returns(http.StatusBadRequest, "Invalid input", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}))

	ws.Route(ws.GET("/recipes/{recipe-id}").Filter(ctl.authFilter).To(ctl.getRecipeHandler).
		Doc("Get a recipe").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(RecipeDetailResponse{}).
		Returns(http.StatusOK, "Recipe", RecipeDetailResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}).
		Returns(http.StatusNotFound, "Recipe not found", ErrorResponse{}))

	ws.Route(ws.PUT("/recipes/{recipe-id}").Filter(ctl.authFilter).To(ctl.updateRecipeHandler(false)).
		Doc("Replace a recipe").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.RecipeInput{}).
		Returns(http.StatusOK, "Recipe updated", RecipeDetailResponse{}).
		Returns(http.StatusBadRequest, "Invalid input", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}).
		Returns(http.StatusNotFound, "Recipe not found", ErrorResponse{}))

	ws.Route(ws.PATCH("/recipes/{recipe-id}").Filter(ctl.authFilter).To(ctl.updateRecipeHandler(true)).
		Doc("Partially update a recipe").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.RecipeInput{}).
		Returns(http.StatusOK, "Recipe updated", RecipeDetailResponse{}).
		Returns(http.StatusBadRequest, "Invalid input", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}).
		Returns(http.StatusNotFound, "Recipe not found", ErrorResponse{}))

	ws.Route(ws.DELETE("/recipes/{recipe-id}").Filter(ctl.authFilter).To(ctl.deleteRecipeHandler).
		Doc("Delete a recipe; its tags and ingredients are kept").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusNoContent, "Recipe deleted", nil).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}).
		Returns(http.StatusNotFound, "Recipe not found", ErrorResponse{}))
}

// listRecipesHandler (Handles GET /api/recipe/recipes)
func (ctl *RecipeController) listRecipesHandler(request *restful.Request, response *restful.Response) {
	userID, ok := getRequestingUserID(request)
	if !ok {
		writeUnidentified(response)
		return
	}

	var filter repositories.RecipeFilter
	if filter.TagIDs, ok = parseIDList(request.QueryParameter("tags")); !ok {
		writeBadRequest(response, "Invalid tags filter")
		return
	}
	if filter.IngredientIDs, ok = parseIDList(request.QueryParameter("ingredients")); !ok {
		writeBadRequest(response, "Invalid ingredients filter")
		return
	}

	recipes, err := ctl.recipeService.List(request.Request.Context(), userID, filter)
	if err != nil {
		handleServiceError(ctl.logger, request, response, err)
		return
	}

	recipeResponses := make([]RecipeResponse, len(recipes))
	for i := range recipes {
		recipeResponses[i] = mapModelToRecipeResponse(&recipes[i])
	}
	_ = response.WriteHeaderAndJson(http.StatusOK, recipeResponses, restful.MIME_JSON)
}

// createRecipeHandler (Handles POST /api/recipe/recipes)
func (ctl *RecipeController) createRecipeHandler(request *restful.Request, response *restful.Response) {
	userID, ok := getRequestingUserID(request)
	if !ok {
		writeUnidentified(response)
		return
	}

	input := new(services.RecipeInput)
	if !readEntity(request, response, input) {
		return
	}

	recipe, err := ctl.recipeService.Create(request.Request.Context(), userID, input)
	if err != nil {
		handleServiceError(ctl.logger, request, response, err)
		return
	}
	_ = response.WriteHeaderAndJson(http.StatusCreated, mapModelToRecipeDetailResponse(recipe), restful.MIME_JSON)
}

// getRecipeHandler (Handles GET /api/recipe/recipes/{recipe-id})
func (ctl *RecipeController) getRecipeHandler(request *restful.Request, response *restful.Response) {
	userID, id, ok := ctl.identify(request, response)
	if !ok {
		return
	}

	recipe, err := ctl.recipeService.Get(request.Request.Context(), userID, id)
	if err != nil {
		handleServiceError(ctl.logger, request, response, err)
		return
	}
	_ = response.WriteHeaderAndJson(http.StatusOK, mapModelToRecipeDetailResponse(recipe), restful.MIME_JSON)
}

// updateRecipeHandler handles PUT (partial=false) and PATCH (partial=true).
func (ctl *RecipeController) updateRecipeHandler(partial bool) restful.RouteFunction {
	return func(request *restful.Request, response *restful.Response) {
		userID, id, ok := ctl.identify(request, response)
		if !ok {
			return
		}

		input := new(services.RecipeInput)
		if !readEntity(request, response, input) {
			return
		}

		recipe, err := ctl.recipeService.Update(request.Request.Context(), userID, id, input, partial)
		if err != nil {
			handleServiceError(ctl.logger, request, response, err)
			return
		}
		_ = response.WriteHeaderAndJson(http.StatusOK, mapModelToRecipeDetailResponse(recipe), restful.MIME_JSON)
	}
}

// deleteRecipeHandler (Handles DELETE /api/recipe/recipes/{recipe-id})
func (ctl *RecipeController) deleteRecipeHandler(request *restful.Request, response *restful.Response) {
	userID, id, ok := ctl.identify(request, response)
	if !ok {
		return
	}

	if err := ctl.recipeService.Delete(request.Request.Context(), userID, id); err != nil {
		handleServiceError(ctl.logger, request, response, err)
		return
	}
	response.WriteHeader(http.StatusNoContent)
}

// identify returns the caller and the recipe id from the path. An id that
// is not a positive integer cannot match a recipe and is reported as 404.
func (ctl *RecipeController) identify(request *restful.Request, response *restful.Response) (uint, uint, bool) {
	userID, ok := getRequestingUserID(request)
	if !ok {
		writeUnidentified(response)
		return 0, 0, false
	}
	id, ok := parseIDParam(request, "recipe-id")
	if !ok {
		_ = response.WriteHeaderAndJson(http.StatusNotFound, ErrorResponse{Message: "Not found."}, restful.MIME_JSON)
		return 0, 0, false
	}
	return userID, id, true
}
