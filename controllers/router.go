package controllers

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
)

// APIDocsPath serves the generated OpenAPI document.
const APIDocsPath = "/apidocs.json"

type Controllers struct {
	Users       *UserController
	Recipes     *RecipeController
	Tags        *TagController
	Ingredients *IngredientController
}

// NewContainer builds the HTTP API: /api/user, /api/recipe, /api/health-check
// and the OpenAPI document.
func NewContainer(c Controllers) *restful.Container {
	container := restful.NewContainer()
	container.ServiceErrorHandler(ServiceErrorHandler)

	userWS := newWebService("/api/user")
	c.Users.RegisterRoutes(userWS)

	recipeWS := newWebService("/api/recipe")
	c.Recipes.RegisterRoutes(recipeWS)
	c.Tags.RegisterRoutes(recipeWS)
	c.Ingredients.RegisterRoutes(recipeWS)

	healthWS := newWebService("/api")
	RegisterHealthRoute(healthWS)

	container.Add(userWS)
	container.Add(recipeWS)
	container.Add(healthWS)

	docs := restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       APIDocsPath,
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}
	container.Add(restfulspec.NewOpenAPIService(docs))
	return container
}

func newWebService(root string) *restful.WebService {
	ws := new(restful.WebService)
	ws.Path(root).Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	return ws
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "Recipe API",
			Description: "Recipes, tags and ingredients of registered users",
			Version:     "1.0.0",
		},
	}
	swo.SecurityDefinitions = spec.SecurityDefinitions{
		"token": spec.APIKeyAuth("Authorization", "header"),
	}
}
