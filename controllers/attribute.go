package controllers

import (
	"net/http"
	"strconv"

	"recipe-restful/models"
	"recipe-restful/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

// AttributeResponse represents a tag or an ingredient.
type AttributeResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func mapAttributeResponse(a *models.Attribute) AttributeResponse {
	return AttributeResponse{ID: a.ID, Name: a.Name}
}

// AttributeController serves the list, update and delete routes of tags or
// ingredients under /{collection}.
type AttributeController[T any, PT models.AttributePtr[T]] struct {
	service    services.AttributeService[T]
	collection string // URL segment and OpenAPI tag, e.g. "tags"
	authFilter restful.FilterFunction
	logger     *zap.Logger
}

type (
	TagController        = AttributeController[models.Tag, *models.Tag]
	IngredientController = AttributeController[models.Ingredient, *models.Ingredient]
)

func NewTagController(service services.TagService, authFilter restful.FilterFunction, logger *zap.Logger) *TagController {
	return &TagController{service: service, collection: "tags", authFilter: authFilter, logger: logger}
}

func NewIngredientController(service services.IngredientService, authFilter restful.FilterFunction, logger *zap.Logger) *IngredientController {
	return &IngredientController{service: service, collection: "ingredients", authFilter: authFilter, logger: logger}
}

func (ctl *AttributeController[T, PT]) RegisterRoutes(ws *restful.WebService) {
	tags := []string{ctl.collection}
	path := "/" + ctl.collection
	idParam := ws.PathParameter("id", "Identifier of the record").DataType("integer")

	ws.Route(ws.GET(path).Filter(ctl.authFilter).To(ctl.listHandler).
		Doc("List the authenticated user's "+ctl.collection+", ordered by name descending").
		Param(ws.QueryParameter("assigned_only", "1 to return only records used by a recipe").DataType("integer").DefaultValue("0")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes([]AttributeResponse{}).
		Returns(http.StatusOK, "Records", []AttributeResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}))

	ws.Route(ws.PUT(path+"/{id}").Filter(ctl.authFilter).To(ctl.updateHandler(false)).
		Doc("Rename a record").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.AttributeInput{}).
		Returns(http.StatusOK, "Record updated", AttributeResponse{}).
		Returns(http.StatusBadRequest, "Invalid input", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}).
		Returns(http.StatusNotFound, "Record not found", ErrorResponse{}))

	ws.Route(ws.PATCH(path+"/{id}").Filter(ctl.authFilter).To(ctl.updateHandler(true)).
		Doc("Partially update a record").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.AttributeInput{}).
		Returns(http.StatusOK, "Record updated", AttributeResponse{}).
		Returns(http.StatusBadRequest, "Invalid input", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}).
		Returns(http.StatusNotFound, "Record not found", ErrorResponse{}))

	ws.Route(ws.DELETE(path+"/{id}").Filter(ctl.authFilter).To(ctl.deleteHandler).
		Doc("Delete a record and unlink it from recipes").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusNoContent, "Record deleted", nil).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}).
		Returns(http.StatusNotFound, "Record not found", ErrorResponse{}))
}

func (ctl *AttributeController[T, PT]) listHandler(request *restful.Request, response *restful.Response) {
	userID, ok := getRequestingUserID(request)
	if !ok {
		writeUnidentified(response)
		return
	}

	assignedOnly := false
	if raw := request.QueryParameter("assigned_only"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(response, "assigned_only must be 0 or 1")
			return
		}
		assignedOnly = n != 0
	}

	items, err := ctl.service.List(request.Request.Context(), userID, assignedOnly)
	if err != nil {
		handleServiceError(ctl.logger, request, response, err)
		return
	}

	out := make([]AttributeResponse, len(items))
	for i := range items {
		out[i] = mapAttributeResponse(PT(&items[i]).Base())
	}
	_ = response.WriteHeaderAndJson(http.StatusOK, out, restful.MIME_JSON)
}

func (ctl *AttributeController[T, PT]) updateHandler(partial bool) restful.RouteFunction {
	return func(request *restful.Request, response *restful.Response) {
		userID, id, ok := ctl.identify(request, response)
		if !ok {
			return
		}

		input := new(services.AttributeInput)
		if !readEntity(request, response, input) {
			return
		}

		item, err := ctl.service.Update(request.Request.Context(), userID, id, input, partial)
		if err != nil {
			handleServiceError(ctl.logger, request, response, err)
			return
		}
		_ = response.WriteHeaderAndJson(http.StatusOK, mapAttributeResponse(PT(item).Base()), restful.MIME_JSON)
	}
}

func (ctl *AttributeController[T, PT]) deleteHandler(request *restful.Request, response *restful.Response) {
	userID, id, ok := ctl.identify(request, response)
	if !ok {
		return
	}

	if err := ctl.service.Delete(request.Request.Context(), userID, id); err != nil {
		handleServiceError(ctl.logger, request, response, err)
		return
	}
	response.WriteHeader(http.StatusNoContent)
}

func (ctl *AttributeController[T, PT]) identify(request *restful.Request, response *restful.Response) (uint, uint, bool) {
	userID, ok := getRequestingUserID(request)
	if !ok {
		writeUnidentified(response)
		return 0, 0, false
	}
	id, ok := parseIDParam(request, "id")
	if !ok {
		_ = response.WriteHeaderAndJson(http.StatusNotFound, ErrorResponse{Message: "Not found."}, restful.MIME_JSON)
		return 0, 0, false
	}
	return userID, id, true
}
