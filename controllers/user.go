package controllers

import (
	"net/http"

	"recipe-restful/models"
	"recipe-restful/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

// UserController serves registration, token issuance and the caller's profile.
type UserController struct {
	userService services.UserService
	authFilter  restful.FilterFunction
	logger      *zap.Logger
}

// Constructor, used to create a UserController instance
func NewUserController(userService services.UserService, authFilter restful.FilterFunction, logger *zap.Logger) *UserController {
	return &UserController{userService: userService, authFilter: authFilter, logger: logger}
}

// UserResponse Defines the response structure of user information
type UserResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

func mapModelToUserResponse(user *models.User) UserResponse {
	return UserResponse{Email: user.Email, Name: user.Name}
}

// RegisterRoutes sets up the user-related routes for a go-restful WebService.
func (ctl *UserController) RegisterRoutes(ws *restful.WebService) {
	tags := []string{"user"}

	ws.Route(ws.POST("/create").To(ctl.createUserHandler).
		Doc("Register a new user").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.CreateUserInput{}).
		Returns(http.StatusCreated, "User created", UserResponse{}).
		Returns(http.StatusBadRequest, "Invalid input or email already registered", ErrorResponse{}))

	ws.Route(ws.POST("/token").To(ctl.createTokenHandler).
		Doc("Obtain the API token for a user").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.TokenInput{}).
		Returns(http.StatusOK, "Token issued", TokenResponse{}).
		Returns(http.StatusBadRequest, "Invalid credentials", ErrorResponse{}))

	// --- Routes requiring Authentication (Apply AuthFilter) ---
	ws.Route(ws.GET("/me").Filter(ctl.authFilter).To(ctl.getProfileHandler).
		Doc("Get the authenticated user's profile").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(UserResponse{}).
		Returns(http.StatusOK, "Profile", UserResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}))

	ws.Route(ws.PATCH("/me").Filter(ctl.authFilter).To(ctl.updateProfileHandler).
		Doc("Update the authenticated user's profile").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.UpdateUserInput{}).
		Writes(UserResponse{}).
		Returns(http.StatusOK, "Profile updated", UserResponse{}).
		Returns(http.StatusBadRequest, "Invalid input", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}))
}

// createUserHandler (Handles POST /api/user/create)
func (ctl *UserController) createUserHandler(request *restful.Request, response *restful.Response) {
	input := new(services.CreateUserInput)
	if !readEntity(request, response, input) {
		return
	}

	user, err := ctl.userService.CreateUser(request.Request.Context(), input)
	if err != nil {
		handleServiceError(ctl.logger, request, response, err)
		return
	}
	_ = response.WriteHeaderAndJson(http.StatusCreated, mapModelToUserResponse(user), restful.MIME_JSON)
}

// createTokenHandler (Handles POST /api/user/token)
func (ctl *UserController) createTokenHandler(request *restful.Request, response *restful.Response) {
	input := new(services.TokenInput)
	if !readEntity(request, response, input) {
		return
	}

	token, err := ctl.userService.ObtainToken(request.Request.Context(), input)
	if err != nil {
		handleServiceError(ctl.logger, request, response, err)
		return
	}
	_ = response.WriteHeaderAndJson(http.StatusOK, TokenResponse{Token: token}, restful.MIME_JSON)
}

// getProfileHandler (Handles GET /api/user/me)
func (ctl *UserController) getProfileHandler(request *restful.Request, response *restful.Response) {
	userID, ok := getRequestingUserID(request)
	if !ok {
		writeUnidentified(response)
		return
	}

	user, err := ctl.userService.GetProfile(request.Request.Context(), userID)
	if err != nil {
		handleServiceError(ctl.logger, request, response, err)
		return
	}
	_ = response.WriteHeaderAndJson(http.StatusOK, mapModelToUserResponse(user), restful.MIME_JSON)
}

// updateProfileHandler (Handles PATCH /api/user/me)
func (ctl *UserController) updateProfileHandler(request *restful.Request, response *restful.Response) {
	userID, ok := getRequestingUserID(request)
	if !ok {
		writeUnidentified(response)
		return
	}

	input := new(services.UpdateUserInput)
	if !readEntity(request, response, input) {
		return
	}

	user, err := ctl.userService.UpdateProfile(request.Request.Context(), userID, input)
	if err != nil {
		handleServiceError(ctl.logger, request, response, err)
		return
	}
	_ = response.WriteHeaderAndJson(http.StatusOK, mapModelToUserResponse(user), restful.MIME_JSON)
}
