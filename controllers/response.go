package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"recipe-restful/apperrors"
	"recipe-restful/auth"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// handleServiceError translates service errors to HTTP responses.
// Internal errors are logged and reported without detail.
func handleServiceError(logger *zap.Logger, request *restful.Request, response *restful.Response, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.NewInternal("An internal error occurred", err)
	}

	body := ErrorResponse{Message: appErr.Message, Errors: appErr.Fields}
	if appErr.Kind == apperrors.KindInternal {
		logger.Error("Unhandled service error",
			zap.String("method", request.Request.Method),
			zap.String("path", request.Request.URL.Path),
			zap.Error(err))
		body = ErrorResponse{Message: "An internal error occurred"}
	}
	_ = response.WriteHeaderAndJson(appErr.StatusCode(), body, restful.MIME_JSON)
}

func writeBadRequest(response *restful.Response, message string) {
	_ = response.WriteHeaderAndJson(http.StatusBadRequest, ErrorResponse{Message: message}, restful.MIME_JSON)
}

// readEntity decodes the request body into input and writes a 400 when it
// cannot. A value of the wrong JSON type is reported against its field.
func readEntity(request *restful.Request, response *restful.Response, input any) bool {
	err := request.ReadEntity(input)
	if err == nil {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		_ = response.WriteHeaderAndJson(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid input",
			Errors:  map[string][]string{typeErr.Field: {typeMessage(typeErr.Type)}},
		}, restful.MIME_JSON)
		return false
	}
	writeBadRequest(response, "Invalid request body: "+err.Error())
	return false
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

func typeMessage(t reflect.Type) string {
	if t == decimalType {
		return "A valid number is required."
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "A valid integer is required."
	case reflect.Float32, reflect.Float64:
		return "A valid number is required."
	case reflect.Bool:
		return "Must be a valid boolean."
	case reflect.String:
		return "Not a valid string."
	case reflect.Slice, reflect.Array:
		return "Expected a list of items."
	case reflect.Struct, reflect.Map:
		return "Expected an object."
	default:
		return "Invalid value."
	}
}

// ServiceErrorHandler renders routing failures (404, 405, 406, 415) as JSON.
func ServiceErrorHandler(serviceErr restful.ServiceError, request *restful.Request, response *restful.Response) {
	message := serviceErr.Message
	if i := strings.Index(message, ": "); i >= 0 {
		message = message[i+2:] // "405: Method Not Allowed" -> "Method Not Allowed"
	}
	for header, values := range serviceErr.Header {
		for _, v := range values {
			response.AddHeader(header, v)
		}
	}
	_ = response.WriteHeaderAndJson(serviceErr.Code, ErrorResponse{Message: message}, restful.MIME_JSON)
}

// parseIDParam reads a positive integer path parameter.
func parseIDParam(request *restful.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(request.PathParameter(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// parseIDList parses a comma separated list of ids such as "1,2,3".
func parseIDList(raw string) ([]uint, bool) {
	if raw == "" {
		return nil, true
	}
	parts := strings.Split(raw, ",")
	ids := make([]uint, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return nil, false
		}
		ids = append(ids, uint(id))
	}
	return ids, true
}

// getRequestingUserID returns the id of the user set by the AuthFilter.
func getRequestingUserID(request *restful.Request) (uint, bool) {
	user, ok := auth.UserFromRequest(request)
	if !ok {
		return 0, false
	}
	return user.ID, true
}

func writeUnidentified(response *restful.Response) {
	_ = response.WriteHeaderAndJson(http.StatusUnauthorized,
		ErrorResponse{Message: "Authentication credentials were not provided."}, restful.MIME_JSON)
}
