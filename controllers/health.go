package controllers

import (
	"net/http"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
)

type HealthResponse struct {
	Healthy bool `json:"healthy"`
}

// RegisterHealthRoute adds the unauthenticated liveness probe to ws.
func RegisterHealthRoute(ws *restful.WebService) {
	ws.Route(ws.GET("/health-check").To(func(_ *restful.Request, response *restful.Response) {
		_ = response.WriteHeaderAndJson(http.StatusOK, HealthResponse{Healthy: true}, restful.MIME_JSON)
	}).
		Doc("Liveness probe").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Returns(http.StatusOK, "Service is up", HealthResponse{}))
}
