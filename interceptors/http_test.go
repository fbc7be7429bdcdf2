package interceptors

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func newTestContainer() *restful.Container {
	ws := new(restful.WebService)
	ws.Path("/api")
	ws.Route(ws.GET("/ok").To(func(_ *restful.Request, resp *restful.Response) {
		resp.WriteHeader(http.StatusOK)
	}))
	ws.Route(ws.GET("/panic").To(func(*restful.Request, *restful.Response) {
		panic("boom")
	}))

	container := restful.NewContainer()
	container.Add(ws)
	container.Filter(RequestID())
	container.Filter(Metrics())
	container.Filter(AccessLog(zap.NewNop()))
	container.Filter(Recover(zap.NewNop()))
	return container
}

func serve(c *restful.Container, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	c := newTestContainer()

	w := serve(c, httptest.NewRequest(http.MethodGet, "/api/ok", nil))
	generated := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)

	supplied := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/api/ok", nil)
	req.Header.Set(RequestIDHeader, supplied)
	assert.Equal(t, supplied, serve(c, req).Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/api/ok", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	assert.NotEqual(t, "not-a-uuid", serve(c, req).Header().Get(RequestIDHeader))
}

func TestRecoverAndMetrics(t *testing.T) {
	c := newTestContainer()
	panicsBefore := testutil.ToFloat64(panicRecoveries)
	okBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/ok", "200"))

	w := serve(c, httptest.NewRequest(http.MethodGet, "/api/panic", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, panicsBefore+1, testutil.ToFloat64(panicRecoveries))

	serve(c, httptest.NewRequest(http.MethodGet, "/api/ok", nil))
	assert.Equal(t, okBefore+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/ok", "200")))

	w = serve(c, httptest.NewRequest(http.MethodPost, "/api/ok", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, unmatchedRoute, "405")))
}

func TestRateLimit(t *testing.T) {
	ws := new(restful.WebService)
	ws.Path("/api")
	ws.Route(ws.GET("/ok").To(func(_ *restful.Request, resp *restful.Response) {
		resp.WriteHeader(http.StatusOK)
	}))
	container := restful.NewContainer()
	container.Add(ws)
	container.Filter(RateLimit(rate.NewLimiter(rate.Every(time.Hour), 2)))

	rejectsBefore := testutil.ToFloat64(rateLimitRejects)
	for i := 0; i < 2; i++ {
		w := serve(container, httptest.NewRequest(http.MethodGet, "/api/ok", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
	}

	w := serve(container, httptest.NewRequest(http.MethodGet, "/api/ok", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, rejectsBefore+1, testutil.ToFloat64(rateLimitRejects))

	unlimited := restful.NewContainer()
	unlimited.Add(ws)
	unlimited.Filter(RateLimit(nil))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(unlimited, httptest.NewRequest(http.MethodGet, "/api/ok", nil)).Code)
	}
}
