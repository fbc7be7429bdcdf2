package interceptors

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	RequestIDHeader    = "X-Request-Id"
	RequestIDAttribute = "request_id"
)

// unmatchedRoute labels requests that did not select a route (404, 405).
const unmatchedRoute = "unmatched"

// RequestID accepts a client supplied X-Request-Id when it is a UUID and
// generates one otherwise. The id is echoed in the response.
func RequestID() restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		requestID := req.HeaderParameter(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}
		req.SetAttribute(RequestIDAttribute, requestID)
		resp.AddHeader(RequestIDHeader, requestID)
		chain.ProcessFilter(req, resp)
	}
}

// GetRequestID returns the id assigned by the RequestID filter.
func GetRequestID(req *restful.Request) string {
	id, _ := req.Attribute(RequestIDAttribute).(string)
	return id
}

// Metrics records request count, latency and in-flight requests per route template.
func Metrics() restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		chain.ProcessFilter(req, resp)

		route := req.SelectedRoutePath()
		if route == "" {
			route = unmatchedRoute
		}
		method := req.Request.Method
		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(resp.StatusCode())).Inc()
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// RateLimit rejects requests with 429 once the shared token bucket is empty.
// A nil limiter disables the filter.
func RateLimit(limiter *rate.Limiter) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		if limiter == nil {
			chain.ProcessFilter(req, resp)
			return
		}
		if !limiter.Allow() {
			rateLimitRejects.Inc()
			resp.AddHeader("Retry-After", "1")
			_ = resp.WriteHeaderAndJson(http.StatusTooManyRequests,
				map[string]string{"message": "Request was throttled."}, restful.MIME_JSON)
			return
		}
		resp.AddHeader("X-RateLimit-Limit", strconv.Itoa(int(limiter.Limit())))
		resp.AddHeader("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
		chain.ProcessFilter(req, resp)
	}
}

// AccessLog logs every request after it has been handled.
func AccessLog(logger *zap.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		startTime := time.Now()

		// handle requests
		chain.ProcessFilter(req, resp)

		logger.Info("Request",
			zap.String("request_id", GetRequestID(req)),
			zap.String("client_ip", req.Request.RemoteAddr),
			zap.String("method", req.Request.Method),
			zap.String("path", req.Request.URL.Path),
			zap.Int("status_code", resp.StatusCode()),
			zap.Duration("latency", time.Since(startTime)),
			zap.String("user_agent", req.Request.UserAgent()),
		)
	}
}

// Recover turns a panic in a handler into a 500 response.
func Recover(logger *zap.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		defer func() {
			if err := recover(); err != nil {
				panicRecoveries.Inc()
				var errMsg string
				switch v := err.(type) {
				case error:
					errMsg = v.Error()
				default:
					errMsg = fmt.Sprintf("%v", v)
				}
				logger.Error("panic recovered",
					zap.String("error", errMsg),
					zap.String("request_id", GetRequestID(req)),
					zap.String("method", req.Request.Method),
					zap.String("path", req.Request.URL.Path),
					zap.Stack("stack"),
				)
				_ = resp.WriteHeaderAndJson(http.StatusInternalServerError,
					map[string]string{"message": "Internal server error"}, restful.MIME_JSON)
			}
		}()
		chain.ProcessFilter(req, resp)
	}
}
