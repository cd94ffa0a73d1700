package api

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mr1hm/go-neo-watch/internal/selection"
)

const requestIDHeader = "X-Request-ID"

// HTTPRecorder receives per-request metrics. A nil HTTPRecorder is allowed.
type HTTPRecorder interface {
	ObserveHTTP(method, route string, code int, d time.Duration)
}

type RouterOptions struct {
	RateLimitRPS int
	Logger       *slog.Logger
	Recorder     HTTPRecorder
}

// NewRouter builds the engine with the standard middleware chain and the
// handler's routes. Every request sees store through its context.
func NewRouter(h *Handler, store *selection.Store, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(RequestIDMiddleware())
	router.Use(AccessLogMiddleware(logger, opts.Recorder))
	router.Use(RateLimitMiddleware(opts.RateLimitRPS))
	router.Use(SelectionMiddleware(store))

	h.RegisterRoutes(router)
	return router
}

// RequestIDMiddleware propagates X-Request-ID, generating one when absent.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func AccessLogMiddleware(logger *slog.Logger, rec HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		status := c.Writer.Status()
		if rec != nil {
			rec.ObserveHTTP(c.Request.Method, route, status, elapsed)
		}

		level := slog.LevelInfo
		if route == "/health" || route == "/metrics" {
			level = slog.LevelDebug
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", route,
			"status", status,
			"duration", elapsed,
			"request_id", c.GetString("request_id"),
		)
	}
}

// SelectionMiddleware installs store on each request context. Handlers that
// read the selection panic without it.
func SelectionMiddleware(store *selection.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store != nil {
			c.Request = c.Request.WithContext(selection.WithStore(c.Request.Context(), store))
		}
		c.Next()
	}
}
