package api

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nitesh/news_near_me/internal/news"
)

const requestIDHeader = "X-Request-ID"

// NewRouter returns an engine with gin's logger and recovery. Forwarding headers
// are honoured only from trustedProxies; with none, ClientIP is the socket peer.
func NewRouter(trustedProxies []string) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	return r, nil
}

// RegisterRoutes mounts the API. limiter may be nil to leave generation unthrottled.
func RegisterRoutes(r *gin.Engine, h *Handler, allowedOrigins []string, limiter *RateLimiter) {
	registerValidators()

	r.Use(requestID(), corsMiddleware(allowedOrigins))

	r.GET("/", h.Root)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", h.Health)
		generate := []gin.HandlerFunc{}
		if limiter != nil {
			generate = append(generate, limiter.Middleware())
		}
		v1.GET("/news", append(generate, h.GetNews)...)
		v1.POST("/news", append(generate, h.PostNews)...)
		v1.GET("/news/location", h.Location)
		v1.GET("/news/categories", h.Categories)
		v1.GET("/news/history", h.History)
	}
}

// registerValidators adds the "newscategory" rule used by request bindings.
func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("newscategory", func(fl validator.FieldLevel) bool {
			_, ok := news.LookupCategory(fl.Field().String())
			return ok
		})
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"*"},
		ExposeHeaders: []string{requestIDHeader},
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
