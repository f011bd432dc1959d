package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nitesh/news_near_me/internal/apperr"
	"github.com/nitesh/news_near_me/internal/news"
	"github.com/nitesh/news_near_me/internal/service"
	"github.com/nitesh/news_near_me/pkg/models"
)

const (
	defaultLimit    = 10
	defaultLanguage = "es"
)

// Server-side failures get a fixed detail; the cause is only logged.
var kindDetail = map[apperr.Kind]string{
	apperr.UpstreamUnavailable: "the geolocation service is unavailable, try again later",
	apperr.GenerationError:     "the news could not be generated, try again later",
	apperr.Internal:            "internal server error",
}

// AppInfo is echoed by the health and welcome endpoints.
type AppInfo struct {
	Name    string
	Version string
}

type Handler struct {
	svc  *service.Service
	info AppInfo
	log  *slog.Logger
}

func NewHandler(svc *service.Service, info AppInfo, log *slog.Logger) *Handler {
	return &Handler{svc: svc, info: info, log: log}
}

// Root: GET /
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Bienvenido a " + h.info.Name,
		"version": h.info.Version,
		"endpoints": gin.H{
			"health":     "/api/v1/health",
			"news":       "/api/v1/news",
			"location":   "/api/v1/news/location",
			"categories": "/api/v1/news/categories",
			"metrics":    "/metrics",
		},
	})
}

// Health: GET /api/v1/health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		AppName:   h.info.Name,
		Version:   h.info.Version,
		Timestamp: time.Now().UTC(),
	})
}

// GetNews: GET /api/v1/news?limit=10&categories=deportes&language=es
// The location is derived from the caller's IP.
func (h *Handler) GetNews(c *gin.Context) {
	var q models.NewsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, http.StatusBadRequest, "invalid query parameters", err.Error())
		return
	}

	resp, err := h.svc.GetNewsByIP(c.Request.Context(), c.ClientIP(), options(q.Limit, q.Categories, q.Language))
	if err != nil {
		h.fail(c, "get news", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PostNews: POST /api/v1/news
// Body: manual location plus generation options.
func (h *Handler) PostNews(c *gin.Context) {
	req := models.NewsRequest{Limit: defaultLimit, Language: defaultLanguage}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	resp, err := h.svc.GetNewsForLocation(c.Request.Context(), req.City, req.Region, req.Country,
		options(req.Limit, req.Categories, req.Language))
	if err != nil {
		h.fail(c, "post news", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Location: GET /api/v1/news/location
// Any failure is reported as 500.
func (h *Handler) Location(c *gin.Context) {
	loc, err := h.svc.DetectLocation(c.Request.Context(), c.ClientIP())
	if err != nil {
		h.log.Error("detect location", slog.Any("err", err))
		writeError(c, http.StatusInternalServerError, "location detection failed", "could not detect the caller location")
		return
	}
	c.JSON(http.StatusOK, loc)
}

// Categories: GET /api/v1/news/categories
func (h *Handler) Categories(c *gin.Context) {
	all := models.AllCategories()
	out := make([]models.CategoryInfo, len(all))
	for i, cat := range all {
		out[i] = models.CategoryInfo{Value: string(cat), Name: cat.Name()}
	}
	c.JSON(http.StatusOK, out)
}

// History: GET /api/v1/news/history?limit=20
func (h *Handler) History(c *gin.Context) {
	if !h.svc.HistoryEnabled() {
		writeError(c, http.StatusServiceUnavailable, "history not configured", service.ErrHistoryDisabled.Error())
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		writeError(c, http.StatusBadRequest, "invalid query parameters", "limit must be between 1 and 100")
		return
	}

	rows, err := h.svc.History(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("load history", slog.Any("err", err))
		writeError(c, http.StatusInternalServerError, "history unavailable", kindDetail[apperr.Internal])
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(rows), "limit": limit},
		"data": rows,
	})
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		h.log.Error(op, slog.String("kind", kind.String()), slog.Any("err", err))
	} else {
		h.log.Info(op, slog.String("kind", kind.String()), slog.Any("err", err))
	}
	writeError(c, status, kind.String(), publicDetail(kind, err))
}

// publicDetail exposes the cause only for client errors.
func publicDetail(kind apperr.Kind, err error) string {
	if d, ok := kindDetail[kind]; ok {
		return d
	}
	return err.Error()
}

func writeError(c *gin.Context, status int, msg, detail string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Success: false,
		Error:   msg,
		Detail:  detail,
	})
}

// options converts validated filter strings into categories and applies defaults.
func options(limit int, categories []string, language string) service.Options {
	cats := make([]models.NewsCategory, 0, len(categories))
	for _, raw := range categories {
		if cat, ok := news.LookupCategory(raw); ok {
			cats = append(cats, cat)
		}
	}
	if language == "" {
		language = defaultLanguage
	}
	return service.Options{Limit: limit, Categories: cats, Language: language}
}
