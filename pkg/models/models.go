package models

import (
	"time"

	dbtypes "github.com/nitesh/news_near_me/internal/db"
)

// Location is the geographic context a news request is generated for.
type Location struct {
	City        string   `json:"city"`
	Region      string   `json:"region"`
	Country     string   `json:"country"`
	CountryCode string   `json:"country_code,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	IP          string   `json:"ip,omitempty"`
	Timezone    string   `json:"timezone,omitempty"`
}

// NewsItem is one validated news record built from the model reply.
type NewsItem struct {
	ID              int          `json:"id"`
	Title           string       `json:"title"`
	Summary         string       `json:"summary"`
	Category        NewsCategory `json:"category"`
	RelevanceScore  int          `json:"relevance_score"`
	LocationContext string       `json:"location_context"`
	EstimatedDate   *string      `json:"estimated_date"`
	Keywords        []string     `json:"keywords"`
}

// NewsResponse is returned by both news endpoints.
// SkippedEntries and ParseFailed let callers tell "no news" apart from a garbage reply.
type NewsResponse struct {
	Success        bool       `json:"success"`
	Location       string     `json:"location"`
	GeneratedAt    time.Time  `json:"generated_at"`
	TotalNews      int        `json:"total_news"`
	News           []NewsItem `json:"news"`
	SkippedEntries int        `json:"skipped_entries"`
	ParseFailed    bool       `json:"parse_failed"`
}

// NewsRequest is the POST /news body.
type NewsRequest struct {
	City       string   `json:"city"`
	Region     string   `json:"region"`
	Country    string   `json:"country"`
	Categories []string `json:"categories" binding:"omitempty,dive,newscategory"`
	Limit      int      `json:"limit" binding:"min=1,max=20"`
	Language   string   `json:"language"`
}

// NewsQuery holds the GET /news query parameters.
type NewsQuery struct {
	Limit      int      `form:"limit,default=10" binding:"min=1,max=20"`
	Categories []string `form:"categories" binding:"omitempty,dive,newscategory"`
	Language   string   `form:"language,default=es"`
}

// ErrorResponse is written for every non-2xx answer.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	AppName   string    `json:"app_name"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

type CategoryInfo struct {
	Value string `json:"value"`
	Name  string `json:"name"`
}

// Generation is the metadata kept for one generation run. News items themselves are never stored.
type Generation struct {
	ID          string              `db:"id" json:"id"`
	Source      string              `db:"source" json:"source"`
	Location    string              `db:"location" json:"location"`
	Language    string              `db:"language" json:"language"`
	Limit       int                 `db:"requested_limit" json:"limit"`
	Categories  dbtypes.StringSlice `db:"categories" json:"categories"`
	TotalNews   int                 `db:"total_news" json:"total_news"`
	Skipped     int                 `db:"skipped_entries" json:"skipped_entries"`
	ParseFailed bool                `db:"parse_failed" json:"parse_failed"`
	LatencyMs   int64               `db:"latency_ms" json:"latency_ms"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
}
