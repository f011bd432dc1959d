package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nitesh/news_near_me/pkg/models"
)

// Unknown is used for location segments the lookup did not report.
const Unknown = "Unknown"

var (
	ErrUpstreamUnavailable = errors.New("geolocation service unavailable")
	ErrInvalidLocation     = errors.New("geolocation lookup failed")
)

// lookupResponse mirrors the ip-api.com JSON schema.
type lookupResponse struct {
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	City        string   `json:"city"`
	RegionName  string   `json:"regionName"`
	Country     string   `json:"country"`
	CountryCode string   `json:"countryCode"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	Query       string   `json:"query"`
	Timezone    string   `json:"timezone"`
}

// Client resolves IP addresses through an ip-api compatible endpoint.
type Client struct {
	baseURL string
	hc      *http.Client
}

// NewClient creates a client. If httpClient is nil, one bounded by timeout is used.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), hc: httpClient}
}

// Resolve looks up ip. An empty ip lets the upstream use the caller's address.
func (c *Client) Resolve(ctx context.Context, ip string) (models.Location, error) {
	endpoint := c.baseURL
	if ip != "" {
		endpoint += "/" + url.PathEscape(ip)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Location{}, fmt.Errorf("geo new request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return models.Location{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.Location{}, fmt.Errorf("%w: read body: %v", ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Location{}, fmt.Errorf("%w: status=%d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var data lookupResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return models.Location{}, fmt.Errorf("%w: decode body: %v", ErrUpstreamUnavailable, err)
	}
	if data.Status == "fail" {
		return models.Location{}, fmt.Errorf("%w: %s", ErrInvalidLocation, data.Message)
	}

	return models.Location{
		City:        orUnknown(data.City),
		Region:      orUnknown(data.RegionName),
		Country:     orUnknown(data.Country),
		CountryCode: data.CountryCode,
		Latitude:    data.Lat,
		Longitude:   data.Lon,
		IP:          data.Query,
		Timezone:    data.Timezone,
	}, nil
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

// Format joins city, region and country, dropping empty and Unknown segments.
func Format(loc models.Location) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{loc.City, loc.Region, loc.Country} {
		if p != "" && p != Unknown {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// NormalizeClientIP returns "" for addresses that cannot be geolocated
// (loopback, unspecified, localhost) and the trimmed input otherwise.
func NormalizeClientIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" || strings.EqualFold(ip, "localhost") {
		return ""
	}
	if parsed := net.ParseIP(ip); parsed != nil && (parsed.IsLoopback() || parsed.IsUnspecified()) {
		return ""
	}
	return ip
}
