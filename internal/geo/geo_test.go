package geo_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitesh/news_near_me/internal/geo"
	"github.com/nitesh/news_near_me/pkg/models"
)

const santiagoReply = `{
	"status": "success",
	"country": "Chile",
	"countryCode": "CL",
	"regionName": "Región Metropolitana",
	"city": "Santiago",
	"lat": -33.4489,
	"lon": -70.6693,
	"timezone": "America/Santiago",
	"query": "190.162.1.1"
}`

func newGeoServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveSuccess(t *testing.T) {
	var gotPath string
	srv := newGeoServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(santiagoReply))
	})

	c := geo.NewClient(srv.URL+"/json", time.Second, nil)
	loc, err := c.Resolve(context.Background(), "190.162.1.1")
	require.NoError(t, err)

	assert.Equal(t, "/json/190.162.1.1", gotPath)
	assert.Equal(t, "Santiago", loc.City)
	assert.Equal(t, "Región Metropolitana", loc.Region)
	assert.Equal(t, "Chile", loc.Country)
	assert.Equal(t, "CL", loc.CountryCode)
	require.NotNil(t, loc.Latitude)
	assert.InDelta(t, -33.4489, *loc.Latitude, 1e-9)
	assert.Equal(t, "190.162.1.1", loc.IP)
	assert.Equal(t, "America/Santiago", loc.Timezone)
}

func TestResolveWithoutIPUsesBaseURL(t *testing.T) {
	var gotPath string
	srv := newGeoServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(santiagoReply))
	})

	c := geo.NewClient(srv.URL+"/json/", time.Second, nil)
	_, err := c.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "/json", gotPath)
}

func TestResolveLoopbackMatchesNoIP(t *testing.T) {
	var paths []string
	srv := newGeoServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(santiagoReply))
	})
	c := geo.NewClient(srv.URL+"/json", time.Second, nil)

	a, err := c.Resolve(context.Background(), geo.NormalizeClientIP("127.0.0.1"))
	require.NoError(t, err)
	b, err := c.Resolve(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, []string{"/json", "/json"}, paths)
}

func TestResolveMissingFieldsDefaultToUnknown(t *testing.T) {
	srv := newGeoServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "success", "country": "Chile"}`))
	})

	loc, err := geo.NewClient(srv.URL, time.Second, nil).Resolve(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, geo.Unknown, loc.City)
	assert.Equal(t, geo.Unknown, loc.Region)
	assert.Equal(t, "Chile", loc.Country)
	assert.Nil(t, loc.Latitude)
	assert.Equal(t, "Chile", geo.Format(loc))
}

func TestResolveFailStatus(t *testing.T) {
	srv := newGeoServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "fail", "message": "private range", "query": "10.0.0.1"}`))
	})

	_, err := geo.NewClient(srv.URL, time.Second, nil).Resolve(context.Background(), "10.0.0.1")
	require.ErrorIs(t, err, geo.ErrInvalidLocation)
	assert.Contains(t, err.Error(), "private range")
}

func TestResolveUpstreamFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "server error", handler: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{name: "rate limited", handler: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}},
		{name: "garbage body", handler: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>"))
		}},
		{name: "timeout", handler: func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(santiagoReply))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newGeoServer(t, tt.handler)
			_, err := geo.NewClient(srv.URL, 50*time.Millisecond, nil).Resolve(context.Background(), "8.8.8.8")
			require.ErrorIs(t, err, geo.ErrUpstreamUnavailable)
		})
	}
}

func TestResolveUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := geo.NewClient(url, time.Second, nil).Resolve(context.Background(), "")
	require.ErrorIs(t, err, geo.ErrUpstreamUnavailable)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		loc  models.Location
		want string
	}{
		{name: "full", loc: models.Location{City: "Santiago", Region: "Región Metropolitana", Country: "Chile"}, want: "Santiago, Región Metropolitana, Chile"},
		{name: "unknown city", loc: models.Location{City: geo.Unknown, Region: "Valparaíso", Country: "Chile"}, want: "Valparaíso, Chile"},
		{name: "empty region", loc: models.Location{City: "Lima", Country: "Perú"}, want: "Lima, Perú"},
		{name: "all unknown", loc: models.Location{City: geo.Unknown, Region: geo.Unknown, Country: geo.Unknown}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, geo.Format(tt.loc))
			require.Equal(t, geo.Format(tt.loc), geo.Format(tt.loc))
		})
	}
}

func TestNormalizeClientIP(t *testing.T) {
	for _, ip := range []string{"", "127.0.0.1", "::1", "localhost", "0.0.0.0", "127.0.1.1", " 127.0.0.1 "} {
		assert.Empty(t, geo.NormalizeClientIP(ip), ip)
	}
	assert.Equal(t, "190.162.1.1", geo.NormalizeClientIP("190.162.1.1"))
	assert.Equal(t, "2001:db8::1", geo.NormalizeClientIP("2001:db8::1"))
}
