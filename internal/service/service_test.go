package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitesh/news_near_me/internal/apperr"
	"github.com/nitesh/news_near_me/internal/geo"
	"github.com/nitesh/news_near_me/internal/metrics"
	"github.com/nitesh/news_near_me/pkg/models"
)

type fakeResolver struct {
	loc    models.Location
	err    error
	gotIPs []string
}

func (f *fakeResolver) Resolve(_ context.Context, ip string) (models.Location, error) {
	f.gotIPs = append(f.gotIPs, ip)
	return f.loc, f.err
}

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeStore struct {
	records []*models.Generation
	err     error
}

func (f *fakeStore) Record(_ context.Context, g *models.Generation) error {
	f.records = append(f.records, g)
	return f.err
}

func (f *fakeStore) Recent(_ context.Context, limit int) ([]*models.Generation, error) {
	if limit < len(f.records) {
		return f.records[:limit], f.err
	}
	return f.records, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func replyWith(n int) string {
	entries := make([]string, n)
	for i := range entries {
		entries[i] = fmt.Sprintf(`{"id": %d, "title": "Noticia %d", "summary": "s", "category": "local", "relevance_score": %d, "location_context": "c", "estimated_date": "2024", "keywords": ["k"]}`, i+1, i+1, 10-i)
	}
	return `{"news": [` + strings.Join(entries, ",") + `]}`
}

var santiagoLoc = models.Location{City: "Santiago", Region: "Región Metropolitana", Country: "Chile", IP: "190.162.1.1"}

func TestGetNewsByIPEndToEnd(t *testing.T) {
	res := &fakeResolver{loc: santiagoLoc}
	gen := &fakeGenerator{reply: replyWith(3)}
	st := &fakeStore{}
	svc := NewService(res, gen, st, discardLogger())
	fixed := time.Date(2024, 1, 22, 15, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	resp, err := svc.GetNewsByIP(context.Background(), "190.162.1.1", Options{Limit: 3, Language: "es"})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "Santiago, Región Metropolitana, Chile", resp.Location)
	assert.Equal(t, 3, resp.TotalNews)
	assert.Len(t, resp.News, resp.TotalNews)
	assert.Equal(t, fixed, resp.GeneratedAt)
	assert.False(t, resp.ParseFailed)
	assert.Zero(t, resp.SkippedEntries)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Santiago, Región Metropolitana, Chile")
	assert.Contains(t, gen.prompts[0], "exactamente 3 noticias")

	require.Len(t, st.records, 1)
	rec := st.records[0]
	assert.Equal(t, SourceIP, rec.Source)
	assert.Equal(t, 3, rec.TotalNews)
	assert.Equal(t, fixed, rec.CreatedAt)
	assert.NotEmpty(t, rec.ID)
}

func TestGetNewsByIPLoopbackIsAbsent(t *testing.T) {
	res := &fakeResolver{loc: santiagoLoc}
	svc := NewService(res, &fakeGenerator{reply: replyWith(1)}, nil, discardLogger())

	_, err := svc.GetNewsByIP(context.Background(), "127.0.0.1", Options{Limit: 1, Language: "es"})
	require.NoError(t, err)
	_, err = svc.GetNewsByIP(context.Background(), "", Options{Limit: 1, Language: "es"})
	require.NoError(t, err)

	assert.Equal(t, []string{"", ""}, res.gotIPs)
}

func TestGetNewsByIPErrors(t *testing.T) {
	tests := []struct {
		name     string
		resolver *fakeResolver
		gen      *fakeGenerator
		want     apperr.Kind
	}{
		{
			name:     "geolocation unreachable",
			resolver: &fakeResolver{err: fmt.Errorf("%w: dial tcp", geo.ErrUpstreamUnavailable)},
			gen:      &fakeGenerator{},
			want:     apperr.UpstreamUnavailable,
		},
		{
			name:     "lookup fail status",
			resolver: &fakeResolver{err: fmt.Errorf("%w: reserved range", geo.ErrInvalidLocation)},
			gen:      &fakeGenerator{},
			want:     apperr.InvalidInput,
		},
		{
			name:     "all segments unknown",
			resolver: &fakeResolver{loc: models.Location{City: geo.Unknown, Region: geo.Unknown, Country: geo.Unknown}},
			gen:      &fakeGenerator{},
			want:     apperr.InvalidInput,
		},
		{
			name:     "generator fails",
			resolver: &fakeResolver{loc: santiagoLoc},
			gen:      &fakeGenerator{err: errors.New("quota exceeded")},
			want:     apperr.GenerationError,
		},
		{
			name:     "unexpected resolver error",
			resolver: &fakeResolver{err: errors.New("boom")},
			gen:      &fakeGenerator{},
			want:     apperr.Internal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.resolver, tt.gen, nil, discardLogger())
			resp, err := svc.GetNewsByIP(context.Background(), "8.8.8.8", Options{Limit: 5, Language: "es"})
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Equal(t, tt.want, apperr.KindOf(err))
		})
	}
}

func TestGetNewsByIPDoesNotCallGeneratorOnGeoFailure(t *testing.T) {
	gen := &fakeGenerator{}
	svc := NewService(&fakeResolver{err: geo.ErrUpstreamUnavailable}, gen, nil, discardLogger())

	_, err := svc.GetNewsByIP(context.Background(), "8.8.8.8", Options{Limit: 5})
	require.Error(t, err)
	assert.Empty(t, gen.prompts)
}

func TestGetNewsForLocation(t *testing.T) {
	gen := &fakeGenerator{reply: replyWith(2)}
	res := &fakeResolver{}
	st := &fakeStore{}
	svc := NewService(res, gen, st, discardLogger())

	resp, err := svc.GetNewsForLocation(context.Background(), " Lima ", "", "Perú", Options{
		Limit:      2,
		Categories: []models.NewsCategory{models.CategorySports},
		Language:   "es",
	})
	require.NoError(t, err)

	assert.Equal(t, "Lima, Perú", resp.Location)
	assert.Equal(t, 2, resp.TotalNews)
	assert.Empty(t, res.gotIPs)
	assert.Contains(t, gen.prompts[0], "Enfócate especialmente en estas categorías: deportes")
	require.Len(t, st.records, 1)
	assert.Equal(t, SourceManual, st.records[0].Source)
	assert.Equal(t, []string{"deportes"}, []string(st.records[0].Categories))
}

func TestGetNewsForLocationRequiresAField(t *testing.T) {
	gen := &fakeGenerator{}
	svc := NewService(&fakeResolver{}, gen, nil, discardLogger())

	_, err := svc.GetNewsForLocation(context.Background(), "", "  ", "", Options{Limit: 5})
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
	assert.Empty(t, gen.prompts)
}

func TestGarbageReplyIsObservable(t *testing.T) {
	svc := NewService(&fakeResolver{}, &fakeGenerator{reply: "not json at all"}, nil, discardLogger())

	resp, err := svc.GetNewsForLocation(context.Background(), "Quito", "", "", Options{Limit: 5})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, resp.ParseFailed)
	assert.Zero(t, resp.TotalNews)
	assert.NotNil(t, resp.News)
}

func TestPartialReplyCountsSkipped(t *testing.T) {
	reply := `{"news": [{"title": "ok"}, 42, {"title": false}]}`
	svc := NewService(&fakeResolver{}, &fakeGenerator{reply: reply}, nil, discardLogger())

	resp, err := svc.GetNewsForLocation(context.Background(), "Quito", "", "", Options{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalNews)
	assert.Equal(t, 2, resp.SkippedEntries)
	assert.False(t, resp.ParseFailed)
}

func TestStoreFailureDoesNotFailRequest(t *testing.T) {
	st := &fakeStore{err: errors.New("db down")}
	svc := NewService(&fakeResolver{}, &fakeGenerator{reply: replyWith(1)}, st, discardLogger())

	resp, err := svc.GetNewsForLocation(context.Background(), "Quito", "", "", Options{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalNews)
}

func TestHistory(t *testing.T) {
	svc := NewService(&fakeResolver{}, &fakeGenerator{}, nil, discardLogger())
	_, err := svc.History(context.Background(), 5)
	require.ErrorIs(t, err, ErrHistoryDisabled)
	assert.False(t, svc.HistoryEnabled())

	st := &fakeStore{records: []*models.Generation{{ID: "a"}, {ID: "b"}}}
	svc = NewService(&fakeResolver{}, &fakeGenerator{}, st, discardLogger())
	rows, err := svc.History(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, svc.HistoryEnabled())
}

func TestJoinLocation(t *testing.T) {
	assert.Equal(t, "Santiago, Región Metropolitana, Chile", JoinLocation("Santiago", "Región Metropolitana", "Chile"))
	assert.Equal(t, "Chile", JoinLocation("", " ", "Chile"))
	assert.Empty(t, JoinLocation("", "", ""))
}

func TestUpstreamErrorsCountOnlyOutages(t *testing.T) {
	geoErrors := metrics.UpstreamErrors.WithLabelValues("geolocation")
	before := testutil.ToFloat64(geoErrors)

	svc := NewService(&fakeResolver{err: fmt.Errorf("%w: private range", geo.ErrInvalidLocation)}, &fakeGenerator{}, nil, discardLogger())
	_, err := svc.DetectLocation(context.Background(), "10.0.0.1")
	require.Error(t, err)
	assert.Equal(t, before, testutil.ToFloat64(geoErrors))

	svc = NewService(&fakeResolver{err: fmt.Errorf("%w: dial tcp", geo.ErrUpstreamUnavailable)}, &fakeGenerator{}, nil, discardLogger())
	_, err = svc.DetectLocation(context.Background(), "8.8.8.8")
	require.Error(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(geoErrors))
}

func TestPreviewKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "corto", preview("corto"))

	raw := strings.Repeat("a", previewBytes-1) + "ín" + strings.Repeat("b", 10)
	p := preview(raw)
	assert.True(t, utf8.ValidString(p))
	assert.Equal(t, strings.Repeat("a", previewBytes-1)+"...", p)

	ascii := strings.Repeat("x", previewBytes+20)
	assert.Equal(t, strings.Repeat("x", previewBytes)+"...", preview(ascii))
}
