package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nitesh/news_near_me/internal/apperr"
	dbtypes "github.com/nitesh/news_near_me/internal/db"
	"github.com/nitesh/news_near_me/internal/geo"
	"github.com/nitesh/news_near_me/internal/llm"
	"github.com/nitesh/news_near_me/internal/metrics"
	"github.com/nitesh/news_near_me/internal/news"
	"github.com/nitesh/news_near_me/pkg/models"
)

const (
	SourceIP     = "ip"
	SourceManual = "manual"

	previewBytes = 500
)

// ErrHistoryDisabled is returned by History when no recorder is configured.
var ErrHistoryDisabled = errors.New("generation history is not configured")

// GenerationStore persists generation metadata.
type GenerationStore interface {
	Record(ctx context.Context, g *models.Generation) error
	Recent(ctx context.Context, limit int) ([]*models.Generation, error)
}

// Options are the per-request generation knobs shared by both news flows.
type Options struct {
	Limit      int
	Categories []models.NewsCategory
	Language   string
}

type Service struct {
	resolver  geo.Resolver
	generator llm.Generator
	store     GenerationStore
	log       *slog.Logger
	now       func() time.Time
}

// NewService wires the collaborators. store may be nil to disable history.
func NewService(resolver geo.Resolver, generator llm.Generator, store GenerationStore, log *slog.Logger) *Service {
	return &Service{
		resolver:  resolver,
		generator: generator,
		store:     store,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// DetectLocation resolves the caller's IP. Loopback addresses are treated as absent.
func (s *Service) DetectLocation(ctx context.Context, ip string) (models.Location, error) {
	loc, err := s.resolver.Resolve(ctx, geo.NormalizeClientIP(ip))
	if err != nil {
		if errors.Is(err, geo.ErrUpstreamUnavailable) {
			metrics.UpstreamErrors.WithLabelValues("geolocation").Inc()
		}
		return models.Location{}, classifyGeo(err)
	}
	return loc, nil
}

// GetNewsByIP resolves ip to a location and generates news for it.
func (s *Service) GetNewsByIP(ctx context.Context, ip string, opts Options) (*models.NewsResponse, error) {
	loc, err := s.DetectLocation(ctx, ip)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(SourceIP, apperr.KindOf(err).String()).Inc()
		return nil, err
	}

	location := geo.Format(loc)
	if location == "" {
		metrics.RequestsTotal.WithLabelValues(SourceIP, apperr.InvalidInput.String()).Inc()
		return nil, apperr.E(apperr.InvalidInput, "resolve location", errors.New("could not determine a usable location"))
	}
	s.log.Debug("location detected", slog.String("location", location), slog.String("ip", loc.IP))

	return s.generate(ctx, SourceIP, location, opts)
}

// GetNewsForLocation generates news for a manually supplied location.
func (s *Service) GetNewsForLocation(ctx context.Context, city, region, country string, opts Options) (*models.NewsResponse, error) {
	location := JoinLocation(city, region, country)
	if location == "" {
		metrics.RequestsTotal.WithLabelValues(SourceManual, apperr.InvalidInput.String()).Inc()
		return nil, apperr.E(apperr.InvalidInput, "get news", errors.New("at least one of city, region or country is required"))
	}
	return s.generate(ctx, SourceManual, location, opts)
}

// History returns the latest generation records.
func (s *Service) History(ctx context.Context, limit int) ([]*models.Generation, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}
	return s.store.Recent(ctx, limit)
}

// HistoryEnabled reports whether a store is configured.
func (s *Service) HistoryEnabled() bool {
	return s.store != nil
}

// JoinLocation joins the non-blank parts with ", ".
func JoinLocation(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

func (s *Service) generate(ctx context.Context, source, location string, opts Options) (*models.NewsResponse, error) {
	prompt := news.BuildPrompt(location, opts.Limit, opts.Categories, opts.Language)

	start := time.Now()
	raw, err := s.generator.Generate(ctx, prompt)
	elapsed := time.Since(start)
	metrics.GenerationDuration.Observe(elapsed.Seconds())
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("generator").Inc()
		metrics.RequestsTotal.WithLabelValues(source, apperr.GenerationError.String()).Inc()
		return nil, apperr.E(apperr.GenerationError, "generate news", err)
	}

	res := news.Parse(raw, location)
	metrics.RecordParse(len(res.Items), len(res.Skipped), res.Malformed)
	if res.Malformed {
		s.log.Warn("model reply could not be parsed",
			slog.String("location", location),
			slog.Any("err", res.Err),
			slog.String("preview", preview(raw)))
	}
	for _, sk := range res.Skipped {
		s.log.Debug("news entry skipped", slog.Int("index", sk.Index), slog.String("reason", sk.Reason))
	}

	resp := &models.NewsResponse{
		Success:        true,
		Location:       location,
		GeneratedAt:    s.now(),
		TotalNews:      len(res.Items),
		News:           res.Items,
		SkippedEntries: len(res.Skipped),
		ParseFailed:    res.Malformed,
	}
	metrics.RequestsTotal.WithLabelValues(source, "ok").Inc()

	s.record(ctx, source, opts, resp, elapsed)
	return resp, nil
}

// record is best effort: a failing store never fails the request.
func (s *Service) record(ctx context.Context, source string, opts Options, resp *models.NewsResponse, elapsed time.Duration) {
	if s.store == nil {
		return
	}
	cats := make(dbtypes.StringSlice, len(opts.Categories))
	for i, c := range opts.Categories {
		cats[i] = string(c)
	}
	g := &models.Generation{
		ID:          uuid.New().String(),
		Source:      source,
		Location:    resp.Location,
		Language:    opts.Language,
		Limit:       opts.Limit,
		Categories:  cats,
		TotalNews:   resp.TotalNews,
		Skipped:     resp.SkippedEntries,
		ParseFailed: resp.ParseFailed,
		LatencyMs:   elapsed.Milliseconds(),
		CreatedAt:   resp.GeneratedAt,
	}
	if err := s.store.Record(ctx, g); err != nil {
		s.log.Warn("record generation failed", slog.String("id", g.ID), slog.Any("err", err))
	}
}

func classifyGeo(err error) error {
	switch {
	case errors.Is(err, geo.ErrInvalidLocation):
		return apperr.E(apperr.InvalidInput, "resolve location", err)
	case errors.Is(err, geo.ErrUpstreamUnavailable):
		return apperr.E(apperr.UpstreamUnavailable, "resolve location", err)
	default:
		return apperr.E(apperr.Internal, "resolve location", fmt.Errorf("unexpected geolocation error: %w", err))
	}
}

// preview cuts raw to at most previewBytes without splitting a rune.
func preview(raw string) string {
	if len(raw) <= previewBytes {
		return raw
	}
	cut := previewBytes
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return raw[:cut] + "..."
}
