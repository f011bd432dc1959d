package news

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nitesh/news_near_me/pkg/models"
)

const (
	DefaultTitle   = "Sin título"
	DefaultSummary = "Sin resumen disponible"
	defaultScore   = 5
	minScore       = 1
	maxScore       = 10
)

var errNoObject = errors.New("no JSON object found in reply")

// SkippedEntry records an array entry that could not become a NewsItem.
type SkippedEntry struct {
	Index  int    `json:"index"` // 1-based position in the "news" array
	Reason string `json:"reason"`
}

// ParseResult is the outcome of decoding one model reply.
// Malformed is set when no news array could be decoded at all; Err then holds the cause.
type ParseResult struct {
	Items     []models.NewsItem
	Skipped   []SkippedEntry
	Malformed bool
	Err       error
}

// Degraded reports whether anything in the reply was dropped.
func (r ParseResult) Degraded() bool {
	return r.Malformed || len(r.Skipped) > 0
}

// Parse turns a free-text reply into news items. It never fails as a whole:
// undecodable input yields a Malformed result with no items, and bad entries are skipped one by one.
func Parse(raw, location string) ParseResult {
	res := ParseResult{Items: []models.NewsItem{}}

	entries, err := decodeEntries(raw)
	if err != nil {
		res.Malformed = true
		res.Err = err
		return res
	}

	seen := make(map[int]bool, len(entries))
	maxID := 0
	for i, entry := range entries {
		pos := i + 1
		item, err := buildItem(entry, pos, location)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedEntry{Index: pos, Reason: err.Error()})
			continue
		}
		// ids must be unique within a batch
		if seen[item.ID] {
			item.ID = pos
			if seen[item.ID] {
				item.ID = maxID + 1
			}
		}
		seen[item.ID] = true
		if item.ID > maxID {
			maxID = item.ID
		}
		res.Items = append(res.Items, item)
	}
	return res
}

// extractObject returns the text between the first '{' and the last '}'.
func extractObject(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

func decodeEntries(raw string) ([]json.RawMessage, error) {
	obj, ok := extractObject(raw)
	if !ok {
		return nil, errNoObject
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &top); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}

	list, ok := top["news"]
	if !ok || isNull(list) {
		return nil, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(list, &entries); err != nil {
		return nil, fmt.Errorf(`decode "news" array: %w`, err)
	}
	return entries, nil
}

func buildItem(entry json.RawMessage, pos int, location string) (models.NewsItem, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil || fields == nil {
		return models.NewsItem{}, errors.New("entry is not an object")
	}

	id, err := intField(fields, "id", pos)
	if err != nil {
		return models.NewsItem{}, err
	}
	if id <= 0 {
		id = pos
	}

	title, err := stringField(fields, "title", DefaultTitle)
	if err != nil {
		return models.NewsItem{}, err
	}
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}

	summary, err := stringField(fields, "summary", DefaultSummary)
	if err != nil {
		return models.NewsItem{}, err
	}

	score, err := intField(fields, "relevance_score", defaultScore)
	if err != nil {
		return models.NewsItem{}, err
	}

	locationContext, err := stringField(fields, "location_context", location)
	if err != nil {
		return models.NewsItem{}, err
	}

	var estimated *string
	if raw, ok := fields["estimated_date"]; ok && !isNull(raw) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return models.NewsItem{}, errors.New(`field "estimated_date" is not a string`)
		}
		estimated = &s
	}

	return models.NewsItem{
		ID:              id,
		Title:           title,
		Summary:         summary,
		Category:        categoryField(fields),
		RelevanceScore:  clamp(score, minScore, maxScore),
		LocationContext: locationContext,
		EstimatedDate:   estimated,
		Keywords:        keywordsField(fields),
	}, nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

// stringField returns fallback when the key is absent or null, and an error for non-string values.
func stringField(fields map[string]json.RawMessage, key, fallback string) (string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return fallback, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("field %q is not a string", key)
	}
	return s, nil
}

// intField accepts JSON numbers and numeric strings. Fractions are truncated.
func intField(fields map[string]json.RawMessage, key string, fallback int) (int, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return fallback, nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if serr := json.Unmarshal(raw, &s); serr != nil {
			return 0, fmt.Errorf("field %q is not a number", key)
		}
		if f, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return 0, fmt.Errorf("field %q is not a number", key)
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("field %q is not a finite number", key)
	}
	// keep the conversion inside int range before clamping
	f = math.Max(math.Min(math.Trunc(f), math.MaxInt32), math.MinInt32)
	return int(f), nil
}

// categoryField never fails: anything that is not a known category string becomes CategoryOther.
func categoryField(fields map[string]json.RawMessage) models.NewsCategory {
	var s string
	if raw, ok := fields["category"]; ok {
		if err := json.Unmarshal(raw, &s); err != nil {
			return models.CategoryOther
		}
	}
	return CategoryOf(s)
}

// keywordsField falls back to an empty list unless the value is an array of strings.
func keywordsField(fields map[string]json.RawMessage) []string {
	raw, ok := fields["keywords"]
	if !ok {
		return []string{}
	}
	var kw []string
	if err := json.Unmarshal(raw, &kw); err != nil || kw == nil {
		return []string{}
	}
	return kw
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
