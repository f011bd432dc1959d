package news

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/nitesh/news_near_me/pkg/models"
)

// aliases are keyed by folded form (lower case, no diacritics).
var aliases = map[string]models.NewsCategory{
	"politica":        models.CategoryPolitics,
	"politics":        models.CategoryPolitics,
	"economia":        models.CategoryEconomy,
	"economy":         models.CategoryEconomy,
	"deportes":        models.CategorySports,
	"deporte":         models.CategorySports,
	"sports":          models.CategorySports,
	"tecnologia":      models.CategoryTechnology,
	"technology":      models.CategoryTechnology,
	"entretenimiento": models.CategoryEntertainment,
	"entertainment":   models.CategoryEntertainment,
	"salud":           models.CategoryHealth,
	"health":          models.CategoryHealth,
	"educacion":       models.CategoryEducation,
	"education":       models.CategoryEducation,
	"seguridad":       models.CategorySecurity,
	"security":        models.CategorySecurity,
	"medio ambiente":  models.CategoryEnvironment,
	"medioambiente":   models.CategoryEnvironment,
	"environment":     models.CategoryEnvironment,
	"local":           models.CategoryLocal,
	"otros":           models.CategoryOther,
	"otro":            models.CategoryOther,
	"other":           models.CategoryOther,
}

// fold lower-cases s, strips diacritics and collapses inner whitespace.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// CategoryOf maps free model text onto the closed category set. Unknown input yields CategoryOther.
func CategoryOf(s string) models.NewsCategory {
	if c, ok := aliases[fold(s)]; ok {
		return c
	}
	return models.CategoryOther
}

// LookupCategory accepts only a category value or name, ignoring case and accents.
// It is meant for caller-supplied filters, where unknown input is an error.
func LookupCategory(s string) (models.NewsCategory, bool) {
	f := fold(s)
	if f == "" {
		return "", false
	}
	for _, c := range models.AllCategories() {
		if f == fold(string(c)) || f == strings.ToLower(c.Name()) {
			return c, true
		}
	}
	return "", false
}
