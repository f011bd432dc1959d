package models

// NewsCategory is the closed set of topical tags. The value is the wire form.
type NewsCategory string

const (
	CategoryPolitics      NewsCategory = "política"
	CategoryEconomy       NewsCategory = "economía"
	CategorySports        NewsCategory = "deportes"
	CategoryTechnology    NewsCategory = "tecnología"
	CategoryEntertainment NewsCategory = "entretenimiento"
	CategoryHealth        NewsCategory = "salud"
	CategoryEducation     NewsCategory = "educación"
	CategorySecurity      NewsCategory = "seguridad"
	CategoryEnvironment   NewsCategory = "medio ambiente"
	CategoryLocal         NewsCategory = "local"
	CategoryOther         NewsCategory = "otros"
)

var categoryNames = map[NewsCategory]string{
	CategoryPolitics:      "POLITICS",
	CategoryEconomy:       "ECONOMY",
	CategorySports:        "SPORTS",
	CategoryTechnology:    "TECHNOLOGY",
	CategoryEntertainment: "ENTERTAINMENT",
	CategoryHealth:        "HEALTH",
	CategoryEducation:     "EDUCATION",
	CategorySecurity:      "SECURITY",
	CategoryEnvironment:   "ENVIRONMENT",
	CategoryLocal:         "LOCAL",
	CategoryOther:         "OTHER",
}

// AllCategories returns every category in declaration order.
func AllCategories() []NewsCategory {
	return []NewsCategory{
		CategoryPolitics,
		CategoryEconomy,
		CategorySports,
		CategoryTechnology,
		CategoryEntertainment,
		CategoryHealth,
		CategoryEducation,
		CategorySecurity,
		CategoryEnvironment,
		CategoryLocal,
		CategoryOther,
	}
}

// Name returns the upper-case identifier, e.g. "POLITICS".
func (c NewsCategory) Name() string {
	return categoryNames[c]
}

func (c NewsCategory) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}
