package news

import (
	"fmt"
	"strings"

	"github.com/nitesh/news_near_me/pkg/models"
)

const promptTemplate = `Eres un asistente de noticias experto. Necesito que me proporciones un listado de las %[2]d noticias más relevantes que estén sucediendo actualmente cerca de la siguiente ubicación:

**Ubicación:** %[1]s
%[3]s
**Instrucciones importantes:**
1. Las noticias deben ser relevantes para esa ubicación específica (ciudad, región o país)
2. Incluye noticias locales, regionales y nacionales que afecten a esa zona
3. Prioriza noticias recientes y de alto impacto
4. El idioma de respuesta debe ser: %[4]s

**IMPORTANTE: Responde ÚNICAMENTE con un JSON válido, sin texto adicional, sin markdown, sin explicaciones.**

El JSON debe tener exactamente esta estructura:
{
    "news": [
        {
            "id": 1,
            "title": "Título de la noticia",
            "summary": "Resumen breve explicando la noticia",
            "category": "una de: %[5]s",
            "relevance_score": 8,
            "location_context": "Por qué es relevante para %[1]s",
            "estimated_date": "mes y año aproximados",
            "keywords": ["palabra1", "palabra2", "palabra3"]
        }
    ]
}

Genera exactamente %[2]d noticias ordenadas por relevancia (de mayor a menor).
`

// BuildPrompt renders the instruction sent to the model. Input ranges are the caller's concern.
func BuildPrompt(location string, limit int, categories []models.NewsCategory, language string) string {
	var focus string
	if len(categories) > 0 {
		focus = fmt.Sprintf("\nEnfócate especialmente en estas categorías: %s\n", joinCategories(categories))
	}
	return fmt.Sprintf(promptTemplate, location, limit, focus, language, joinCategories(models.AllCategories()))
}

func joinCategories(cs []models.NewsCategory) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}
