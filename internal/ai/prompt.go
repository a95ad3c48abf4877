package ai

import (
	"fmt"
	"strings"
)

// DefaultCategories rotate through the generated questions.
var DefaultCategories = []string{
	"Géographie", "Histoire", "Science", "Culture", "Sport", "Art", "Littérature",
	"Nature", "Mathématiques", "Musique", "Cinéma", "Technologie", "Gastronomie",
}

func buildGenerationPrompt(count int, avoid, categories []string) string {
	if len(categories) == 0 {
		categories = DefaultCategories
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tu es un expert en création de quiz éducatifs. Génère exactement %d questions de quiz en français.\n\n", count)

	if len(avoid) > 0 {
		b.WriteString("⚠️ IMPORTANT : NE CRÉE PAS de questions identiques ou trop similaires à ces exemples récents :\n\n")
		for i, text := range avoid {
			fmt.Fprintf(&b, "%d. %s\n", i+1, text)
		}
		b.WriteString("\n")
	}

	b.WriteString(`Format STRICTEMENT JSON (sans markdown, sans commentaires, sans texte avant ou après) :
{
  "questions": [
    {
      "question": "Ta question ici ?",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "correctAnswer": 0,
      "category": "Catégorie"
    }
  ]
}

CONSIGNES IMPORTANTES :
`)
	fmt.Fprintf(&b, "- Variété de catégories : %s\n", strings.Join(categories, ", "))
	if len(avoid) > 0 {
		b.WriteString("- Questions ORIGINALES et DIFFÉRENTES des exemples ci-dessus\n")
	}
	b.WriteString(`- Difficulté : moyenne
- Réponses courtes et claires
- correctAnswer est l'INDEX de la bonne réponse (0, 1, 2 ou 3)
- Questions intéressantes et éducatives
- Évite les questions trop génériques
- Retourne UNIQUEMENT le JSON, rien d'autre`)

	return b.String()
}
