package classify

import (
	"fmt"
	"strings"

	"github.com/searchwise/termlens/internal/model"
)

// categoryGuidance describes the intent behind each built-in category so
// the model separates look-alikes (a named place is GEOGRAPHICAL, a
// near-me query is LOCAL).
var categoryGuidance = map[model.Category]string{
	"INFORMATIONAL": "the user wants to learn something (how-to, guides, definitions)",
	"NAVIGATIONAL":  "the user is trying to reach a specific site or brand",
	"COMMERCIAL":    "the user is researching or comparing products or services to buy",
	"LOCAL":         "the user wants something nearby (near me, open now, in my area)",
	"GEOGRAPHICAL":  "the term names a specific place: a country, state, city or region (e.g. \"swimwear australia\"); use this, not LOCAL, when a location is named",
	"QUESTION":      "the term is phrased as a direct question (who/what/when/where/why/how)",
	"OTHER":         "none of the other categories fit",
}

// BuildSystemPrompt renders the classification instructions for the active
// category set. The model must answer with a bare JSON object and nothing
// else.
func BuildSystemPrompt(set model.CategorySet) string {
	var b strings.Builder

	b.WriteString("You classify Google Ads search terms by user intent.\n")
	b.WriteString("Assign exactly one category from this list:\n")
	for _, c := range set.List() {
		if hint, ok := categoryGuidance[c]; ok {
			fmt.Fprintf(&b, "- %s: %s\n", c, hint)
		} else {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	b.WriteString("\nRespond with ONLY a JSON object, no prose, no markdown fences:\n")
	b.WriteString(`{"category": "<one of the categories above>", "confidence": <number between 0 and 1>}`)

	return b.String()
}

// BuildUserPrompt renders the per-term message.
func BuildUserPrompt(term model.Term) string {
	return fmt.Sprintf("Search term: %q", string(term))
}
