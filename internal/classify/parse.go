package classify

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/searchwise/termlens/internal/model"
)

// defaultConfidence replaces a missing, non-numeric or out-of-range
// confidence. Confidence repair never fails a parse.
const defaultConfidence = 0.5

// Parse extracts a classification from free-form model output. It locates
// the outermost {...} span, parses it as JSON, validates the category
// against the active set and repairs the confidence. Category problems are
// hard failures so the retry driver gets another attempt.
func Parse(raw string, set model.CategorySet) (model.Category, float64, error) {
	cleaned := cleanJSON(raw)
	if !strings.HasPrefix(cleaned, "{") {
		return "", 0, &ParseError{Reason: "no JSON object in output", Raw: raw}
	}

	var payload struct {
		Category   any `json:"category"`
		Confidence any `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return "", 0, &ParseError{Reason: err.Error(), Raw: raw}
	}

	name, ok := payload.Category.(string)
	if !ok {
		return "", 0, &InvalidCategoryError{}
	}

	category := model.Category(strings.ToUpper(strings.TrimSpace(name)))
	if !set.Contains(category) {
		return "", 0, &InvalidCategoryError{Category: name}
	}

	return category, repairConfidence(payload.Confidence), nil
}

// repairConfidence clamps the parsed confidence to a usable value. JSON
// numbers inside [0,1] pass through; everything else becomes 0.5.
func repairConfidence(v any) float64 {
	conf, ok := v.(float64)
	if !ok {
		if v != nil {
			zap.L().Debug("non-numeric confidence in model output, using default")
		}
		return defaultConfidence
	}
	if conf < 0 || conf > 1 {
		return defaultConfidence
	}
	return conf
}

// cleanJSON strips markdown fences and trims the text to the first '{'
// through the last '}'.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
