package classify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchwise/termlens/internal/model"
)

func defaultSet() model.CategorySet {
	return model.NewCategorySet(nil)
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		raw            string
		wantCategory   model.Category
		wantConfidence float64
	}{
		{
			name:           "bare JSON",
			raw:            `{"category": "COMMERCIAL", "confidence": 0.92}`,
			wantCategory:   "COMMERCIAL",
			wantConfidence: 0.92,
		},
		{
			name:           "surrounding prose",
			raw:            `Sure! Here is the classification: {"category": "QUESTION", "confidence": 0.8} Hope that helps.`,
			wantCategory:   "QUESTION",
			wantConfidence: 0.8,
		},
		{
			name: "markdown fences",
			raw: "```json\n" + `{"category": "LOCAL", "confidence": 0.7}` + "\n```",
			wantCategory:   "LOCAL",
			wantConfidence: 0.7,
		},
		{
			name:           "lowercase category normalized",
			raw:            `{"category": "geographical", "confidence": 0.95}`,
			wantCategory:   "GEOGRAPHICAL",
			wantConfidence: 0.95,
		},
		{
			name:           "missing confidence defaults",
			raw:            `{"category": "OTHER"}`,
			wantCategory:   "OTHER",
			wantConfidence: 0.5,
		},
		{
			name:           "non-numeric confidence defaults",
			raw:            `{"category": "OTHER", "confidence": "high"}`,
			wantCategory:   "OTHER",
			wantConfidence: 0.5,
		},
		{
			name:           "confidence above range defaults",
			raw:            `{"category": "INFORMATIONAL", "confidence": 1.7}`,
			wantCategory:   "INFORMATIONAL",
			wantConfidence: 0.5,
		},
		{
			name:           "confidence below range defaults",
			raw:            `{"category": "INFORMATIONAL", "confidence": -0.2}`,
			wantCategory:   "INFORMATIONAL",
			wantConfidence: 0.5,
		},
		{
			name:           "boundary confidence passes through",
			raw:            `{"category": "COMMERCIAL", "confidence": 1}`,
			wantCategory:   "COMMERCIAL",
			wantConfidence: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			category, confidence, err := Parse(tt.raw, defaultSet())
			require.NoError(t, err)
			assert.Equal(t, tt.wantCategory, category)
			assert.Equal(t, tt.wantConfidence, confidence)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		raw         string
		wantParse   bool
		wantInvalid bool
	}{
		{name: "no JSON object", raw: "I cannot classify this term.", wantParse: true},
		{name: "empty output", raw: "", wantParse: true},
		{name: "invalid JSON", raw: `{"category": "COMMERCIAL",`, wantParse: true},
		{name: "missing category", raw: `{"confidence": 0.9}`, wantInvalid: true},
		{name: "non-string category", raw: `{"category": 3, "confidence": 0.9}`, wantInvalid: true},
		{name: "out-of-set category is fatal", raw: `{"category": "TRANSACTIONAL", "confidence": 0.9}`, wantInvalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := Parse(tt.raw, defaultSet())
			require.Error(t, err)

			var parseErr *ParseError
			var invalidErr *InvalidCategoryError
			assert.Equal(t, tt.wantParse, errors.As(err, &parseErr))
			assert.Equal(t, tt.wantInvalid, errors.As(err, &invalidErr))
		})
	}
}

func TestParse_AlternateSet(t *testing.T) {
	t.Parallel()

	set := model.NewCategorySet([]model.Category{"INFORMATIONAL", "NAVIGATIONAL", "COMMERCIAL", "LOCAL", "QUESTION"})

	category, _, err := Parse(`{"category": "NAVIGATIONAL", "confidence": 0.6}`, set)
	require.NoError(t, err)
	assert.Equal(t, model.Category("NAVIGATIONAL"), category)

	// GEOGRAPHICAL is not in the five-value set.
	_, _, err = Parse(`{"category": "GEOGRAPHICAL", "confidence": 0.6}`, set)
	var invalidErr *InvalidCategoryError
	require.ErrorAs(t, err, &invalidErr)
}
