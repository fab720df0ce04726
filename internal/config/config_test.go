package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchwise/termlens/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "standard", cfg.CostTier)
	assert.Equal(t, "termlens.xlsx", cfg.Workbook)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 30, cfg.Ads.LookbackDays)
	assert.Equal(t, 3, cfg.Classify.MaxAttempts)
	assert.Equal(t, 1, cfg.Classify.Workers)
	assert.Equal(t, 256, cfg.Classify.MaxTokens)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TERMLENS_PROVIDER", "anthropic")
	t.Setenv("TERMLENS_COST_TIER", "cheap")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "cheap", cfg.CostTier)
}

func TestLoad_EnvSecrets(t *testing.T) {
	// Keys with no non-empty default are how operators pass secrets; they
	// must bind from the environment like everything else.
	t.Setenv("TERMLENS_API_KEY", "shared-secret")
	t.Setenv("TERMLENS_ANTHROPIC_KEY", "ak-123")
	t.Setenv("TERMLENS_ADS_DEVELOPER_TOKEN", "dev-token")
	t.Setenv("TERMLENS_ADS_CUSTOMER_ID", "1234567890")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "shared-secret", cfg.APIKey)
	assert.Equal(t, "ak-123", cfg.Anthropic.Key)
	assert.Equal(t, "dev-token", cfg.Ads.DeveloperToken)
	assert.Equal(t, "1234567890", cfg.Ads.CustomerID)

	require.NoError(t, cfg.Validate(), "an env-supplied API key satisfies validation")
}

func TestApplyOverrides(t *testing.T) {
	t.Parallel()

	cfg := &Config{Provider: "openai"}
	cfg.ApplyOverrides(map[string]string{
		"provider":       "gemini",
		"cost_tier":      "cheap",
		"api_key":        "shared-key",
		"gemini_api_key": "gm-key",
		"unknown_key":    "ignored",
		"openai_api_key": "",
	})

	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "cheap", cfg.CostTier)
	assert.Equal(t, "shared-key", cfg.APIKey)
	assert.Equal(t, "gm-key", cfg.Gemini.Key)
	assert.Empty(t, cfg.OpenAI.Key, "empty override values are ignored")
}

func TestApplyOverrides_ModelTargetsActiveProvider(t *testing.T) {
	t.Parallel()

	cfg := &Config{Provider: "anthropic"}
	cfg.ApplyOverrides(map[string]string{"model": "claude-sonnet-4-5-20250929"})

	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Empty(t, cfg.OpenAI.Model)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := &Config{
		Provider: "openai",
		CostTier: "standard",
		Workbook: "book.xlsx",
		APIKey:   "shared",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		reason string
	}{
		{"unknown provider", func(c *Config) { c.Provider = "mistral" }, "unknown provider"},
		{"unknown tier", func(c *Config) { c.CostTier = "premium" }, "unknown cost tier"},
		{"empty workbook", func(c *Config) { c.Workbook = "" }, "workbook path"},
		{"missing api key", func(c *Config) { c.APIKey = "" }, "no API key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := *valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var confErr *ConfigurationError
			require.True(t, errors.As(err, &confErr))
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestKeyFor_ProviderKeyBeatsShared(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		APIKey:    "shared",
		Anthropic: ProviderConfig{Key: "specific"},
	}

	assert.Equal(t, "specific", cfg.KeyFor(model.ProviderAnthropic))
	assert.Equal(t, "shared", cfg.KeyFor(model.ProviderOpenAI))
	assert.Equal(t, "shared", cfg.KeyFor(model.ProviderGemini))
}
