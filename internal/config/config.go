package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/searchwise/termlens/internal/model"
)

// Config holds the full application configuration. File and environment
// values are the defaults; the workbook Settings sheet can override them
// at run time.
type Config struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	CostTier string `yaml:"cost_tier" mapstructure:"cost_tier"`

	// Workbook is the path to the XLSX workbook used as the term source,
	// settings override surface and result sink.
	Workbook string `yaml:"workbook" mapstructure:"workbook"`

	// PricingFile optionally overrides the built-in price table.
	PricingFile string `yaml:"pricing_file" mapstructure:"pricing_file"`

	// APIKey is the shared default key; a provider-specific key overrides it.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	Ads       AdsConfig       `yaml:"ads" mapstructure:"ads"`
	OpenAI    ProviderConfig  `yaml:"openai" mapstructure:"openai"`
	Anthropic ProviderConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    ProviderConfig  `yaml:"gemini" mapstructure:"gemini"`
	Classify  ClassifyConfig  `yaml:"classify" mapstructure:"classify"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AdsConfig holds Google Ads reporting credentials and query settings.
type AdsConfig struct {
	CustomerID      string `yaml:"customer_id" mapstructure:"customer_id"`
	DeveloperToken  string `yaml:"developer_token" mapstructure:"developer_token"`
	AccessToken     string `yaml:"access_token" mapstructure:"access_token"`
	LoginCustomerID string `yaml:"login_customer_id" mapstructure:"login_customer_id"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	LookbackDays    int    `yaml:"lookback_days" mapstructure:"lookback_days"`
}

// ProviderConfig holds per-provider API settings. Key overrides the shared
// APIKey; Model overrides the tier-selected model from the price table.
type ProviderConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// ClassifyConfig tunes the classification driver.
type ClassifyConfig struct {
	MaxAttempts int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	Workers     int      `yaml:"workers" mapstructure:"workers"`
	QPS         float64  `yaml:"qps" mapstructure:"qps"`
	MaxTokens   int      `yaml:"max_tokens" mapstructure:"max_tokens"`
	Categories  []string `yaml:"categories" mapstructure:"categories"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ConfigurationError marks an invalid run configuration. It is fatal:
// caught once at the top level, written to the Logs tab, and the run
// aborts with no partial output.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TERMLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key gets one, even if empty: AutomaticEnv only
	// surfaces keys viper already knows about, so an unregistered key
	// would make its TERMLENS_* variable a silent no-op.
	v.SetDefault("provider", "openai")
	v.SetDefault("cost_tier", "standard")
	v.SetDefault("workbook", "termlens.xlsx")
	v.SetDefault("pricing_file", "")
	v.SetDefault("api_key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("ads.customer_id", "")
	v.SetDefault("ads.developer_token", "")
	v.SetDefault("ads.access_token", "")
	v.SetDefault("ads.login_customer_id", "")
	v.SetDefault("ads.base_url", "https://googleads.googleapis.com/v17")
	v.SetDefault("ads.lookback_days", 30)
	v.SetDefault("openai.key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com")
	v.SetDefault("openai.model", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.model", "")
	v.SetDefault("classify.max_attempts", 3)
	v.SetDefault("classify.workers", 1)
	v.SetDefault("classify.qps", 2.0)
	v.SetDefault("classify.max_tokens", 256)
	v.SetDefault("classify.categories", []string{})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// ApplyOverrides merges workbook Settings values over the loaded config.
// Recognized keys are lowercase; unknown keys are logged and skipped so a
// stray Settings row never fails the run.
func (c *Config) ApplyOverrides(settings map[string]string) {
	for key, val := range settings {
		if val == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "provider":
			c.Provider = val
		case "cost_tier":
			c.CostTier = val
		case "api_key":
			c.APIKey = val
		case "openai_api_key":
			c.OpenAI.Key = val
		case "anthropic_api_key":
			c.Anthropic.Key = val
		case "gemini_api_key":
			c.Gemini.Key = val
		case "model":
			switch prov, _ := model.ParseProvider(c.Provider); prov {
			case model.ProviderOpenAI:
				c.OpenAI.Model = val
			case model.ProviderAnthropic:
				c.Anthropic.Model = val
			case model.ProviderGemini:
				c.Gemini.Model = val
			}
		default:
			zap.L().Warn("unknown settings key, skipping", zap.String("key", key))
		}
	}
}

// Validate checks the configuration needed for a classification run.
func (c *Config) Validate() error {
	provider, ok := model.ParseProvider(c.Provider)
	if !ok {
		return &ConfigurationError{Reason: fmt.Sprintf("unknown provider %q", c.Provider)}
	}
	if _, ok := model.ParseCostTier(c.CostTier); !ok {
		return &ConfigurationError{Reason: fmt.Sprintf("unknown cost tier %q", c.CostTier)}
	}
	if c.Workbook == "" {
		return &ConfigurationError{Reason: "workbook path is empty"}
	}
	if c.KeyFor(provider) == "" {
		return &ConfigurationError{Reason: fmt.Sprintf("no API key for provider %q", provider)}
	}
	return nil
}

// KeyFor returns the API key for a provider: the provider-specific key when
// present, otherwise the shared default key.
func (c *Config) KeyFor(provider model.Provider) string {
	var key string
	switch provider {
	case model.ProviderOpenAI:
		key = c.OpenAI.Key
	case model.ProviderAnthropic:
		key = c.Anthropic.Key
	case model.ProviderGemini:
		key = c.Gemini.Key
	}
	if key == "" {
		key = c.APIKey
	}
	return key
}

// ModelOverrideFor returns the configured model override for a provider,
// or "" when the tier-selected default should be used.
func (c *Config) ModelOverrideFor(provider model.Provider) string {
	switch provider {
	case model.ProviderOpenAI:
		return c.OpenAI.Model
	case model.ProviderAnthropic:
		return c.Anthropic.Model
	case model.ProviderGemini:
		return c.Gemini.Model
	}
	return ""
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
