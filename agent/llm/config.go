package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
	openrouterx "github.com/tanpawarit/Ivabot/pkg/openrouter"
)

// Role selects per-caller overrides on top of the default model.
type Role string

const (
	RoleChat  Role = "chat"
	RoleSales Role = "sales"
	RoleSynth Role = "synth"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
	ExcludeReasoning   bool          `envconfig:"EXCLUDE_REASONING" split_words:"true" default:"false"`

	ChatModel        string  `envconfig:"CHAT_MODEL" split_words:"true"`
	SalesModel       string  `envconfig:"SALES_MODEL" split_words:"true"`
	SynthModel       string  `envconfig:"SYNTH_MODEL" split_words:"true"`
	ChatTemperature  float32 `envconfig:"CHAT_TEMPERATURE" split_words:"true" default:"-1"`
	SalesTemperature float32 `envconfig:"SALES_TEMPERATURE" split_words:"true" default:"-1"`
	SynthTemperature float32 `envconfig:"SYNTH_TEMPERATURE" split_words:"true" default:"0"`

	BlockedPhrases []string `envconfig:"BLOCKED_PHRASES" split_words:"true"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor resolves the endpoint config for role. Empty model overrides
// and negative temperatures fall back to the defaults.
func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(m string, t float32) {
		if v := strings.TrimSpace(m); v != "" {
			modelName = v
		}
		if t >= 0 {
			temp = t
		}
	}
	switch role {
	case RoleChat:
		override(c.ChatModel, c.ChatTemperature)
	case RoleSales:
		override(c.SalesModel, c.SalesTemperature)
	case RoleSynth:
		override(c.SynthModel, c.SynthTemperature)
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
		ExcludeReasoning:   c.ExcludeReasoning,
	}
}
