package embed

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
	openrouterx "github.com/tanpawarit/Ivabot/pkg/openrouter"
)

const (
	ProviderOpenAI  = "openai"
	ProviderOllama  = "ollama"
	ProviderHashing = "hashing"
)

type Config struct {
	Provider   string        `envconfig:"PROVIDER" split_words:"true" default:"hashing"`
	Model      string        `envconfig:"MODEL" split_words:"true"`
	BaseURL    string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey     string        `envconfig:"API_KEY" split_words:"true"`
	OllamaHost string        `envconfig:"OLLAMA_HOST" split_words:"true" default:"http://localhost:11434"`
	Dimensions int           `envconfig:"DIMENSIONS" split_words:"true" default:"256"`
	Timeout    time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case ProviderOpenAI:
		if strings.TrimSpace(c.APIKey) == "" {
			return fmt.Errorf("%w: embedding api key is required for provider openai", contractx.ErrValidation)
		}
	case ProviderOllama, ProviderHashing:
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", contractx.ErrValidation, c.Provider)
	}
	return nil
}

// New builds the configured embedder.
func New(c Config) (contractx.Embedder, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case ProviderOpenAI:
		client := openrouterx.NewClient(openrouterx.Config{
			BaseURL: c.BaseURL,
			APIKey:  c.APIKey,
			Timeout: c.Timeout,
		})
		return NewOpenAI(client, c.Model)
	case ProviderOllama:
		return NewOllama(c.OllamaHost, c.Model, c.Timeout)
	default:
		return NewHashing(c.Dimensions), nil
	}
}
