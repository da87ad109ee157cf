package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	ToolWeather = "weather"

	DefaultCity = "London"
)

type WeatherConfig struct {
	APIKey  string        `envconfig:"API_KEY" split_words:"true"`
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openweathermap.org/data/2.5"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// Weather reports current conditions from OpenWeatherMap.
type Weather struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type WeatherOption func(*Weather)

func WithWeatherHTTPClient(c *http.Client) WeatherOption {
	return func(w *Weather) {
		if c != nil {
			w.client = c
		}
	}
}

func NewWeather(cfg WeatherConfig, opts ...WeatherOption) *Weather {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openweathermap.org/data/2.5"
	}
	w := &Weather{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Weather) Handler() Handler {
	return Handler{
		Info: &schema.ToolInfo{
			Name: ToolWeather,
			Desc: "Useful for getting the current weather in a specific city.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"city": {Type: schema.String, Desc: "City name", Required: true},
			}),
		},
		Args:   WeatherArgs,
		Invoke: w.invoke,
	}
}

// WeatherArgs takes the text after the first "in" as the city.
func WeatherArgs(input string) (map[string]any, error) {
	city := ""
	if idx := strings.Index(input, "in"); idx >= 0 {
		city = strings.TrimSpace(input[idx+len("in"):])
	}
	if city == "" {
		city = DefaultCity
	}
	return map[string]any{"city": city}, nil
}

// CleanCity strips surrounding punctuation and title-cases the name.
func CleanCity(city string) string {
	city = strings.Trim(strings.TrimSpace(city), "?!. ")
	return cases.Title(language.English).String(city)
}

type owmResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
}

func (w *Weather) invoke(ctx context.Context, params map[string]any) (string, error) {
	raw := stringParam(params, "city")
	city := CleanCity(raw)
	log.Info().Str("tool", ToolWeather).Str("original", raw).Str("city", city).Msg("tool call")

	report, err := w.fetch(ctx, city)
	if err != nil {
		log.Error().Err(err).Str("city", city).Msg("weather lookup failed")
		return fmt.Sprintf("I'm sorry, I couldn't find weather information for '%s'. Please check the spelling.", city), nil
	}
	return report, nil
}

func (w *Weather) fetch(ctx context.Context, city string) (string, error) {
	if w.apiKey == "" {
		return "", fmt.Errorf("openweathermap api key is not configured")
	}
	if city == "" {
		return "", fmt.Errorf("empty city")
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", w.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/weather?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openweathermap: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var data owmResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("decode weather response: %w", err)
	}
	return formatWeather(city, data), nil
}

func formatWeather(city string, d owmResponse) string {
	status := "unknown"
	if len(d.Weather) > 0 {
		status = d.Weather[0].Description
	}
	var b strings.Builder
	fmt.Fprintf(&b, "In %s, the current weather is as follows:\n", city)
	fmt.Fprintf(&b, "Detailed status: %s\n", status)
	fmt.Fprintf(&b, "Wind speed: %.1f m/s, direction: %.0f°\n", d.Wind.Speed, d.Wind.Deg)
	fmt.Fprintf(&b, "Humidity: %d%%\n", d.Main.Humidity)
	b.WriteString("Temperature: \n")
	fmt.Fprintf(&b, "  - Current: %.2f°C\n", d.Main.Temp)
	fmt.Fprintf(&b, "  - High: %.2f°C\n", d.Main.TempMax)
	fmt.Fprintf(&b, "  - Low: %.2f°C\n", d.Main.TempMin)
	fmt.Fprintf(&b, "  - Feels like: %.2f°C\n", d.Main.FeelsLike)
	fmt.Fprintf(&b, "Cloud cover: %d%%", d.Clouds.All)
	return b.String()
}
