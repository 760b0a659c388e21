// Package weather looks up current conditions and a short daily forecast
// from OpenWeatherMap.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"agrivoice/internal/config"

	"github.com/sirupsen/logrus"
)

const maxForecastDays = 5

var (
	// ErrMissingAPIKey is returned when no OpenWeatherMap key is configured.
	ErrMissingAPIKey = errors.New("OpenWeatherMap API key is missing")
	// ErrCityNotFound wraps failures of the current-conditions call.
	ErrCityNotFound = errors.New("city not found or API error")
	// ErrForecastUnavailable wraps failures of the forecast call.
	ErrForecastUnavailable = errors.New("forecast data unavailable")
)

// Conditions is one observation or forecast summary.
type Conditions struct {
	Temp        float64 `json:"temp"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

// Day is the first forecast slot of one UTC date.
type Day struct {
	Date        string  `json:"date"` // YYYY-MM-DD
	TempMin     float64 `json:"tempMin"`
	TempMax     float64 `json:"tempMax"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

// Report is the result of one lookup.
type Report struct {
	City     string     `json:"city"`
	Current  Conditions `json:"current"`
	Forecast []Day      `json:"forecast"`
}

// Client calls the OpenWeatherMap 2.5 API.
type Client struct {
	HTTPClient *http.Client
	APIKey     string
	BaseURL    string
	Units      string
	logger     *logrus.Logger
}

func NewClient(apiKey, baseURL, units string, logger *logrus.Logger) *Client {
	if baseURL == "" {
		baseURL = config.DefaultWeatherURL
	}
	if units == "" {
		units = "metric"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		APIKey:     strings.TrimSpace(apiKey),
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Units:      units,
		logger:     logger,
	}
}

// NewFromConfig reads the [weather] section.
func NewFromConfig(cfg *config.Config, logger *logrus.Logger) *Client {
	return NewClient(cfg.Weather.APIKey, cfg.Weather.BaseURL, cfg.Weather.Units, logger)
}

type owmWeather struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type owmMain struct {
	Temp     float64 `json:"temp"`
	TempMin  float64 `json:"temp_min"`
	TempMax  float64 `json:"temp_max"`
	Humidity int     `json:"humidity"`
}

type owmWind struct {
	Speed float64 `json:"speed"`
}

type currentResponse struct {
	Name    string       `json:"name"`
	Main    owmMain      `json:"main"`
	Wind    owmWind      `json:"wind"`
	Weather []owmWeather `json:"weather"`
}

type forecastResponse struct {
	List []struct {
		Dt      int64        `json:"dt"`
		Main    owmMain      `json:"main"`
		Wind    owmWind      `json:"wind"`
		Weather []owmWeather `json:"weather"`
	} `json:"list"`
}

// Lookup fetches current conditions, then the forecast, for city.
func (c *Client) Lookup(ctx context.Context, city string) (*Report, error) {
	if c.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, fmt.Errorf("%w: empty city", ErrCityNotFound)
	}

	var cur currentResponse
	if err := c.get(ctx, "weather", city, &cur); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCityNotFound, err)
	}
	var fc forecastResponse
	if err := c.get(ctx, "forecast", city, &fc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrForecastUnavailable, err)
	}

	report := &Report{
		City: cur.Name,
		Current: Conditions{
			Temp:      cur.Main.Temp,
			Humidity:  cur.Main.Humidity,
			WindSpeed: cur.Wind.Speed,
		},
		Forecast: []Day{},
	}
	if len(cur.Weather) > 0 {
		report.Current.Description = cur.Weather[0].Description
		report.Current.Icon = cur.Weather[0].Icon
	}

	seen := map[string]bool{}
	for _, item := range fc.List {
		if len(report.Forecast) >= maxForecastDays {
			break
		}
		date := time.Unix(item.Dt, 0).UTC().Format("2006-01-02")
		if seen[date] {
			continue
		}
		seen[date] = true
		day := Day{
			Date:      date,
			TempMin:   item.Main.TempMin,
			TempMax:   item.Main.TempMax,
			Humidity:  item.Main.Humidity,
			WindSpeed: item.Wind.Speed,
		}
		if len(item.Weather) > 0 {
			day.Description = item.Weather[0].Description
			day.Icon = item.Weather[0].Icon
		}
		report.Forecast = append(report.Forecast, day)
	}
	c.logger.Debugf("weather %s: %.1f°, %d forecast days", report.City, report.Current.Temp, len(report.Forecast))
	return report, nil
}

func (c *Client) get(ctx context.Context, resource, city string, out any) error {
	q := url.Values{}
	q.Set("q", city)
	q.Set("units", c.Units)
	q.Set("appid", c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/"+resource+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = c.BaseURL + "/" + resource
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		c.logger.Debugf("openweathermap %s status=%d body=%s", resource, resp.StatusCode, strings.TrimSpace(string(b)))
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", resource, err)
	}
	return nil
}

// IconURL returns the OpenWeatherMap image for an icon code.
func IconURL(icon string) string {
	if icon == "" {
		return ""
	}
	return "https://openweathermap.org/img/wn/" + icon + "@2x.png"
}
