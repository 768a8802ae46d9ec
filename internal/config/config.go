package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/yandex-weather-bridge/internal/validation"
)

// DefaultAPIURL is the Yandex.Weather informers endpoint.
const DefaultAPIURL = "https://api.weather.yandex.ru/v2/informers"

// Config holds bridge configuration loaded from YAML and env.
type Config struct {
	EntityName string
	Latitude   float64
	Longitude  float64

	ServerPort string

	APIKey     string
	APIURL     string
	APITimeout time.Duration

	PollInterval time.Duration
	StaleAfter   time.Duration // entity age beyond which health reports degraded

	SnapshotBackend string // "in_memory" or "memcached"

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RateLimitRPS   int // 0 disables the serving-surface rate limiter
	RateLimitBurst int

	DegradedWindow   time.Duration
	DegradedErrorPct int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration
}

type fileConfig struct {
	Entity struct {
		Name      string   `yaml:"name"`
		Latitude  *float64 `yaml:"latitude"`
		Longitude *float64 `yaml:"longitude"`
	} `yaml:"entity"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"weather_api"`

	Polling struct {
		Interval   string `yaml:"interval"`
		StaleAfter string `yaml:"stale_after"`
	} `yaml:"polling"`

	Snapshot struct {
		Backend   string `yaml:"backend"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"snapshot"`

	Reliability struct {
		RateLimitRPS     *int   `yaml:"rate_limit_rps"`
		RateLimitBurst   int    `yaml:"rate_limit_burst"`
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct int    `yaml:"degraded_error_pct"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`
}

type secretsFile struct {
	YandexWeatherAPIKey string `yaml:"yandex_weather_api_key"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml.
// API key comes from YANDEX_WEATHER_API_KEY env (a .env file is honored) or the secrets file.
// Call from project root.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.EntityName = strings.TrimSpace(fc.Entity.Name)
	if cfg.EntityName == "" {
		cfg.EntityName = "Yandex Weather"
	}
	if fc.Entity.Latitude == nil || fc.Entity.Longitude == nil {
		return nil, fmt.Errorf("entity.latitude and entity.longitude are required")
	}
	cfg.Latitude = *fc.Entity.Latitude
	cfg.Longitude = *fc.Entity.Longitude

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.APIKey = os.Getenv("YANDEX_WEATHER_API_KEY")
	if cfg.APIKey == "" {
		secretsPath := filepath.Join(cwd, "config", "secrets.yaml")
		secretsData, err := os.ReadFile(secretsPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read secrets file: %w", err)
			}
		} else {
			var sec secretsFile
			if err := yaml.Unmarshal(secretsData, &sec); err != nil {
				return nil, fmt.Errorf("parse secrets file: %w", err)
			}
			cfg.APIKey = sec.YandexWeatherAPIKey
		}
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("YANDEX_WEATHER_API_KEY required (set env or config/secrets.yaml yandex_weather_api_key)")
	}

	cfg.APIURL = fc.WeatherAPI.URL
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	cfg.APITimeout = parseDuration(fc.WeatherAPI.Timeout, 5*time.Second)

	cfg.PollInterval = parseDuration(fc.Polling.Interval, 30*time.Minute)
	if cfg.PollInterval < time.Minute {
		cfg.PollInterval = time.Minute
	}
	cfg.StaleAfter = parseDuration(fc.Polling.StaleAfter, 3*cfg.PollInterval)

	cfg.SnapshotBackend = strings.TrimSpace(strings.ToLower(os.Getenv("SNAPSHOT_BACKEND")))
	if cfg.SnapshotBackend == "" {
		cfg.SnapshotBackend = strings.TrimSpace(strings.ToLower(fc.Snapshot.Backend))
	}
	if cfg.SnapshotBackend == "" {
		cfg.SnapshotBackend = "in_memory"
	}
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Snapshot.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Snapshot.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Snapshot.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	// Absent means the default; an explicit 0 or negative disables the limiter.
	if fc.Reliability.RateLimitRPS == nil {
		cfg.RateLimitRPS = 50
	} else if *fc.Reliability.RateLimitRPS > 0 {
		cfg.RateLimitRPS = *fc.Reliability.RateLimitRPS
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 100
	}

	cfg.DegradedWindow = parseDuration(fc.Reliability.DegradedWindow, 3*cfg.PollInterval)
	cfg.DegradedErrorPct = fc.Reliability.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails
// or the result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	if err := validation.ValidateAPIKey(cfg.APIKey); err != nil {
		return fmt.Errorf("api key: %w", err)
	}
	if err := validation.ValidateCoordinates(cfg.Latitude, cfg.Longitude); err != nil {
		return err
	}
	if cfg.APITimeout >= cfg.PollInterval {
		return fmt.Errorf("weather_api.timeout (%s) must be below polling.interval (%s)", cfg.APITimeout, cfg.PollInterval)
	}
	switch cfg.SnapshotBackend {
	case "in_memory", "memcached":
		// valid
	default:
		return fmt.Errorf("snapshot.backend must be in_memory or memcached, got %q", cfg.SnapshotBackend)
	}
	return nil
}
