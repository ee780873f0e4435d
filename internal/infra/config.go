package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config: корневая структура конфигурации консоли.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Explainer ExplainerConfig `mapstructure:"explainer"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr: адрес для http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// UpstreamConfig: удаленный MediPredict API (устройства и прогнозы).
type UpstreamConfig struct {
	Mode           string        `mapstructure:"mode"` // http | demo
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"` // запросов в секунду
	RateBurst      int           `mapstructure:"rate_burst"`
	RetryAttempts  uint          `mapstructure:"retry_attempts"`
	ListLimit      int           `mapstructure:"list_limit"` // limit для /api/devices/ и /api/predictions/

	// Настройки Circuit Breaker
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
	CBFailures    uint32        `mapstructure:"cb_failures"` // подряд, после которых размыкаемся
}

// ExplainerConfig: сервис объяснений и оркестратор обогащения.
type ExplainerConfig struct {
	Transport   string        `mapstructure:"transport"` // http | grpc
	GRPCAddr    string        `mapstructure:"grpc_addr"`
	CallTimeout time.Duration `mapstructure:"call_timeout"` // 0: без таймаута
	Concurrency int           `mapstructure:"concurrency"`
	MaxDevices  int           `mapstructure:"max_devices"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"` // 0: без кэша
}

// DashboardConfig: параметры сборки представлений.
type DashboardConfig struct {
	AlertLimit      int           `mapstructure:"alert_limit"`
	TopContributors int           `mapstructure:"top_contributors"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"` // сколько живет готовый снимок
	TimeLayout      string        `mapstructure:"time_layout"`
	TimeZone        string        `mapstructure:"time_zone"`
}

// Location: зона для форматирования времени; неизвестная зона дает ошибку.
func (d DashboardConfig) Location() (*time.Location, error) {
	if d.TimeZone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(d.TimeZone)
}

// DatabaseConfig описывает подключение к PostgreSQL (история снимков парка).
type DatabaseConfig struct {
	URL      string `mapstructure:"url"` // пустой URL отключает историю
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (кэш объяснений).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"` // пустой адрес отключает кэш
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	// .env удобен локально, в контейнере его просто нет
	_ = godotenv.Load()

	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// 2. ENV перекрывает файл: UPSTREAM_BASE_URL перекроет upstream.base_url
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Дефолты
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет: работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("upstream.mode", "http")
	v.SetDefault("upstream.base_url", "http://localhost:8001")
	v.SetDefault("upstream.request_timeout", 10*time.Second)
	v.SetDefault("upstream.rate_limit", 50.0)
	v.SetDefault("upstream.rate_burst", 10)
	v.SetDefault("upstream.retry_attempts", 3)
	v.SetDefault("upstream.list_limit", 1000)
	v.SetDefault("upstream.cb_max_requests", 3)
	v.SetDefault("upstream.cb_interval", 5*time.Second)
	v.SetDefault("upstream.cb_timeout", 30*time.Second)
	v.SetDefault("upstream.cb_failures", 5)

	v.SetDefault("explainer.transport", "http")
	v.SetDefault("explainer.grpc_addr", "")
	v.SetDefault("explainer.call_timeout", 5*time.Second)
	v.SetDefault("explainer.concurrency", 5)
	v.SetDefault("explainer.max_devices", 5)
	v.SetDefault("explainer.cache_ttl", 5*time.Minute)

	v.SetDefault("dashboard.alert_limit", 5)
	v.SetDefault("dashboard.top_contributors", 3)
	v.SetDefault("dashboard.cache_ttl", 15*time.Second)
	v.SetDefault("dashboard.time_layout", "2006-01-02 15:04:05")
	v.SetDefault("dashboard.time_zone", "UTC")

	// Пустые дефолты нужны, чтобы viper увидел ключи из ENV при Unmarshal
	v.SetDefault("database.url", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("metrics.addr", ":9090")
}

func (c *Config) validate() error {
	switch c.Upstream.Mode {
	case "http", "demo":
	default:
		return fmt.Errorf("config: unknown upstream.mode %q", c.Upstream.Mode)
	}
	switch c.Explainer.Transport {
	case "http":
	case "grpc":
		if c.Explainer.GRPCAddr == "" {
			return errors.New("config: explainer.grpc_addr is required for grpc transport")
		}
	default:
		return fmt.Errorf("config: unknown explainer.transport %q", c.Explainer.Transport)
	}
	if c.Upstream.ListLimit <= 0 {
		return errors.New("config: upstream.list_limit must be positive")
	}
	if _, err := c.Dashboard.Location(); err != nil {
		return fmt.Errorf("config: dashboard.time_zone: %w", err)
	}
	return nil
}
