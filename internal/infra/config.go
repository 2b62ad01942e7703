package infra

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config - корневая структура конфигурации консоли.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Polling  PollingConfig  `mapstructure:"polling"`
	Map      MapConfig      `mapstructure:"map"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BackendConfig - REST-бэкенд с KPI и чатом.
type BackendConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	ChatTimeout   time.Duration `mapstructure:"chat_timeout"`
	ReadyAttempts uint          `mapstructure:"ready_attempts"`
}

// AgentConfig - транспорт чата и его предохранители.
type AgentConfig struct {
	Mode           string `mapstructure:"mode"` // rest | invoke
	RuntimeAddress string `mapstructure:"runtime_address"`

	// Настройки Circuit Breaker для агента
	CBMaxRequests         uint32        `mapstructure:"cb_max_requests"`
	CBInterval            time.Duration `mapstructure:"cb_interval"`
	CBTimeout             time.Duration `mapstructure:"cb_timeout"`
	CBConsecutiveFailures uint32        `mapstructure:"cb_consecutive_failures"`

	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// PollingConfig - интервалы опроса и параметры запросов вью.
type PollingConfig struct {
	HeaderInterval time.Duration `mapstructure:"header_interval"`
	MapInterval    time.Duration `mapstructure:"map_interval"`
	AnalyticsHours int           `mapstructure:"analytics_hours"`
	TableLimit     int           `mapstructure:"table_limit"`
	HeatmapKPIs    []string      `mapstructure:"heatmap_kpis"`
}

// MapConfig - ключ тайлового провайдера. Только из конфига или ENV.
type MapConfig struct {
	APIKey string `mapstructure:"api_key"`
	Style  string `mapstructure:"style"`
}

// DatabaseConfig описывает подключение к PostgreSQL (журнал). Пустой URL - журнал выключен.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (Pub/Sub уведомлений). Пустой Addr - без Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig - публичный ключ IdP и ожидаемые iss/aud токенов операторов.
// Пустые Issuer и Audience не проверяются.
type AuthConfig struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
	Issuer        string `mapstructure:"issuer"`
	Audience      string `mapstructure:"audience"`
	PublicKey     []byte
}

type JournalConfig struct {
	BufferSize    int           `mapstructure:"buffer_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	return loadConfig(".", "./configs")
}

func loadConfig(paths ...string) (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// 2. ENV перекрывает файл: BACKEND_BASE_URL перекроет backend.base_url
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Установка дефолтных значений
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет - работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 6. Ключ: сначала PEM прямо из ENV (Docker/K8s), иначе файл по пути
	key, err := loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")
	if err != nil {
		return nil, fmt.Errorf("config: auth.public_key_path: %w", err)
	}
	cfg.Auth.PublicKey = key

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет то, без чего консоль не сможет стартовать.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("config: backend.base_url is required")
	}
	switch c.Agent.Mode {
	case "rest":
	case "invoke":
		if c.Agent.RuntimeAddress == "" {
			return errors.New("config: agent.runtime_address is required in invoke mode")
		}
	default:
		return fmt.Errorf("config: unknown agent.mode %q", c.Agent.Mode)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 35*time.Second) // чат отвечает до 30с
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout", 10*time.Second)
	v.SetDefault("backend.chat_timeout", 30*time.Second)
	v.SetDefault("backend.ready_attempts", 5)

	v.SetDefault("agent.mode", "rest")
	v.SetDefault("agent.runtime_address", "")
	v.SetDefault("agent.cb_max_requests", 1)
	v.SetDefault("agent.cb_timeout", 30*time.Second)
	v.SetDefault("agent.cb_consecutive_failures", 5)
	v.SetDefault("agent.rate_limit", 2)
	v.SetDefault("agent.rate_burst", 5)

	v.SetDefault("polling.header_interval", 30*time.Second)
	v.SetDefault("polling.map_interval", 30*time.Second)
	v.SetDefault("polling.analytics_hours", 24)
	v.SetDefault("polling.table_limit", 100)
	v.SetDefault("polling.heatmap_kpis", []string{"rsrp"})

	// Пустые дефолты нужны, чтобы AutomaticEnv видел ключи при Unmarshal
	v.SetDefault("map.api_key", "")
	v.SetDefault("map.style", "dark")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("auth.public_key_path", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")

	v.SetDefault("journal.buffer_size", 1000)
	v.SetDefault("journal.batch_size", 100)
	v.SetDefault("journal.flush_interval", 1*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

// loadKeyResource читает ключ из ENV или файла; nil, если не задано ни то ни другое.
// Заданный, но нечитаемый или пустой файл - ошибка: иначе чат молча останется без авторизации.
func loadKeyResource(path string, envDataKey string) ([]byte, error) {
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data), nil
	}
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("key file %s is empty", path)
	}
	return data, nil
}
