package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigEnv: переменная окружения с путём к файлу конфигурации
const ConfigEnv = "VOXELMEM_CONFIG"

// Config корневая структура конфигурации приложения
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	World     WorldConfig     `yaml:"world"`
	Memory    MemoryConfig    `yaml:"memory"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Storage   StorageConfig   `yaml:"storage"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	HTTPPort       int  `yaml:"http_port"`
	MetricsEnabled bool `yaml:"metrics_enabled"`
}

type WorldConfig struct {
	MinY    int   `yaml:"min_y"`
	MaxY    int   `yaml:"max_y"`
	Width   int   `yaml:"width"`
	Seed    int64 `yaml:"seed"`
	Terrain bool  `yaml:"terrain"`
}

type MemoryConfig struct {
	ZStride    int    `yaml:"z_stride"`
	WriteDelta int    `yaml:"write_delta"`
	Polarity   string `yaml:"polarity"`
}

type BridgeConfig struct {
	TPS            int `yaml:"tps"`
	FeedbackBuffer int `yaml:"feedback_buffer"`
}

type StorageConfig struct {
	Backend         string `yaml:"backend"` // none | badger | redis
	Path            string `yaml:"path"`
	RedisAddr       string `yaml:"redis_addr"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	KeyPrefix       string `yaml:"key_prefix"`
	AutosaveSeconds int    `yaml:"autosave_seconds"`
}

// AutosaveInterval возвращает период автосохранения (0: отключено)
func (s StorageConfig) AutosaveInterval() time.Duration {
	return time.Duration(s.AutosaveSeconds) * time.Second
}

type EventBusConfig struct {
	URL       string `yaml:"url"` // пусто: in-memory шина
	Stream    string `yaml:"stream"`
	Subject   string `yaml:"subject"` // корень subject, по умолчанию voxelmem
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Service  string `yaml:"service"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"` // пусто: без авторизации
	TokenTTL  int    `yaml:"token_ttl_hours"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"` // 0: без ограничения
	Burst int     `yaml:"burst"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
}

// Default возвращает конфигурацию эталонного развёртывания
func Default() *Config {
	return &Config{
		Server: ServerConfig{HTTPPort: 8394, MetricsEnabled: true},
		World:  WorldConfig{MinY: -64, MaxY: 320, Width: 16},
		Memory: MemoryConfig{ZStride: 4, WriteDelta: 2, Polarity: "inverted"},
		Bridge: BridgeConfig{TPS: 20, FeedbackBuffer: 1024},
		Storage: StorageConfig{
			Backend:         "none",
			Path:            "data/regions",
			RedisAddr:       "localhost:6379",
			KeyPrefix:       "voxelmem:",
			AutosaveSeconds: 60,
		},
		EventBus:  EventBusConfig{Stream: "VOXELMEM", Retention: 24, Buffer: 1024},
		Telemetry: TelemetryConfig{Service: "voxelmem"},
		Auth:      AuthConfig{TokenTTL: 24},
		Logging:   LoggingConfig{ConsoleLevel: "INFO", FileLevel: "DEBUG"},
	}
}

// GetHTTPPort возвращает порт HTTP API с поддержкой fallback значений
func (s *ServerConfig) GetHTTPPort() int {
	return getPortWithEnvFallback(s.HTTPPort, "VOXELMEM_HTTP_PORT", 8394)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	if c.World.MaxY-c.World.MinY < 2 {
		return fmt.Errorf("world: высота %d..%d меньше двух слоёв", c.World.MinY, c.World.MaxY)
	}
	if c.World.Width != 16 {
		return fmt.Errorf("world: поддерживается только ширина 16, получено %d", c.World.Width)
	}
	if c.Bridge.TPS <= 0 {
		return fmt.Errorf("bridge: tps должен быть положительным, получено %d", c.Bridge.TPS)
	}
	switch c.Storage.Backend {
	case "", "none", "badger", "redis":
	default:
		return fmt.Errorf("storage: неизвестный бэкенд %q", c.Storage.Backend)
	}
	return nil
}

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", пытается прочитать путь из ENV VOXELMEM_CONFIG;
// если и он не задан, возвращает значения по умолчанию.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(ConfigEnv)
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
