package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервера.
// Значение поля берется из YAML, затем из переменной окружения, затем по умолчанию.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	World     WorldConfig     `yaml:"world"`
	Logging   LoggingConfig   `yaml:"logging"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Cache     CacheConfig     `yaml:"cache"`
	Auth      AuthConfig      `yaml:"auth"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Blocks    BlocksConfig    `yaml:"blocks"`
}

type ServerConfig struct {
	GamePort       int    `yaml:"game_port"`
	Transport      string `yaml:"transport"` // tcp | kcp
	RESTPort       int    `yaml:"rest_port"`
	MetricsPort    int    `yaml:"metrics_port"`
	HealthPort     int    `yaml:"health_port"` // gRPC health check, 0 = выключен
	TickRate       int    `yaml:"tick_rate"`
	KeepAliveTicks int    `yaml:"keepalive_ticks"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	ViewDistance   int    `yaml:"view_distance"`
	MaxPlayers     int    `yaml:"max_players"`
	MOTD           string `yaml:"motd"`
}

type WorldConfig struct {
	Seed          int64  `yaml:"seed"`
	DataPath      string `yaml:"data_path"`
	PreloadRadius int    `yaml:"preload_radius"`
	SeaLevel      int    `yaml:"sea_level"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type CacheConfig struct {
	RedisURL   string `yaml:"redis_url"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
	Backend       string `yaml:"backend"` // memory | mariadb | mongo
	MariaDSN      string `yaml:"maria_dsn"`
	MongoURI      string `yaml:"mongo_uri"`
	AdminUser     string `yaml:"admin_user"`
	AdminPassword string `yaml:"admin_password"`
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`     // host:port OTLP HTTP, пусто - localhost:4318
	SampleRatio float64 `yaml:"sample_ratio"` // доля трассируемых запросов, 0 - все
}

type BlocksConfig struct {
	TagOverrides string `yaml:"tag_overrides"`
}

// Default возвращает полную конфигурацию по умолчанию с учетом окружения
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults заполняет незаданные поля: env -> default
func (c *Config) applyDefaults() {
	s := &c.Server
	s.GamePort = getIntWithEnvFallback(s.GamePort, "BLOCKVERSE_GAME_PORT", 25565)
	s.Transport = getStringWithEnvFallback(s.Transport, "BLOCKVERSE_TRANSPORT", "tcp")
	s.RESTPort = getIntWithEnvFallback(s.RESTPort, "BLOCKVERSE_REST_PORT", 8088)
	s.MetricsPort = getIntWithEnvFallback(s.MetricsPort, "BLOCKVERSE_METRICS_PORT", 2112)
	s.HealthPort = getIntWithEnvFallback(s.HealthPort, "BLOCKVERSE_HEALTH_PORT", 0)
	s.TickRate = getIntWithEnvFallback(s.TickRate, "BLOCKVERSE_TICK_RATE", 20)
	s.KeepAliveTicks = getIntWithEnvFallback(s.KeepAliveTicks, "BLOCKVERSE_KEEPALIVE_TICKS", 200)
	s.TimeoutSeconds = getIntWithEnvFallback(s.TimeoutSeconds, "BLOCKVERSE_TIMEOUT", 30)
	s.ViewDistance = getIntWithEnvFallback(s.ViewDistance, "BLOCKVERSE_VIEW_DISTANCE", 4)
	s.MaxPlayers = getIntWithEnvFallback(s.MaxPlayers, "BLOCKVERSE_MAX_PLAYERS", 20)
	s.MOTD = getStringWithEnvFallback(s.MOTD, "BLOCKVERSE_MOTD", "A Blockverse server")

	w := &c.World
	if w.Seed == 0 {
		if v, err := strconv.ParseInt(os.Getenv("BLOCKVERSE_SEED"), 10, 64); err == nil {
			w.Seed = v
		} else {
			w.Seed = 1337
		}
	}
	w.DataPath = getStringWithEnvFallback(w.DataPath, "BLOCKVERSE_DATA", "data")
	w.PreloadRadius = getIntWithEnvFallback(w.PreloadRadius, "BLOCKVERSE_PRELOAD_RADIUS", 2)
	w.SeaLevel = getIntWithEnvFallback(w.SeaLevel, "BLOCKVERSE_SEA_LEVEL", 62)

	c.Logging.Level = getStringWithEnvFallback(c.Logging.Level, "BLOCKVERSE_LOG_LEVEL", "info")
	c.Logging.Dir = getStringWithEnvFallback(c.Logging.Dir, "BLOCKVERSE_LOG_DIR", "logs")

	// Пустой URL шины и Redis означает работу в памяти
	c.EventBus.URL = getStringWithEnvFallback(c.EventBus.URL, "NATS_URL", "")
	c.EventBus.Stream = getStringWithEnvFallback(c.EventBus.Stream, "BLOCKVERSE_STREAM", "BLOCKVERSE")
	c.EventBus.Retention = getIntWithEnvFallback(c.EventBus.Retention, "BLOCKVERSE_STREAM_RETENTION", 24)

	c.Cache.RedisURL = getStringWithEnvFallback(c.Cache.RedisURL, "REDIS_URL", "")
	c.Cache.TTLSeconds = getIntWithEnvFallback(c.Cache.TTLSeconds, "BLOCKVERSE_CACHE_TTL", 300)

	a := &c.Auth
	a.JWTSecret = getStringWithEnvFallback(a.JWTSecret, "BLOCKVERSE_JWT_SECRET", "")
	a.TokenTTLHours = getIntWithEnvFallback(a.TokenTTLHours, "BLOCKVERSE_TOKEN_TTL_HOURS", 24)
	a.Backend = getStringWithEnvFallback(a.Backend, "BLOCKVERSE_AUTH_BACKEND", "memory")
	a.MariaDSN = getStringWithEnvFallback(a.MariaDSN, "BLOCKVERSE_MARIA_DSN", "")
	a.MongoURI = getStringWithEnvFallback(a.MongoURI, "BLOCKVERSE_MONGO_URI", "mongodb://localhost:27017")
	a.AdminUser = getStringWithEnvFallback(a.AdminUser, "BLOCKVERSE_ADMIN_USER", "admin")
	a.AdminPassword = getStringWithEnvFallback(a.AdminPassword, "BLOCKVERSE_ADMIN_PASSWORD", "")

	c.Telemetry.ServiceName = getStringWithEnvFallback(c.Telemetry.ServiceName, "OTEL_SERVICE_NAME", "blockverse")
	c.Telemetry.Endpoint = getStringWithEnvFallback(c.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT", "")
	if !c.Telemetry.Enabled {
		c.Telemetry.Enabled = os.Getenv("BLOCKVERSE_TELEMETRY") == "1"
	}

	c.Blocks.TagOverrides = getStringWithEnvFallback(c.Blocks.TagOverrides, "BLOCKVERSE_BLOCK_TAGS", "")
}

// Validate проверяет согласованность значений
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Transport != "tcp" && c.Server.Transport != "kcp" {
		errs = append(errs, fmt.Errorf("server.transport: неизвестный транспорт %q", c.Server.Transport))
	}
	for name, port := range map[string]int{
		"server.game_port":    c.Server.GamePort,
		"server.rest_port":    c.Server.RESTPort,
		"server.metrics_port": c.Server.MetricsPort,
	} {
		if port <= 0 || port > 65535 {
			errs = append(errs, fmt.Errorf("%s: недопустимый порт %d", name, port))
		}
	}
	if c.Server.HealthPort < 0 || c.Server.HealthPort > 65535 {
		errs = append(errs, fmt.Errorf("server.health_port: недопустимый порт %d", c.Server.HealthPort))
	}
	if c.Server.TickRate <= 0 || c.Server.TickRate > 1000 {
		errs = append(errs, fmt.Errorf("server.tick_rate: %d вне диапазона 1..1000", c.Server.TickRate))
	}
	if c.Server.KeepAliveTicks <= 0 {
		errs = append(errs, errors.New("server.keepalive_ticks должен быть положительным"))
	}
	if c.Server.MaxPlayers <= 0 {
		errs = append(errs, errors.New("server.max_players должен быть положительным"))
	}
	if c.World.PreloadRadius < 0 {
		errs = append(errs, errors.New("world.preload_radius не может быть отрицательным"))
	}
	if c.World.SeaLevel < -64 || c.World.SeaLevel > 319 {
		errs = append(errs, fmt.Errorf("world.sea_level: %d вне высоты мира", c.World.SeaLevel))
	}
	switch c.Auth.Backend {
	case "memory", "mongo":
	case "mariadb":
		if c.Auth.MariaDSN == "" {
			errs = append(errs, errors.New("auth.maria_dsn обязателен для backend mariadb"))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.backend: неизвестный backend %q", c.Auth.Backend))
	}
	if c.Cache.TTLSeconds <= 0 {
		errs = append(errs, errors.New("cache.ttl_seconds должен быть положительным"))
	}

	return errors.Join(errs...)
}

// TickInterval возвращает длительность одного тика
func (s *ServerConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(s.TickRate)
}

// Timeout возвращает таймаут бездействия клиента
func (s *ServerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// TTL возвращает время жизни записи кеша
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// TokenTTL возвращает срок жизни выданного JWT
func (a *AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	// Если значение задано в конфиге и больше 0, используем его
	if configValue > 0 {
		return configValue
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}

	// Используем дефолтное значение
	return defaultValue
}

func getStringWithEnvFallback(configValue, envVar, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultValue
}

// Load читает YAML файл конфигурации и дополняет его значениями по умолчанию.
// Если path == "", используется ENV BLOCKVERSE_CONFIG; без файла возвращается Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("BLOCKVERSE_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
