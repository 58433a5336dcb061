package config

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// DefaultUserAgent is the default User-Agent string sent with all backend requests.
const DefaultUserAgent = "LinkDrop/1.0 (+https://github.com/linkdrop/linkdrop)"

const (
	// DefaultBackendURL points at a backend running next to the proxy during development.
	DefaultBackendURL = "http://localhost:8000"
	// DefaultServerURL is where the CLI expects the LinkDrop proxy.
	DefaultServerURL = "http://localhost:8080"
)

type Config struct {
	BackendURL            string `mapstructure:"backend_url"`
	ServerURL             string `mapstructure:"server_url"`
	ProxyConnectionString string `mapstructure:"proxy_connection_string"`
	InfoTimeout           string `mapstructure:"info_timeout"`     // Go duration string like "30s"
	DownloadTimeout       string `mapstructure:"download_timeout"` // Go duration string like "5m"
	UserAgent             string `mapstructure:"user_agent"`
	Server                struct {
		Port    int    `mapstructure:"port"`
		Address string `mapstructure:"address"`
	} `mapstructure:"server"`
	LogLevel string `mapstructure:"log_level"`
	Metrics  struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
	Sentry struct {
		DSN         string `mapstructure:"dsn"`
		Environment string `mapstructure:"environment"`
	} `mapstructure:"sentry"`
	CircuitBreaker struct {
		Enabled          bool   `mapstructure:"enabled"`
		FailureThreshold uint   `mapstructure:"failure_threshold"`
		Delay            string `mapstructure:"delay"` // Go duration string
	} `mapstructure:"circuit_breaker"`
	History struct {
		Provider      string `mapstructure:"provider"` // memory, bolt or redis
		Path          string `mapstructure:"path"`     // bolt database file
		RedisAddress  string `mapstructure:"redis_address"`
		RedisPassword string `mapstructure:"redis_password"`
		RedisDB       int    `mapstructure:"redis_db"`
		TTL           string `mapstructure:"ttl"` // Go duration string, empty keeps history forever
	} `mapstructure:"history"`
	DownloadDir string `mapstructure:"download_dir"`
	DisplayMode string `mapstructure:"display_mode"` // auto, browser or standalone
}

var (
	globalConfig *Config
	logger       zerolog.Logger
)

func init() {
	// Logs go to stderr so the CLI can keep stdout for its own output
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: false,
	}).With().Timestamp().Logger()

	config, err := LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	level := zerolog.InfoLevel
	if config.LogLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(config.LogLevel); err == nil {
			level = parsedLevel
		} else {
			logger.Warn().Str("invalid_level", config.LogLevel).Msg("Invalid log level, using default 'info'")
		}
	}

	zerolog.SetGlobalLevel(level)
	logger = logger.Level(level)

	logger.Debug().Str("level", level.String()).Msg("Logging configured")
	globalConfig = config
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("backend_url", "APP_BACKEND_URL", "BACKEND_URL")

	v.SetDefault("backend_url", DefaultBackendURL)
	v.SetDefault("server_url", DefaultServerURL)
	v.SetDefault("info_timeout", "30s")
	v.SetDefault("download_timeout", "5m")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("circuit_breaker.failure_threshold", 5)
	v.SetDefault("circuit_breaker.delay", "30s")
	v.SetDefault("history.provider", "bolt")
	v.SetDefault("display_mode", "auto")

	// Unmarshal only sees env overrides for keys viper already knows about
	v.SetDefault("proxy_connection_string", "")
	v.SetDefault("user_agent", "")
	v.SetDefault("log_level", "")
	v.SetDefault("download_dir", ".")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("circuit_breaker.enabled", false)
	v.SetDefault("history.path", "linkdrop-history.db")
	v.SetDefault("history.redis_address", "")
	v.SetDefault("history.redis_password", "")
	v.SetDefault("history.redis_db", 0)
	v.SetDefault("history.ttl", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	return &config, nil
}

func GetConfig() *Config {
	return globalConfig
}

func GetUserAgent() string {
	if globalConfig != nil && globalConfig.UserAgent != "" {
		return globalConfig.UserAgent
	}

	return DefaultUserAgent
}

func GetLogger() zerolog.Logger {
	return logger
}
