// Package config loads and hot-reloads the dispatcher's configuration
// via viper, watching the config file with fsnotify the way the
// corpus's config layer does.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/qoffice/dispatcher/internal/models"
)

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
)

// Config is the root configuration object.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Offices   OfficesConfig   `mapstructure:"offices"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type AppConfig struct {
	Name             string `mapstructure:"name"`
	Env              string `mapstructure:"env"`
	Timezone         string `mapstructure:"timezone"`
	RequestTimeoutMs int    `mapstructure:"request_timeout_ms"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Origins []string `mapstructure:"origins"`
}

// StoreConfig selects and configures the Ticket Store Gateway backend.
type StoreConfig struct {
	Driver   string         `mapstructure:"driver"` // "memory" or "postgres"
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// CacheConfig configures the Redis-backed lookup read-through cache (C9).
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type AuthConfig struct {
	JWT struct {
		Secret         string        `mapstructure:"secret"`
		AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	} `mapstructure:"jwt"`
}

// RateLimitConfig configures per-bucket request rate limits (§6.5):
// Public covers admit/lookup endpoints, Auth covers the whole admin
// route group.
type RateLimitConfig struct {
	Public RateLimitBucket `mapstructure:"public"`
	Auth   RateLimitBucket `mapstructure:"auth"`
}

type RateLimitBucket struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

// OfficesConfig toggles which offices are active in this deployment and
// carries the static display data the lookup endpoints hand back
// (§6.1 GET /location/{office}).
type OfficesConfig struct {
	Registrar  bool              `mapstructure:"registrar"`
	Admissions bool              `mapstructure:"admissions"`
	Locations  map[string]string `mapstructure:"locations"`
}

// Enabled returns the list of offices this deployment serves.
func (o OfficesConfig) Enabled() []models.Office {
	var out []models.Office
	if o.Registrar {
		out = append(out, models.OfficeRegistrar)
	}
	if o.Admissions {
		out = append(out, models.OfficeAdmissions)
	}
	return out
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load initializes the configuration with hot reload support.
func Load(configPath string) error {
	var err error
	once.Do(func() {
		v := viper.New()
		v.SetConfigType("yaml")

		v.SetConfigName("default")
		v.AddConfigPath(configPath)
		if err = v.ReadInConfig(); err != nil {
			err = fmt.Errorf("failed to read default config: %w", err)
			return
		}

		v.SetConfigName("config")
		if mergeErr := v.MergeInConfig(); mergeErr != nil {
			if _, ok := mergeErr.(viper.ConfigFileNotFoundError); !ok {
				err = fmt.Errorf("failed to merge config: %w", mergeErr)
				return
			}
		}

		v.SetEnvPrefix("QUEUE")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		cfg = &Config{}
		if err = v.Unmarshal(cfg); err != nil {
			err = fmt.Errorf("failed to unmarshal config: %w", err)
			return
		}

		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			mu.Lock()
			defer mu.Unlock()

			newCfg := &Config{}
			if unmarshalErr := v.Unmarshal(newCfg); unmarshalErr != nil {
				return
			}
			cfg = newCfg
		})
	})

	return err
}

// Get returns the current configuration (thread-safe).
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// MustLoad loads configuration and panics on error.
func MustLoad(configPath string) {
	if err := Load(configPath); err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
}
