package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret string
	TokenTTL     time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	KeyTTL   time.Duration
}

type StorageConfig struct {
	Dir string
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Redis       RedisConfig
	Storage     StorageConfig
	SeedDemo    bool
}

// ClientConfig configures the technician CLI talking to the ISP API.
type ClientConfig struct {
	Environment string
	BaseURL     string
	StorageURL  string
	Token       string
	Timeout     time.Duration
	RecentFile  string
	Device      DeviceConfig
}

// DeviceConfig feeds the CLI geolocation provider. An unset position is
// reported as a denied location permission.
type DeviceConfig struct {
	Latitude    *float64
	Longitude   *float64
	PicturesDir string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	_ = v.ReadInConfig()
	return v
}

func Load() (*Config, error) {
	v := newViper()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
			TokenTTL:     v.GetDuration("JWT_ACCESS_TTL"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			KeyTTL:   v.GetDuration("IDEMPOTENCY_KEY_TTL"),
		},
		Storage: StorageConfig{
			Dir: v.GetString("STORAGE_DIR"),
		},
		SeedDemo: v.GetBool("SEED_DEMO"),
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 72 * time.Hour
	}
	if cfg.Redis.KeyTTL == 0 {
		cfg.Redis.KeyTTL = 24 * time.Hour
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "./storage"
	}
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	return nil
}

func LoadClient() (*ClientConfig, error) {
	v := newViper()

	cfg := &ClientConfig{
		Environment: v.GetString("APP_ENV"),
		BaseURL:     v.GetString("API_BASE_URL"),
		StorageURL:  v.GetString("API_STORAGE_URL"),
		Token:       v.GetString("API_TOKEN"),
		Timeout:     v.GetDuration("API_TIMEOUT"),
		RecentFile:  v.GetString("RECENT_FILE"),
		Device: DeviceConfig{
			PicturesDir: v.GetString("DEVICE_PICTURES_DIR"),
		},
	}
	if v.IsSet("DEVICE_LATITUDE") && v.IsSet("DEVICE_LONGITUDE") {
		lat := v.GetFloat64("DEVICE_LATITUDE")
		lon := v.GetFloat64("DEVICE_LONGITUDE")
		cfg.Device.Latitude = &lat
		cfg.Device.Longitude = &lon
	}

	applyClientDefaults(cfg)

	if err := validateClient(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyClientDefaults(cfg *ClientConfig) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.StorageURL == "" && cfg.BaseURL != "" {
		cfg.StorageURL = cfg.BaseURL + "/storage/"
	}
	if cfg.StorageURL != "" && !strings.HasSuffix(cfg.StorageURL, "/") {
		cfg.StorageURL += "/"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RecentFile == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			cfg.RecentFile = filepath.Join(dir, "fieldtech", "recent.yaml")
		}
	}
}

func validateClient(cfg *ClientConfig) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if cfg.Token == "" {
		return fmt.Errorf("API_TOKEN is required")
	}
	return nil
}
