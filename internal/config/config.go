package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for MedTrack
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Session  SessionConfig  `mapstructure:"session"`
	Seed     SeedConfig     `mapstructure:"seed"`
	Drone    DroneConfig    `mapstructure:"drone"`
	Security SecurityConfig `mapstructure:"security"`
	Assets   AssetsConfig   `mapstructure:"assets"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// StorageConfig holds data directory settings. Domain data is in-memory and
// discarded with the session; only session metadata lives in badger.
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	BadgerPath string `mapstructure:"badger_path"`
}

// SessionConfig holds session lifecycle settings
type SessionConfig struct {
	TTLMinutes    int `mapstructure:"ttl_minutes"`
	MaxSessions   int `mapstructure:"max_sessions"`
	SweepInterval int `mapstructure:"sweep_interval"` // janitor interval, seconds
}

// SeedConfig controls the mock data generator
type SeedConfig struct {
	HistoryDays     int     `mapstructure:"history_days"`
	ReminderDays    int     `mapstructure:"reminder_days"`
	TakenWeight     float64 `mapstructure:"taken_weight"`
	MissedWeight    float64 `mapstructure:"missed_weight"`
	DelayedWeight   float64 `mapstructure:"delayed_weight"`
	RandomSeed      int64   `mapstructure:"random_seed"` // 0 = time-based
	CatalogOverride string  `mapstructure:"catalog_path"`
}

// DroneConfig holds delivery simulation settings
type DroneConfig struct {
	PhaseSeconds int `mapstructure:"phase_seconds"` // duration of each flight phase
	TickMillis   int `mapstructure:"tick_millis"`   // progress update granularity
}

// SecurityConfig holds token and CORS settings
type SecurityConfig struct {
	JWTSecret    string   `mapstructure:"jwt_secret"`
	AllowOrigins []string `mapstructure:"allow_origins"`
	SessionRPM   int      `mapstructure:"session_rpm"` // session creations per minute
	DroneRPM     int      `mapstructure:"drone_rpm"`   // drone requests per minute
}

// AssetsConfig holds external view resources
type AssetsConfig struct {
	StylesheetPath string `mapstructure:"stylesheet_path"`
	AvatarURL      string `mapstructure:"avatar_url"`
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.Set("storage.badger_path", filepath.Join(dataDir, "badger"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "medtrack.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment variables (MEDTRACK_SERVER_PORT, MEDTRACK_SECURITY_JWT_SECRET, etc.)
	v.SetEnvPrefix("MEDTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)

	v.SetDefault("session.ttl_minutes", 60)
	v.SetDefault("session.max_sessions", 100)
	v.SetDefault("session.sweep_interval", 60)

	v.SetDefault("seed.history_days", 180)
	v.SetDefault("seed.reminder_days", 7)
	v.SetDefault("seed.taken_weight", 0.85)
	v.SetDefault("seed.missed_weight", 0.075)
	v.SetDefault("seed.delayed_weight", 0.075)

	v.SetDefault("drone.phase_seconds", 10)
	v.SetDefault("drone.tick_millis", 500)

	v.SetDefault("security.allow_origins", []string{"*"})
	v.SetDefault("security.session_rpm", 30)
	v.SetDefault("security.drone_rpm", 10)

	v.SetDefault("assets.stylesheet_path", "./style.css")
	v.SetDefault("assets.avatar_url", "https://www.gravatar.com/avatar/00000000000000000000000000000000?d=mp&f=y")
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "medtrack")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "medtrack")
}

// loadEnvOverrides loads specific env vars that Viper doesn't pick up reliably
func loadEnvOverrides(cfg *Config) {
	getEnv := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	cfg.Server.Address = getEnv("MEDTRACK_SERVER_ADDRESS", cfg.Server.Address)
	if port := os.Getenv("MEDTRACK_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	cfg.Storage.DataDir = getEnv("MEDTRACK_STORAGE_DATA_DIR", cfg.Storage.DataDir)

	cfg.Security.JWTSecret = getEnv("MEDTRACK_SECURITY_JWT_SECRET", cfg.Security.JWTSecret)

	cfg.Assets.StylesheetPath = getEnv("MEDTRACK_ASSETS_STYLESHEET_PATH", cfg.Assets.StylesheetPath)
	cfg.Assets.AvatarURL = getEnv("MEDTRACK_ASSETS_AVATAR_URL", cfg.Assets.AvatarURL)
}

func validate(cfg *Config) error {
	if cfg.Session.TTLMinutes <= 0 {
		return fmt.Errorf("session.ttl_minutes must be positive")
	}

	if cfg.Seed.HistoryDays <= 0 || cfg.Seed.ReminderDays <= 0 {
		return fmt.Errorf("seed.history_days and seed.reminder_days must be positive")
	}

	total := cfg.Seed.TakenWeight + cfg.Seed.MissedWeight + cfg.Seed.DelayedWeight
	if total <= 0 || cfg.Seed.TakenWeight < 0 || cfg.Seed.MissedWeight < 0 || cfg.Seed.DelayedWeight < 0 {
		return fmt.Errorf("seed weights must be non-negative and sum to a positive value")
	}

	if cfg.Drone.PhaseSeconds <= 0 {
		return fmt.Errorf("drone.phase_seconds must be positive")
	}

	// Generate JWT secret if not provided
	if cfg.Security.JWTSecret == "" {
		cfg.Security.JWTSecret = generateRandomString(32)
	}

	return nil
}

func generateRandomString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[(i*7+int(time.Now().UnixNano())%len(letters))%len(letters)]
	}
	return string(b)
}

// SessionTTL returns the session lifetime as a duration
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

// DronePhase returns the duration of one flight phase
func (c *Config) DronePhase() time.Duration {
	return time.Duration(c.Drone.PhaseSeconds) * time.Second
}

// DroneTick returns the progress update granularity
func (c *Config) DroneTick() time.Duration {
	return time.Duration(c.Drone.TickMillis) * time.Millisecond
}
