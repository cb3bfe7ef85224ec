package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends understood by the watcher.
const (
	BackendFile     = "file"
	BackendS3       = "s3"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Feed      FeedConfig     `mapstructure:"feed"`
	Log       LogConfig      `mapstructure:"log"`
	Calendar  CalendarConfig `mapstructure:"calendar"`
	Subscribe []string       `mapstructure:"subscribe"`
	Storage   StorageConfig  `mapstructure:"storage"`
	Postgres  PostgresConfig `mapstructure:"postgres"`
	Redis     RedisConfig    `mapstructure:"redis"`
	Watcher   WatcherConfig  `mapstructure:"watcher"`
}

type FeedConfig struct {
	URL            string        `mapstructure:"url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`        // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`       // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"`  // file path to store logs (optional)
	Environment string `mapstructure:"environment"`  // environment: "dev" or "prod"
	MaxSizeMB   int    `mapstructure:"max_size_mb"`  // rotate after this many megabytes
	MaxBackups  int    `mapstructure:"max_backups"`  // rotated files to keep
	MaxAgeDays  int    `mapstructure:"max_age_days"` // days to keep a rotated file
	Compress    bool   `mapstructure:"compress"`     // gzip rotated files
}

// StorageConfig controls where and when buffered ticks are persisted.
type StorageConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Backend      string        `mapstructure:"backend"`
	Path         string        `mapstructure:"path"`
	GracePeriod  time.Duration `mapstructure:"grace_period"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	S3           S3Config      `mapstructure:"s3"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `mapstructure:"endpoint"`
	Region         string `mapstructure:"region"`
	Bucket         string `mapstructure:"bucket"`
	Prefix         string `mapstructure:"prefix"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	UseSSL         bool   `mapstructure:"use_ssl"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
}

// RedisConfig configures the pub/sub channel accepted ticks are pushed to.
// An empty Addr disables publishing.
type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	ChannelPrefix string `mapstructure:"channel_prefix"`
	QueueSize     int    `mapstructure:"queue_size"`
}

type WatcherConfig struct {
	QueueSize      int           `mapstructure:"queue_size"`
	StatusInterval time.Duration `mapstructure:"status_interval"`
}

// PersistEnabled reports whether accepted ticks should be buffered for persistence.
// A file backend without a path silently disables persistence.
func (s StorageConfig) PersistEnabled() bool {
	if !s.Enabled {
		return false
	}
	if s.Backend == BackendFile && s.Path == "" {
		return false
	}
	return true
}

// Validate checks the values that cannot be fixed up by defaults.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendS3, BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.GracePeriod < 0 {
		return fmt.Errorf("negative grace period: %s", c.Storage.GracePeriod)
	}
	if c.Storage.Backend == BackendS3 && c.Storage.Enabled && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage.s3.bucket is required for the s3 backend")
	}
	if c.Watcher.QueueSize <= 0 {
		return fmt.Errorf("watcher.queue_size must be positive, got %d", c.Watcher.QueueSize)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("feed.timeout", 10*time.Second)
	v.SetDefault("feed.reconnect_delay", 3*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.compress", true)

	v.SetDefault("storage.enabled", true)
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.grace_period", 180*time.Second)
	v.SetDefault("storage.write_timeout", 10*time.Second)

	v.SetDefault("redis.channel_prefix", "ticks")
	v.SetDefault("redis.queue_size", 8192)

	v.SetDefault("watcher.queue_size", 4096)
	v.SetDefault("watcher.status_interval", time.Minute)
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
func Load() *Config {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	if dir := os.Getenv("WATCHER_CONFIG_PATH"); dir != "" {
		v.AddConfigPath(dir)
	} else {
		ex, _ := os.Executable()
		if strings.Contains(ex, "go-build") {
			pwd, _ := os.Getwd()
			v.AddConfigPath(filepath.Join(pwd, "../../config"))
		} else {
			v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
		}
	}

	setDefaults(v)

	// Support environment variables with dot notation (e.g., STORAGE_BACKEND)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	return &cfg
}
