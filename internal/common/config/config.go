// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig         `mapstructure:"app"`
	Server       ServerConfig      `mapstructure:"server"`
	Storage      StorageConfig     `mapstructure:"storage"`
	Snapshots    SnapshotsConfig   `mapstructure:"snapshots"`
	Realtime     RealtimeConfig    `mapstructure:"realtime"`
	Admin        AdminConfig       `mapstructure:"admin"`
	Integrations IntegrationConfig `mapstructure:"integrations"`
	Logging      LoggingConfig     `mapstructure:"logging"`
	Metrics      MetricsConfig     `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name         string `mapstructure:"name"`
	Version      string `mapstructure:"version"`
	Environment  string `mapstructure:"environment"`
	BusinessName string `mapstructure:"business_name"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	StaticDir    string `mapstructure:"static_dir"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// Storage backends for the persisted JSON documents.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type StorageConfig struct {
	Backend       string      `mapstructure:"backend"`
	DataDir       string      `mapstructure:"data_dir"`
	LeadsFile     string      `mapstructure:"leads_file"`
	InstalledFile string      `mapstructure:"installed_file"`
	Redis         RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// SnapshotsConfig points at the directory of demo fixtures.
type SnapshotsConfig struct {
	Dir string `mapstructure:"dir"`
}

type RealtimeConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	ObserverBuffer int  `mapstructure:"observer_buffer"`
}

// AdminConfig guards the dashboard routes. An empty password disables the check.
type AdminConfig struct {
	Password string `mapstructure:"password"`
}

// IntegrationConfig holds settings for SMS, mail and event relay integrations.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SNS    struct {
			Enabled  bool   `mapstructure:"enabled"`
			SenderID string `mapstructure:"sender_id"`
		} `mapstructure:"sns"`
		SES struct {
			Enabled    bool   `mapstructure:"enabled"`
			From       string `mapstructure:"from"`
			OwnerEmail string `mapstructure:"owner_email"`
		} `mapstructure:"ses"`
	} `mapstructure:"aws"`

	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Brokers      []string `mapstructure:"brokers"`
	Topic        string   `mapstructure:"topic"`
	BatchTimeout int      `mapstructure:"batch_timeout"` // milliseconds
	WriteTimeout int      `mapstructure:"write_timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
