// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads config.yaml and config.<env>.yaml from the usual locations,
// overlays the environment and applies defaults.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // environment overlay is optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	// ENV override like STORAGE_DATA_DIR or SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindKeys(v)
	return v
}

// bindKeys registers every key so AutomaticEnv can see them during Unmarshal
// even when no config file mentions them.
func bindKeys(v *viper.Viper) {
	for _, key := range []string{
		"app.name", "app.version", "app.environment", "app.business_name",
		"server.port", "server.static_dir", "server.read_timeout", "server.write_timeout",
		"storage.backend", "storage.data_dir", "storage.leads_file", "storage.installed_file",
		"storage.redis.address", "storage.redis.password", "storage.redis.db", "storage.redis.key_prefix",
		"snapshots.dir",
		"realtime.enabled", "realtime.observer_buffer",
		"admin.password",
		"integrations.aws.region", "integrations.aws.sns.enabled", "integrations.aws.sns.sender_id",
			"integrations.aws.ses.enabled", "integrations.aws.ses.from", "integrations.aws.ses.owner_email",
		"integrations.kafka.enabled", "integrations.kafka.brokers", "integrations.kafka.topic",
		"integrations.kafka.batch_timeout", "integrations.kafka.write_timeout",
		"logging.level", "logging.format", "logging.output",
		"metrics.enabled",
	} {
		_ = v.BindEnv(key)
	}
}

func finish(v *viper.Viper) (*Config, error) {
	v.SetDefault("realtime.enabled", true)
	v.SetDefault("metrics.enabled", true)

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the working directory or any parent up to the project root.
func loadEnvFile() string {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars replaces ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig honors the plain variable names the Express backend used.
func overrideEmptyConfig(cfg *Config) {
	if val := os.Getenv("PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = port
		}
	}
	if cfg.Admin.Password == "" {
		cfg.Admin.Password = os.Getenv("ADMIN_PASSWORD")
	}
	if cfg.App.BusinessName == "" {
		if val := os.Getenv("BUSINESS_NAME"); val != "" {
			cfg.App.BusinessName = val
		}
	}
	if cfg.Storage.Redis.Password == "" {
		cfg.Storage.Redis.Password = os.Getenv("REDIS_PASSWORD")
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "taskflow-leads"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.App.BusinessName == "" {
		cfg.App.BusinessName = "TaskFlow business"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15000
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendFile
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.LeadsFile == "" {
		cfg.Storage.LeadsFile = "leads.json"
	}
	if cfg.Storage.InstalledFile == "" {
		cfg.Storage.InstalledFile = "installed_snapshots.json"
	}
	if cfg.Storage.Redis.KeyPrefix == "" {
		cfg.Storage.Redis.KeyPrefix = "taskflow:"
	}

	if cfg.Snapshots.Dir == "" {
		cfg.Snapshots.Dir = filepath.Join(cfg.Storage.DataDir, "snapshots")
	}

	if cfg.Realtime.ObserverBuffer == 0 {
		cfg.Realtime.ObserverBuffer = 64
	}

	if cfg.Integrations.Kafka.Topic == "" {
		cfg.Integrations.Kafka.Topic = "leads.created"
	}
	if cfg.Integrations.Kafka.BatchTimeout == 0 {
		cfg.Integrations.Kafka.BatchTimeout = 100
	}
	if cfg.Integrations.Kafka.WriteTimeout == 0 {
		cfg.Integrations.Kafka.WriteTimeout = 5000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.Storage.Backend {
	case BackendFile, BackendMemory:
	case BackendRedis:
		if cfg.Storage.Redis.Address == "" {
			return fmt.Errorf("storage.redis.address is required for the redis backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not supported", cfg.Storage.Backend)
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", cfg.Server.Port)
	}

	if cfg.Integrations.AWS.SNS.Enabled && cfg.Integrations.AWS.Region == "" {
		return fmt.Errorf("integrations.aws.region is required when sns is enabled")
	}

	ses := cfg.Integrations.AWS.SES
	if ses.Enabled && (cfg.Integrations.AWS.Region == "" || ses.From == "" || ses.OwnerEmail == "") {
		return fmt.Errorf("integrations.aws.region, integrations.aws.ses.from and integrations.aws.ses.owner_email are required when ses is enabled")
	}

	if cfg.Integrations.Kafka.Enabled && len(cfg.Integrations.Kafka.Brokers) == 0 {
		return fmt.Errorf("integrations.kafka.brokers is required when kafka is enabled")
	}

	return nil
}
