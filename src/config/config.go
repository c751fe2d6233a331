package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/livefire2015/ez-rent/src/models"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. EZRENT_DATABASE_DSN
const EnvPrefix = "EZRENT"

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig holds general application settings
type AppConfig struct {
	Env string `mapstructure:"env"` // dev or prod
}

// ServerConfig defines HTTP server settings
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig defines the Postgres connection
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// BillingConfig controls bill generation
type BillingConfig struct {
	// FallbackToDefaults fills settings missing from the database with Defaults
	// instead of failing the affected bills.
	FallbackToDefaults bool            `mapstructure:"fallback_to_defaults"`
	Defaults           BillingDefaults `mapstructure:"defaults"`
	GenerateRatePerSec float64         `mapstructure:"generate_rate_per_sec"`
	GenerateBurst      int             `mapstructure:"generate_burst"`
}

// BillingDefaults are the hinted values for the documented setting keys
type BillingDefaults struct {
	ElectricUnitCost  string `mapstructure:"electric_unit_cost"`
	BillDueDays       string `mapstructure:"bill_due_days"`
	LateFeePercentage string `mapstructure:"late_fee_percentage"`
}

// KafkaConfig defines the bill event producer
type KafkaConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Brokers      []string `mapstructure:"brokers"`
	Topic        string   `mapstructure:"topic"`
	ClientID     string   `mapstructure:"client_id"`
	RequiredAcks string   `mapstructure:"required_acks"` // none, leader or all
	RetryMax     int      `mapstructure:"retry_max"`
}

// LoggingConfig defines logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// MetricsConfig defines metrics settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AsSettings returns the defaults keyed by setting name
func (d BillingDefaults) AsSettings() map[string]string {
	return map[string]string{
		models.SettingElectricUnitCost:  d.ElectricUnitCost,
		models.SettingBillDueDays:       d.BillDueDays,
		models.SettingLateFeePercentage: d.LateFeePercentage,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("billing.fallback_to_defaults", false)
	v.SetDefault("billing.defaults.electric_unit_cost", "8.00")
	v.SetDefault("billing.defaults.bill_due_days", "10")
	v.SetDefault("billing.defaults.late_fee_percentage", "2")
	v.SetDefault("billing.generate_rate_per_sec", 2.0)
	v.SetDefault("billing.generate_burst", 4)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "rent.bills")
	v.SetDefault("kafka.client_id", "ezrent")
	v.SetDefault("kafka.required_acks", "all")
	v.SetDefault("kafka.retry_max", 3)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Load reads configuration from path (or ./ezrent.yaml, ./config/ezrent.yaml
// when path is empty) and from EZRENT_* environment variables. A missing
// config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ezrent")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks critical configuration
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr must be specified")
	}
	if c.Billing.GenerateRatePerSec <= 0 || c.Billing.GenerateBurst <= 0 {
		return fmt.Errorf("billing generate rate and burst must be positive")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers must be specified when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic must be specified when kafka is enabled")
		}
	}
	if c.Billing.FallbackToDefaults {
		for key, value := range c.Billing.Defaults.AsSettings() {
			if err := models.ValidateSetting(key, value); err != nil {
				return fmt.Errorf("invalid billing default: %w", err)
			}
		}
	}
	return nil
}
