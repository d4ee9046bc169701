package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/netzah/ledger-engine/internal/domain"
	"github.com/netzah/ledger-engine/internal/fines"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Library   LibraryConfig   `mapstructure:"library"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

type ServerConfig struct {
	Port string `mapstructure:"SERVER_PORT"`
	Host string `mapstructure:"SERVER_HOST"`
	Env  string `mapstructure:"ENV"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"DATABASE_URL"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type SchedulerConfig struct {
	OverdueSweepSpec string `mapstructure:"OVERDUE_SWEEP_SPEC"`
	Timezone         string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

// LibraryConfig carries the fine rates and the per-role active-loan caps. The
// numbers are operator configuration, not ledger logic.
type LibraryConfig struct {
	DailyFineRate   string `mapstructure:"LIBRARY_DAILY_FINE_RATE"`
	DamagedFlatFee  string `mapstructure:"LIBRARY_DAMAGED_FEE"`
	LostFlatFee     string `mapstructure:"LIBRARY_LOST_FEE"`
	DefaultLoanDays int    `mapstructure:"LIBRARY_DEFAULT_LOAN_DAYS"`
	StudentLoanCap  int    `mapstructure:"LIBRARY_STUDENT_LOAN_CAP"`
	StaffLoanCap    int    `mapstructure:"LIBRARY_STAFF_LOAN_CAP"`
}

type CacheConfig struct {
	SummaryTTL string `mapstructure:"SUMMARY_CACHE_TTL"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("LIBRARY_DAILY_FINE_RATE", "500")
	viper.SetDefault("LIBRARY_DAMAGED_FEE", "5000")
	viper.SetDefault("LIBRARY_LOST_FEE", "20000")
	viper.SetDefault("LIBRARY_DEFAULT_LOAN_DAYS", 7)
	viper.SetDefault("LIBRARY_STUDENT_LOAN_CAP", 5)
	viper.SetDefault("LIBRARY_STAFF_LOAN_CAP", 30)
	viper.SetDefault("OVERDUE_SWEEP_SPEC", "0 0 0 * * *")
	viper.SetDefault("SCHEDULER_TIMEZONE", "Africa/Kampala")
	viper.SetDefault("SUMMARY_CACHE_TTL", "5m")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Library.DefaultLoanDays <= 0 {
		return fmt.Errorf("LIBRARY_DEFAULT_LOAN_DAYS must be greater than 0")
	}

	if c.Library.StudentLoanCap <= 0 || c.Library.StaffLoanCap <= 0 {
		return fmt.Errorf("loan caps must be greater than 0")
	}

	for name, v := range map[string]string{
		"LIBRARY_DAILY_FINE_RATE": c.Library.DailyFineRate,
		"LIBRARY_DAMAGED_FEE":     c.Library.DamagedFlatFee,
		"LIBRARY_LOST_FEE":        c.Library.LostFlatFee,
	} {
		if _, err := decimal.NewFromString(v); err != nil {
			return fmt.Errorf("%s must be a valid decimal: %w", name, err)
		}
	}

	if _, err := time.ParseDuration(c.Cache.SummaryTTL); err != nil {
		return fmt.Errorf("SUMMARY_CACHE_TTL must be a valid duration: %w", err)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// FineRates returns the configured penalty figures as decimals.
func (c *Config) FineRates() fines.Rates {
	daily, _ := decimal.NewFromString(c.Library.DailyFineRate)
	damaged, _ := decimal.NewFromString(c.Library.DamagedFlatFee)
	lost, _ := decimal.NewFromString(c.Library.LostFlatFee)
	return fines.Rates{DailyRate: daily, DamagedFee: damaged, LostFee: lost}
}

// LoanCap returns the active-loan cap for a borrower role.
func (c *Config) LoanCap(role domain.BorrowerRole) int {
	if role == domain.RoleStudent {
		return c.Library.StudentLoanCap
	}
	return c.Library.StaffLoanCap
}

// SummaryCacheTTL returns the summary cache TTL as a duration.
func (c *Config) SummaryCacheTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Cache.SummaryTTL)
	return ttl
}
