package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Billing    BillingConfig    `validate:"required"`
	Scheduler  SchedulerConfig  `validate:"required"`
	Providers  ProvidersConfig  `validate:"required"`
	Gateway    GatewayConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// BillingConfig holds the platform-wide monetary policy. Rates are fractions,
// not percentages: a 15% commission is 0.15.
type BillingConfig struct {
	Currency       string          `validate:"required,len=3"`
	CommissionRate decimal.Decimal `validate:"required"`
	GatewayRate    decimal.Decimal `validate:"required"`
	MinimumPayout  decimal.Decimal `validate:"required"`
	CycleDays      int             `validate:"required,gt=0"`
}

type SchedulerConfig struct {
	DueChangeInterval time.Duration `validate:"required"`
	PayoutRetryDay    time.Weekday
	PayoutGraceWindow time.Duration `validate:"required"`
	MaxPayoutRetries  int           `validate:"required,gt=0"`
}

type ProvidersConfig struct {
	Timeout      time.Duration  `validate:"required"`
	MTNMoMo      ProviderConfig `mapstructure:"mtn_momo"`
	TelecelCash  ProviderConfig `mapstructure:"telecel_cash"`
	BankTransfer ProviderConfig `mapstructure:"bank_transfer"`
}

type ProviderConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type GatewayConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/xclusive")

	v.SetEnvPrefix("XCLUSIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	config := GetDefaultConfig()
	if err := v.Unmarshal(config, viper.DecodeHook(decimalDecodeHook())); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Billing.CommissionRate.IsNegative() || c.Billing.GatewayRate.IsNegative() {
		return fmt.Errorf("billing rates must be non-negative")
	}
	if c.Billing.MinimumPayout.IsNegative() {
		return fmt.Errorf("minimum payout must be non-negative")
	}
	return nil
}

// GetLogLevel implements logger.Config
func (c *Configuration) GetLogLevel() string {
	return string(c.Logging.Level)
}

// GetDefaultConfig returns a default configuration for local development.
// This is also the baseline for tests and scripts.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelInfo},
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			DBName:  "xclusive",
			SSLMode: "disable",
		},
		Billing: BillingConfig{
			Currency:       "GHS",
			CommissionRate: decimal.NewFromFloat(0.15),
			GatewayRate:    decimal.NewFromFloat(0.035),
			MinimumPayout:  decimal.NewFromInt(10),
			CycleDays:      30,
		},
		Scheduler: SchedulerConfig{
			DueChangeInterval: time.Minute,
			PayoutRetryDay:    time.Monday,
			PayoutGraceWindow: 24 * time.Hour,
			MaxPayoutRetries:  5,
		},
		Providers: ProvidersConfig{
			Timeout: 30 * time.Second,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User, c.Password, c.DBName, c.Host, c.Port, c.SSLMode,
	)
}
