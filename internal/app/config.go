package app

import (
	"strings"

	"github.com/shopspring/decimal"

	coreconfig "github.com/m3rciful/filehost/core/config"
	"github.com/m3rciful/filehost/core/database"
	"github.com/m3rciful/filehost/internal/apperr"
	"github.com/m3rciful/filehost/internal/cryptopay"
)

// Storage drivers.
const (
	DriverJSON     = "json"
	DriverPostgres = "postgres"
)

const (
	defaultJSONPath = "data.json"
	defaultPrice    = "0.50"
	defaultWaitSecs = 30
)

// CryptoPayConfig holds payment provider credentials.
type CryptoPayConfig struct {
	Token   string `yaml:"token" envconfig:"CRYPTOPAY_TOKEN"`
	BaseURL string `yaml:"base_url" envconfig:"CRYPTOPAY_BASE_URL"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver   string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	JSONPath string `yaml:"json_path" envconfig:"DATA_FILE"`
	// WaitSeconds bounds how long startup waits for Postgres.
	WaitSeconds int             `yaml:"wait_seconds" envconfig:"DB_WAIT_SECONDS"`
	Database    database.Config `yaml:"database"`
}

// Config is the bot configuration. Core settings are embedded inline.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	CryptoPay  CryptoPayConfig `yaml:"cryptopay"`
	Storage    StorageConfig   `yaml:"storage"`
	BackupChat string          `yaml:"backup_chat" envconfig:"BACKUP_CHANNEL_ID"`
	// DefaultPriceUSD seeds the monthly price when none is stored yet.
	DefaultPriceUSD string `yaml:"default_price_usd" envconfig:"DEFAULT_PRICE_USD"`
	// PromptTTLMinutes expires an unanswered admin prompt. Zero keeps it
	// until the admin answers or sends /cancel.
	PromptTTLMinutes int    `yaml:"prompt_ttl_minutes" envconfig:"ADMIN_PROMPT_TTL_MINUTES"`
	OpsListen        string `yaml:"ops_listen" envconfig:"OPS_LISTEN"`

	defaultPrice decimal.Decimal
}

// CoreConfig exposes the shared core configuration.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

// DefaultPrice is the parsed DefaultPriceUSD.
func (c *Config) DefaultPrice() decimal.Decimal { return c.defaultPrice }

// LoadConfig reads path, overlays the environment and validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.ReadInto(path, &cfg); err != nil {
		return nil, apperr.E(apperr.KindConfiguration, "app.LoadConfig", err)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func (c *Config) Normalize() error {
	const op = "app.Config.Normalize"
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return apperr.E(apperr.KindConfiguration, op, err)
	}
	if c.Telegram.AdminID <= 0 {
		return apperr.Errorf(apperr.KindConfiguration, op, "telegram.admin_id is required")
	}

	c.CryptoPay.Token = strings.TrimSpace(c.CryptoPay.Token)
	if c.CryptoPay.Token == "" {
		return apperr.Errorf(apperr.KindConfiguration, op, "cryptopay.token is required")
	}
	if c.CryptoPay.BaseURL = strings.TrimSpace(c.CryptoPay.BaseURL); c.CryptoPay.BaseURL == "" {
		c.CryptoPay.BaseURL = cryptopay.DefaultBaseURL
	}

	c.BackupChat = strings.TrimSpace(c.BackupChat)
	if c.BackupChat == "" {
		return apperr.Errorf(apperr.KindConfiguration, op, "backup_chat is required")
	}

	switch d := strings.ToLower(strings.TrimSpace(c.Storage.Driver)); d {
	case "", DriverJSON:
		c.Storage.Driver = DriverJSON
		if strings.TrimSpace(c.Storage.JSONPath) == "" {
			c.Storage.JSONPath = defaultJSONPath
		}
	case DriverPostgres:
		c.Storage.Driver = DriverPostgres
		db := c.Storage.Database
		if db.Host == "" || db.Name == "" || db.User == "" {
			return apperr.Errorf(apperr.KindConfiguration, op,
				"storage.database host, name and user are required for the postgres driver")
		}
		if db.Port == "" {
			c.Storage.Database.Port = "5432"
		}
	default:
		return apperr.Errorf(apperr.KindConfiguration, op,
			"storage.driver %q; allowed: json, postgres", c.Storage.Driver)
	}
	if c.Storage.WaitSeconds <= 0 {
		c.Storage.WaitSeconds = defaultWaitSecs
	}

	raw := strings.ReplaceAll(strings.TrimSpace(c.DefaultPriceUSD), ",", ".")
	if raw == "" {
		raw = defaultPrice
	}
	price, err := decimal.NewFromString(raw)
	if err != nil || !price.IsPositive() {
		return apperr.Errorf(apperr.KindConfiguration, op, "default_price_usd %q must be a positive number", c.DefaultPriceUSD)
	}
	c.defaultPrice = price.Round(2)

	if c.PromptTTLMinutes < 0 {
		return apperr.Errorf(apperr.KindConfiguration, op, "prompt_ttl_minutes %d must not be negative", c.PromptTTLMinutes)
	}
	c.OpsListen = strings.TrimSpace(c.OpsListen)
	return nil
}
