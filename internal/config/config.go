// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Feed kinds understood by the oracle module.
const (
	FeedKindChainlink = "chainlink"
	FeedKindHTTP      = "http"
	FeedKindStatic    = "static"
)

// Config holds all application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Store      StoreConfig      `mapstructure:"store"`
	Ethereum   EthereumConfig   `mapstructure:"ethereum"`
	Currencies []CurrencyConfig `mapstructure:"currencies" validate:"dive"`
	Oracle     OracleConfig     `mapstructure:"oracle"`
	Registry   RegistryConfig   `mapstructure:"registry"`
	API        APIConfig        `mapstructure:"api"`
	Feed       FeedConfig       `mapstructure:"feed"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	HealthPort  int    `mapstructure:"health_port" validate:"gte=0,lte=65535"`
}

// StoreConfig selects the ledger database.
type StoreConfig struct {
	Driver       string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN          string `mapstructure:"dsn" validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
	LogSQL       bool   `mapstructure:"log_sql"`
}

// EthereumConfig holds Ethereum node configuration. Only needed by chainlink feeds.
type EthereumConfig struct {
	HTTPURL string `mapstructure:"http_url"`
	ChainID uint64 `mapstructure:"chain_id"`
}

// CurrencyConfig registers an ERC-20 payment currency.
type CurrencyConfig struct {
	Address  string `mapstructure:"address" validate:"required,eth_addr"`
	Symbol   string `mapstructure:"symbol" validate:"required"`
	Name     string `mapstructure:"name"`
	Decimals uint8  `mapstructure:"decimals" validate:"lte=36"`
}

// AddressHex returns the token address as common.Address.
func (c *CurrencyConfig) AddressHex() common.Address {
	return common.HexToAddress(c.Address)
}

// OracleConfig holds the price feed registry and freshness policy.
type OracleConfig struct {
	NativeFeed        string        `mapstructure:"native_feed" validate:"required,eth_addr"`
	MaxAge            time.Duration `mapstructure:"max_age" validate:"gte=0"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" validate:"gte=0"`
	TickerURL         string        `mapstructure:"ticker_url"`
	Feeds             []PriceFeed   `mapstructure:"feeds" validate:"dive"`
}

// PriceFeed declares one feed reachable under Address.
type PriceFeed struct {
	Address  string `mapstructure:"address" validate:"required,eth_addr"`
	Kind     string `mapstructure:"kind" validate:"oneof=chainlink http static"`
	Source   string `mapstructure:"source"`
	Decimals uint8  `mapstructure:"decimals"`
	Price    string `mapstructure:"price"`
}

// AddressHex returns the feed address as common.Address.
func (f *PriceFeed) AddressHex() common.Address {
	return common.HexToAddress(f.Address)
}

// SourceHex returns the aggregator of a chainlink feed.
func (f *PriceFeed) SourceHex() common.Address {
	return common.HexToAddress(f.Source)
}

// PriceDecimal parses the initial price of a static feed.
func (f *PriceFeed) PriceDecimal() (decimal.Decimal, error) {
	if f.Price == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(f.Price)
}

// NativeFeedHex returns the native currency feed as common.Address.
func (c *OracleConfig) NativeFeedHex() common.Address {
	return common.HexToAddress(c.NativeFeed)
}

// RegistryConfig controls the bootstrap of the auction registry.
type RegistryConfig struct {
	Owner      string           `mapstructure:"owner" validate:"required,eth_addr"`
	Bootstrap  bool             `mapstructure:"bootstrap"`
	Collection CollectionConfig `mapstructure:"collection"`
}

// OwnerHex returns the registry owner as common.Address.
func (c *RegistryConfig) OwnerHex() common.Address {
	return common.HexToAddress(c.Owner)
}

// CollectionConfig describes the collection deployed on bootstrap.
type CollectionConfig struct {
	Name    string `mapstructure:"name"`
	Symbol  string `mapstructure:"symbol"`
	BaseURI string `mapstructure:"base_uri"`
}

// APIConfig holds the query API settings.
type APIConfig struct {
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// FeedConfig holds the websocket event feed settings.
type FeedConfig struct {
	Port       int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	BufferSize int           `mapstructure:"buffer_size" validate:"gte=1"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	Provider       string `mapstructure:"provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("AUCTION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.name", "AUCTION_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "AUCTION_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "AUCTION_LOG_LEVEL", "LOG_LEVEL")

	v.BindEnv("store.driver", "AUCTION_STORE_DRIVER")
	v.BindEnv("store.dsn", "AUCTION_STORE_DSN", "DATABASE_URL")

	v.BindEnv("ethereum.http_url", "AUCTION_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.chain_id", "AUCTION_ETH_CHAIN_ID", "ETH_CHAIN_ID")

	v.BindEnv("oracle.native_feed", "AUCTION_NATIVE_FEED")
	v.BindEnv("oracle.max_age", "AUCTION_ORACLE_MAX_AGE")

	v.BindEnv("registry.owner", "AUCTION_REGISTRY_OWNER")

	v.BindEnv("telemetry.enabled", "AUCTION_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "AUCTION_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "AUCTION_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "nft-auction")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.health_port", 8081)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "file:auction.db?_foreign_keys=on")
	v.SetDefault("store.max_open_conns", 0)

	v.SetDefault("ethereum.chain_id", 11155111)

	// Sepolia ETH/USD aggregator, matching the native feed of the hardhat deployment.
	v.SetDefault("oracle.native_feed", "0x694AA1769357215DE4FAC081bf1f309aDC325306")
	v.SetDefault("oracle.max_age", "1h")
	v.SetDefault("oracle.cache_ttl", "15s")
	v.SetDefault("oracle.requests_per_minute", 120)
	v.SetDefault("oracle.ticker_url", "https://api.binance.com")

	v.SetDefault("registry.owner", "0x00000000000000000000000000000000000000A1")
	v.SetDefault("registry.bootstrap", true)
	v.SetDefault("registry.collection.name", "MyNFT")
	v.SetDefault("registry.collection.symbol", "MNFT")
	v.SetDefault("registry.collection.base_uri", "ipfs://collection/")

	v.SetDefault("api.port", 8080)
	v.SetDefault("feed.port", 8082)
	v.SetDefault("feed.buffer_size", 64)
	v.SetDefault("feed.write_wait", "5s")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "nft-auction")
	v.SetDefault("telemetry.provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	for _, f := range c.Oracle.Feeds {
		switch f.Kind {
		case FeedKindChainlink:
			if c.Ethereum.HTTPURL == "" {
				return fmt.Errorf("ethereum.http_url is required for chainlink feed %s", f.Address)
			}
			if !common.IsHexAddress(f.Source) {
				return fmt.Errorf("invalid aggregator address for feed %s: %s", f.Address, f.Source)
			}
		case FeedKindHTTP:
			if f.Source == "" {
				return fmt.Errorf("ticker symbol is required for feed %s", f.Address)
			}
		case FeedKindStatic:
			if _, err := f.PriceDecimal(); err != nil {
				return fmt.Errorf("invalid static price for feed %s: %w", f.Address, err)
			}
		}
	}
	return nil
}
