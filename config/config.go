package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/raid-guild/x402-paygate-go/core"
	"github.com/raid-guild/x402-paygate-go/types"
)

// Config is the process-wide configuration, read once at startup and
// immutable thereafter.
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`

	RecipientAddress  string `env:"RECIPIENT_ADDRESS"`
	Network           string `env:"NETWORK" envDefault:"base-sepolia"`
	PriceETH          string `env:"PRICE_ETH" envDefault:"0.001"`
	MaxTimeoutSeconds int64  `env:"MAX_TIMEOUT_SECONDS" envDefault:"300"`

	RPCURL         string `env:"RPC_URL"`
	ExplorerURL    string `env:"EXPLORER_URL"`
	ExplorerAPIKey string `env:"EXPLORER_API_KEY"`

	ReplayProtection  bool `env:"REPLAY_PROTECTION" envDefault:"false"`
	RequireSettlement bool `env:"REQUIRE_SETTLEMENT" envDefault:"false"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %v", err)
	}
	return c, nil
}

// Validate enforces the fail-fast rules: a misconfigured recipient or an
// unscalable price must prevent the endpoint from serving any requests.
func (c Config) Validate() error {
	if c.RecipientAddress == "" {
		return core.ErrMisconfiguredRecipient
	}
	if !common.IsHexAddress(c.RecipientAddress) {
		return fmt.Errorf("%w: %q is not a valid address", core.ErrMisconfiguredRecipient, c.RecipientAddress)
	}
	price, err := c.Price()
	if err != nil {
		return err
	}
	if _, err := core.ToSmallestUnit(price); err != nil {
		return err
	}
	return nil
}

// Price returns the configured base price as an exact decimal.
func (c Config) Price() (decimal.Decimal, error) {
	price, err := decimal.NewFromString(c.PriceETH)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", core.ErrInvalidPrice, err)
	}
	return price, nil
}

// Requirement returns the requirement-builder policy derived from the config.
func (c Config) Requirement() core.RequirementConfig {
	return core.RequirementConfig{
		PayTo:             c.RecipientAddress,
		Network:           types.Network(c.Network),
		MaxTimeoutSeconds: c.MaxTimeoutSeconds,
	}
}
