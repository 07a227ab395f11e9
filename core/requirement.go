package core

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/raid-guild/x402-paygate-go/types"
)

const (
	// WeiDecimals is the smallest-unit scale of the asset.
	WeiDecimals = 18

	// DefaultMaxTimeoutSeconds is the validity window for completing a payment.
	DefaultMaxTimeoutSeconds = 300

	// DefaultDescription is used when a resource gives no purpose string.
	DefaultDescription = "Payment required for access"

	// AssetETH is the only asset the exact scheme transfers.
	AssetETH = "ETH"
)

var (
	// ErrInvalidPrice is returned when a price cannot be scaled exactly to wei.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrMisconfiguredRecipient is returned when no recipient address is configured.
	ErrMisconfiguredRecipient = errors.New("recipient address is not configured")
)

// RequirementConfig is the process-wide policy the builder reads.
// It is set once at startup and never mutated, so the builder is safe
// to call concurrently.
type RequirementConfig struct {
	PayTo             string
	Network           types.Network
	MaxTimeoutSeconds int64
}

// NewRequirement builds the exact-scheme payment requirements for a resource.
// Equal inputs with equal configuration yield byte-identical requirements.
func NewRequirement(c RequirementConfig, price decimal.Decimal, resource string, description string) (types.PaymentRequirements, error) {

	// Verify the recipient address is configured
	if c.PayTo == "" {
		return types.PaymentRequirements{}, ErrMisconfiguredRecipient
	}

	// Verify the recipient is a valid address
	if !common.IsHexAddress(c.PayTo) {
		return types.PaymentRequirements{}, fmt.Errorf("%w: %q is not a valid address", ErrMisconfiguredRecipient, c.PayTo)
	}

	// Scale the decimal price to the smallest unit
	amount, err := ToSmallestUnit(price)
	if err != nil {
		return types.PaymentRequirements{}, err
	}

	timeout := c.MaxTimeoutSeconds
	if timeout <= 0 {
		timeout = DefaultMaxTimeoutSeconds
	}

	if description == "" {
		description = DefaultDescription
	}

	return types.PaymentRequirements{
		Scheme:            types.SchemeExact,
		Network:           c.Network,
		MaxAmountRequired: amount,
		Resource:          resource,
		Description:       description,
		MimeType:          "application/json",
		PayTo:             c.PayTo,
		MaxTimeoutSeconds: timeout,
		Asset:             AssetETH,
	}, nil
}

// ToSmallestUnit converts a decimal asset price to an integer wei string.
// The scaling is exact: prices with more than WeiDecimals decimal places
// are rejected rather than rounded.
func ToSmallestUnit(price decimal.Decimal) (string, error) {

	// Verify the price is non-negative
	if price.IsNegative() {
		return "", fmt.Errorf("%w: price is negative", ErrInvalidPrice)
	}

	// Shift to the smallest unit and verify no fractional wei remains
	scaled := price.Shift(WeiDecimals)
	if !scaled.IsInteger() {
		return "", fmt.Errorf("%w: more than %d decimal places", ErrInvalidPrice, WeiDecimals)
	}

	return scaled.BigInt().String(), nil
}

// FromSmallestUnit converts an integer wei string back to a decimal price.
// It is the exact inverse of ToSmallestUnit.
func FromSmallestUnit(amount string) (decimal.Decimal, error) {

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrInvalidPrice, err)
	}

	if !d.IsInteger() {
		return decimal.Decimal{}, fmt.Errorf("%w: amount %q is not an integer", ErrInvalidPrice, amount)
	}

	return d.Shift(-WeiDecimals), nil
}
