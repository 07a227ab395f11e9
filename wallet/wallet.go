// Package wallet defines the capability a payer needs to complete a payment:
// an identity, message signing, and value transfers.
package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrWalletUnavailable is returned when no wallet connector responds.
	ErrWalletUnavailable = errors.New("no wallet connector responded")

	// ErrUserRejected is returned when the user declines a wallet prompt.
	ErrUserRejected = errors.New("user rejected the wallet prompt")
)

// Wallet is the connector interface the payment orchestrator drives.
type Wallet interface {
	// Connect establishes connectivity and returns the payer address.
	Connect(ctx context.Context) (common.Address, error)

	// SignMessage signs the text with the personal-sign scheme and returns
	// the hex-encoded 65-byte signature.
	SignMessage(ctx context.Context, message string) (string, error)

	// SendValueTransfer broadcasts a transfer of amount wei to the recipient
	// and returns the transaction hash.
	SendValueTransfer(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error)
}
