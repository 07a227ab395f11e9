package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/raid-guild/x402-paygate-go/clients"
	"github.com/raid-guild/x402-paygate-go/types"
)

// ErrSettlementTimeout is returned when a transaction does not settle within
// the allowed window.
var ErrSettlementTimeout = errors.New("settlement timeout")

// StatusChecker reports the settlement state of a transaction.
type StatusChecker interface {
	GetStatus(ctx context.Context, txHash string) (types.TxStatus, error)
}

// ChainStatusChecker checks settlement directly against the configured
// network by looking up the transaction receipt.
type ChainStatusChecker struct {
	RPCURL string
}

// GetStatus implements StatusChecker.
func (c ChainStatusChecker) GetStatus(ctx context.Context, txHash string) (types.TxStatus, error) {

	// Get the RPC URL for the configured network
	if c.RPCURL == "" {
		// Return an error that will be handled as an internal server error
		return types.TxStatusUnknown, fmt.Errorf("RPC_URL environment variable is not set")
	}

	// Dial the Ethereum RPC client
	client, err := clients.NewEthClient(c.RPCURL)
	if err != nil {
		return types.TxStatusUnknown, fmt.Errorf("failed to dial RPC client: %v", err)
	}

	// Look up the transaction receipt
	receipt, err := client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		// A transaction without a receipt has not been mined yet
		if errors.Is(err, ethereum.NotFound) {
			return types.TxStatusPending, nil
		}
		return types.TxStatusUnknown, fmt.Errorf("failed to get transaction receipt: %v", err)
	}

	// A successful receipt means the transfer settled
	if receipt.Status == ethtypes.ReceiptStatusSuccessful {
		return types.TxStatusSettled, nil
	}

	return types.TxStatusUnknown, nil
}

// AwaitSettlement polls the checker with backoff until the transaction
// settles or the timeout elapses.
func AwaitSettlement(ctx context.Context, checker StatusChecker, txHash string, timeout time.Duration) error {

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := retry.Do(
		func() error {
			status, err := checker.GetStatus(ctx, txHash)
			if err != nil {
				return err
			}
			if status != types.TxStatusSettled {
				return fmt.Errorf("transaction %s is %s", txHash, status)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(10),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSettlementTimeout, err)
	}

	return nil
}
