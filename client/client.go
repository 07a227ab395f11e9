// Package client drives the end-to-end payment flow against a gated
// resource: discover the requirement, obtain a signature and a transfer from
// the wallet, await settlement, and resubmit with the assembled proof.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/raid-guild/x402-paygate-go/core"
	"github.com/raid-guild/x402-paygate-go/types"
	"github.com/raid-guild/x402-paygate-go/wallet"
)

var (
	// ErrUnexpectedResponse is returned when the resource endpoint violates
	// the challenge/response protocol.
	ErrUnexpectedResponse = errors.New("unexpected response from resource")

	// ErrPaymentRejected wraps the server's stated rejection reason. The
	// attempt is terminal: retrying needs a fresh transaction, so fresh
	// user action.
	ErrPaymentRejected = errors.New("payment rejected")
)

// Client is the payment orchestrator. Steps run strictly in sequence; any
// step failing aborts the attempt with no automatic retry.
type Client struct {
	// HTTP is the client used for resource round-trips. Defaults to
	// http.DefaultClient.
	HTTP *http.Client

	// Wallet supplies the payer identity, signatures, and transfers.
	Wallet wallet.Wallet

	// Status, when set, is polled until the transfer settles before the
	// proof is submitted. When nil the orchestrator submits immediately,
	// mirroring the signature-only acceptance policy.
	Status core.StatusChecker

	// SettlementTimeout bounds the settlement wait. Zero means the
	// requirement's own validity window.
	SettlementTimeout time.Duration

	Log *zap.Logger
}

// Pay runs the payment flow for the resource and returns its body.
func (c *Client) Pay(ctx context.Context, resourceURL string) ([]byte, error) {
	log := c.logger()

	if c.Wallet == nil {
		return nil, wallet.ErrWalletUnavailable
	}

	// Step 1: ensure wallet connectivity
	from, err := c.Wallet.Connect(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("wallet connected", zap.String("address", from.Hex()))

	// Step 2: discover the payment requirements via the 402 challenge
	requirements, err := c.discover(ctx, resourceURL)
	if err != nil {
		return nil, err
	}
	log.Info("received payment requirements",
		zap.String("amount", requirements.MaxAmountRequired),
		zap.String("payTo", requirements.PayTo),
		zap.String("network", string(requirements.Network)),
	)

	// Step 3: sign the canonical authorization message
	message := core.AuthorizationMessage(requirements)
	signature, err := c.Wallet.SignMessage(ctx, message)
	if err != nil {
		return nil, err
	}

	// Step 4: send the value transfer
	amount, ok := new(big.Int).SetString(requirements.MaxAmountRequired, 10)
	if !ok {
		return nil, fmt.Errorf("%w: maxAmountRequired %q is not an integer", ErrUnexpectedResponse, requirements.MaxAmountRequired)
	}
	txHash, err := c.Wallet.SendValueTransfer(ctx, common.HexToAddress(requirements.PayTo), amount)
	if err != nil {
		return nil, err
	}
	log.Info("transfer sent", zap.String("txHash", txHash.Hex()))

	// Step 5: await settlement
	if c.Status != nil {
		timeout := c.SettlementTimeout
		if timeout <= 0 {
			timeout = time.Duration(requirements.MaxTimeoutSeconds) * time.Second
		}
		if err := core.AwaitSettlement(ctx, c.Status, txHash.Hex(), timeout); err != nil {
			return nil, err
		}
		log.Info("transfer settled", zap.String("txHash", txHash.Hex()))
	}

	// Step 6: resubmit with the assembled proof
	payload := types.PaymentPayload{
		From:      from.Hex(),
		To:        requirements.PayTo,
		Amount:    requirements.MaxAmountRequired,
		Network:   requirements.Network,
		Signature: signature,
		Message:   message,
		TxHash:    txHash.Hex(),
	}
	return c.submit(ctx, resourceURL, payload)
}

// discover requests the resource with no proof and extracts the first
// offered requirement from the 402 body. Any other status is a protocol
// violation.
func (c *Client) discover(ctx context.Context, resourceURL string) (types.PaymentRequirements, error) {

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return types.PaymentRequirements{}, err
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return types.PaymentRequirements{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPaymentRequired {
		return types.PaymentRequirements{}, fmt.Errorf("%w: expected 402, got %d", ErrUnexpectedResponse, resp.StatusCode)
	}

	var challenge types.PaymentRequiredResponse
	if err := json.NewDecoder(resp.Body).Decode(&challenge); err != nil {
		return types.PaymentRequirements{}, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}

	if len(challenge.Accepts) == 0 {
		return types.PaymentRequirements{}, fmt.Errorf("%w: challenge offers no requirements", ErrUnexpectedResponse)
	}

	return challenge.Accepts[0], nil
}

// submit resends the request with the proof attached. A 200 yields the
// resource body; a 402 surfaces the server's stated reason.
func (c *Client) submit(ctx context.Context, resourceURL string, payload types.PaymentPayload) ([]byte, error) {

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-payment", string(encoded))

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusPaymentRequired:
		var challenge types.PaymentRequiredResponse
		if err := json.NewDecoder(resp.Body).Decode(&challenge); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPaymentRejected, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrPaymentRejected, challenge.Error)
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnexpectedResponse, resp.StatusCode)
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) logger() *zap.Logger {
	if c.Log != nil {
		return c.Log
	}
	return zap.NewNop()
}
