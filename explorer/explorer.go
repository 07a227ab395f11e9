// Package explorer queries a block-explorer API for transaction status,
// the lookup the txHash access-token path and the status endpoint rely on.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/raid-guild/x402-paygate-go/types"
)

// Client is an etherscan-compatible status query client.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// New creates a client for the given explorer API base URL.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  http.DefaultClient,
	}
}

// receiptStatusResponse is the explorer's gettxreceiptstatus envelope.
type receiptStatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  struct {
		Status string `json:"status"`
	} `json:"result"`
}

// GetStatus reports whether the transaction settled on chain.
func (c *Client) GetStatus(ctx context.Context, txHash string) (types.TxStatus, error) {

	query := url.Values{}
	query.Set("module", "transaction")
	query.Set("action", "gettxreceiptstatus")
	query.Set("txhash", txHash)
	if c.apiKey != "" {
		query.Set("apikey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api?"+query.Encode(), nil)
	if err != nil {
		return types.TxStatusUnknown, fmt.Errorf("failed to build status request: %v", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return types.TxStatusUnknown, fmt.Errorf("failed to query explorer: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.TxStatusUnknown, fmt.Errorf("explorer returned status %d", resp.StatusCode)
	}

	var body receiptStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return types.TxStatusUnknown, fmt.Errorf("failed to decode explorer response: %v", err)
	}

	// A "0" envelope status means the explorer has no record of the hash yet
	if body.Status != "1" {
		return types.TxStatusPending, nil
	}

	switch body.Result.Status {
	case "1":
		return types.TxStatusSettled, nil
	case "":
		return types.TxStatusPending, nil
	default:
		return types.TxStatusUnknown, nil
	}
}
