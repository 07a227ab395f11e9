package client

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	handler "github.com/raid-guild/x402-paygate-go/api"
	"github.com/raid-guild/x402-paygate-go/core"
	"github.com/raid-guild/x402-paygate-go/types"
	"github.com/raid-guild/x402-paygate-go/wallet"
)

const testRecipient = "0x00000000000000000000000000000000000000A1"

// stubWallet signs with a real key so proofs verify server-side, but fakes
// the transfer broadcast.
type stubWallet struct {
	key        *ecdsa.PrivateKey
	connectErr error
	signErr    error
	sendErr    error

	claimedFrom *common.Address

	sentTo     common.Address
	sentAmount *big.Int
	txHash     common.Hash
}

func newStubWallet(t *testing.T) *stubWallet {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	return &stubWallet{
		key:    key,
		txHash: common.HexToHash("0xfeed"),
	}
}

func (w *stubWallet) Connect(ctx context.Context) (common.Address, error) {
	if w.connectErr != nil {
		return common.Address{}, w.connectErr
	}
	if w.claimedFrom != nil {
		return *w.claimedFrom, nil
	}
	return crypto.PubkeyToAddress(w.key.PublicKey), nil
}

func (w *stubWallet) SignMessage(ctx context.Context, message string) (string, error) {
	if w.signErr != nil {
		return "", w.signErr
	}

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	signature, err := crypto.Sign(crypto.Keccak256([]byte(prefixed)), w.key)
	if err != nil {
		return "", err
	}
	signature[64] += 27

	return "0x" + hex.EncodeToString(signature), nil
}

func (w *stubWallet) SendValueTransfer(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	if w.sendErr != nil {
		return common.Hash{}, w.sendErr
	}
	w.sentTo = to
	w.sentAmount = amount
	return w.txHash, nil
}

// newGateServer serves the real protected-resource handler.
func newGateServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(handler.Protected(handler.ProtectedConfig{
		Requirement: core.RequirementConfig{
			PayTo:             testRecipient,
			Network:           "test-network",
			MaxTimeoutSeconds: 300,
		},
		BasePrice:   decimal.RequireFromString("0.001"),
		Resource:    "/resource/x",
		Description: "Access to premium content",
	}))
	t.Cleanup(server.Close)

	return server
}

func TestPay_Success(t *testing.T) {
	server := newGateServer(t)
	w := newStubWallet(t)

	payer := Client{Wallet: w}

	body, err := payer.Pay(context.Background(), server.URL)
	require.NoError(t, err)

	var response types.ResourceResponse
	require.NoError(t, json.Unmarshal(body, &response))
	require.True(t, response.Success)
	require.Equal(t, w.txHash.Hex(), response.Content.Data.TxHash)

	// The transfer must match the offered requirements exactly
	require.Equal(t, common.HexToAddress(testRecipient), w.sentTo)
	require.Equal(t, big.NewInt(1000000000000000), w.sentAmount)
}

func TestPay_WalletUnavailable(t *testing.T) {
	server := newGateServer(t)

	t.Run("no wallet wired", func(t *testing.T) {
		payer := Client{}
		_, err := payer.Pay(context.Background(), server.URL)
		require.ErrorIs(t, err, wallet.ErrWalletUnavailable)
	})

	t.Run("connector does not respond", func(t *testing.T) {
		w := newStubWallet(t)
		w.connectErr = wallet.ErrWalletUnavailable

		payer := Client{Wallet: w}
		_, err := payer.Pay(context.Background(), server.URL)
		require.ErrorIs(t, err, wallet.ErrWalletUnavailable)
	})
}

func TestPay_UserRejected(t *testing.T) {
	server := newGateServer(t)

	t.Run("rejects the signature prompt", func(t *testing.T) {
		w := newStubWallet(t)
		w.signErr = wallet.ErrUserRejected

		payer := Client{Wallet: w}
		_, err := payer.Pay(context.Background(), server.URL)
		require.ErrorIs(t, err, wallet.ErrUserRejected)
		require.Nil(t, w.sentAmount, "no transfer may follow a rejected prompt")
	})

	t.Run("rejects the transfer prompt", func(t *testing.T) {
		w := newStubWallet(t)
		w.sendErr = wallet.ErrUserRejected

		payer := Client{Wallet: w}
		_, err := payer.Pay(context.Background(), server.URL)
		require.ErrorIs(t, err, wallet.ErrUserRejected)
	})
}

func TestPay_UnexpectedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	payer := Client{Wallet: newStubWallet(t)}
	_, err := payer.Pay(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestPay_Rejected(t *testing.T) {
	server := newGateServer(t)

	// The wallet claims an address other than the one that signs, so the
	// gate rejects the resubmission
	w := newStubWallet(t)
	claimed := common.HexToAddress("0x00000000000000000000000000000000000000C3")
	w.claimedFrom = &claimed

	payer := Client{Wallet: w}
	_, err := payer.Pay(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrPaymentRejected)
	require.Contains(t, err.Error(), types.ErrorInvalidSignature)
}

type stubChecker struct {
	status types.TxStatus
}

func (s stubChecker) GetStatus(ctx context.Context, txHash string) (types.TxStatus, error) {
	return s.status, nil
}

func TestPay_Settlement(t *testing.T) {
	server := newGateServer(t)

	t.Run("waits for settlement before submitting", func(t *testing.T) {
		payer := Client{
			Wallet:            newStubWallet(t),
			Status:            stubChecker{status: types.TxStatusSettled},
			SettlementTimeout: time.Second,
		}

		body, err := payer.Pay(context.Background(), server.URL)
		require.NoError(t, err)
		require.Contains(t, string(body), `"success":true`)
	})

	t.Run("surfaces a settlement timeout", func(t *testing.T) {
		payer := Client{
			Wallet:            newStubWallet(t),
			Status:            stubChecker{status: types.TxStatusPending},
			SettlementTimeout: 50 * time.Millisecond,
		}

		_, err := payer.Pay(context.Background(), server.URL)
		require.ErrorIs(t, err, core.ErrSettlementTimeout)
	})
}
