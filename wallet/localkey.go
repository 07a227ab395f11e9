package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/raid-guild/x402-paygate-go/clients"
)

// LocalWallet is an in-process wallet backed by a hex private key. It signs
// and broadcasts without any external connector, for CLI and test use.
type LocalWallet struct {
	key     *ecdsa.PrivateKey
	chainID *big.Int
	rpcURL  string
}

// NewLocalWallet parses the private key and binds the wallet to a network.
func NewLocalWallet(privateKeyHex string, chainID int64, rpcURL string) (*LocalWallet, error) {

	// Parse the payer private key
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %v", err)
	}

	return &LocalWallet{
		key:     key,
		chainID: big.NewInt(chainID),
		rpcURL:  rpcURL,
	}, nil
}

// Connect returns the payer address derived from the key.
func (w *LocalWallet) Connect(ctx context.Context) (common.Address, error) {
	if w == nil || w.key == nil {
		return common.Address{}, ErrWalletUnavailable
	}
	return crypto.PubkeyToAddress(w.key.PublicKey), nil
}

// SignMessage signs the text with the personal-sign scheme.
func (w *LocalWallet) SignMessage(ctx context.Context, message string) (string, error) {

	// Construct the personal-sign hash over exactly the message text
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	sighash := crypto.Keccak256([]byte(prefixed))

	// Sign the hash with the payer private key
	signature, err := crypto.Sign(sighash, w.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %v", err)
	}

	// Convert the V value of the signature to the wallet convention (0/1 → 27/28)
	signature[64] += 27

	return "0x" + hex.EncodeToString(signature), nil
}

// SendValueTransfer broadcasts an EIP-1559 value transfer to the recipient.
func (w *LocalWallet) SendValueTransfer(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {

	// Get the RPC URL for the configured network
	if w.rpcURL == "" {
		return common.Hash{}, fmt.Errorf("RPC_URL environment variable is not set")
	}

	// Dial the Ethereum RPC client
	client, err := clients.NewEthClient(w.rpcURL)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to dial RPC client: %v", err)
	}

	// Get the payer address
	from := crypto.PubkeyToAddress(w.key.PublicKey)

	// Get the pending nonce for the payer account
	txNonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get pending nonce: %v", err)
	}

	// Get the suggested gas tip cap
	gasTipCap, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to suggest gas tip cap: %v", err)
	}

	// Get the latest block header to get the base fee
	blockHeader, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get block header: %v", err)
	}

	// Verify the block header base fee is not nil
	if blockHeader.BaseFee == nil {
		return common.Hash{}, fmt.Errorf("block header missing base fee: network may not support EIP-1559")
	}

	// Determine the gas fee cap (2x base fee + gas tip cap)
	gasFeeCap := new(big.Int).Add(
		new(big.Int).Mul(blockHeader.BaseFee, big.NewInt(2)),
		gasTipCap,
	)

	// Get the estimated gas limit to set the gas amount
	gasLimit, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: amount,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %v", err)
	}

	// Add 20% buffer to the gas estimate for safety
	gasLimit = gasLimit * 120 / 100

	// Create the transaction using EIP-1559
	transaction := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   w.chainID,
		Nonce:     txNonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       gasLimit,
		To:        &to,
		Value:     amount,
	})

	// Create the signer using EIP-1559
	signer := ethtypes.NewLondonSigner(w.chainID)

	// Sign the transaction with the payer private key
	signedTx, err := ethtypes.SignTx(transaction, signer, w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %v", err)
	}

	// Send the signed transaction
	err = client.SendTransaction(ctx, signedTx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %v", err)
	}

	return signedTx.Hash(), nil
}
