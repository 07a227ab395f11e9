package tests

import (
	"context"
	"crypto/ecdsa"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	handler "github.com/raid-guild/x402-paygate-go/api"
	"github.com/raid-guild/x402-paygate-go/core"
	"github.com/raid-guild/x402-paygate-go/types"
)

const (
	testRecipient = "0x00000000000000000000000000000000000000A1"
	testNetwork   = types.Network("test-network")
	testResource  = "/resource/x"
)

var registerMockDriverOnce sync.Once

func setupMockDatabase(t *testing.T, dsnID string) (sqlmock.Sqlmock, string, func()) {
	t.Helper()

	dsn := "sqlmock_db_" + dsnID
	db, mock, err := sqlmock.NewWithDSN(dsn)
	if err != nil {
		t.Fatalf("failed to create mock database: %v", err)
	}

	registerMockDriverOnce.Do(func() {
		driver := db.Driver()
		sql.Register("postgres", driver)
	})

	cleanup := func() {
		db.Close()
	}

	return mock, dsn, cleanup
}

// testRequirementConfig is the builder policy every integration test gates with.
func testRequirementConfig() core.RequirementConfig {
	return core.RequirementConfig{
		PayTo:             testRecipient,
		Network:           testNetwork,
		MaxTimeoutSeconds: 300,
	}
}

func testProtectedConfig() handler.ProtectedConfig {
	return handler.ProtectedConfig{
		Requirement: testRequirementConfig(),
		BasePrice:   decimal.RequireFromString("0.001"),
		Resource:    testResource,
		Description: "Access to premium content",
	}
}

// signAuthorization signs the message with a fresh key and returns the
// signature plus the signer address.
func signAuthorization(t *testing.T, message string) (string, common.Address) {
	t.Helper()

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	return signWithKey(t, privateKey, message), crypto.PubkeyToAddress(privateKey.PublicKey)
}

func signWithKey(t *testing.T, privateKey *ecdsa.PrivateKey, message string) string {
	t.Helper()

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	signature, err := crypto.Sign(crypto.Keccak256([]byte(prefixed)), privateKey)
	if err != nil {
		t.Fatalf("failed to sign message: %v", err)
	}

	// Wallet convention: V as 27/28
	signature[64] += 27

	return "0x" + hex.EncodeToString(signature)
}

// validPayload builds a fully-valid proof for the test gate's requirements.
func validPayload(t *testing.T, txHash string) types.PaymentPayload {
	t.Helper()

	requirements, err := core.NewRequirement(
		testRequirementConfig(),
		decimal.RequireFromString("0.001"),
		testResource,
		"Access to premium content",
	)
	if err != nil {
		t.Fatalf("failed to build requirements: %v", err)
	}

	message := core.AuthorizationMessage(requirements)
	signature, from := signAuthorization(t, message)

	return types.PaymentPayload{
		From:      from.Hex(),
		To:        requirements.PayTo,
		Amount:    requirements.MaxAmountRequired,
		Network:   requirements.Network,
		Signature: signature,
		Message:   message,
		TxHash:    txHash,
	}
}

func marshalPayload(t *testing.T, p types.PaymentPayload) string {
	t.Helper()

	encoded, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	return string(encoded)
}

// protectedRequest drives one request through the protected-resource handler.
func protectedRequest(t *testing.T, cfg handler.ProtectedConfig, target string, paymentHeader string, expectedStatus int, checkResponse func(*testing.T, string)) {
	t.Helper()

	w := httptest.NewRecorder()

	req := httptest.NewRequest("GET", target, nil)
	if paymentHeader != "" {
		req.Header.Set("x-payment", paymentHeader)
	}

	handler.Protected(cfg)(w, req)

	if w.Code != expectedStatus {
		t.Fatalf("expected status %d, got %d. Body: %s", expectedStatus, w.Code, w.Body.String())
	}

	if checkResponse != nil {
		checkResponse(t, w.Body.String())
	}
}

func statusRequest(t *testing.T, checker core.StatusChecker, apiKey string, target string, expectedStatus int, checkResponse func(*testing.T, string)) {
	t.Helper()

	w := httptest.NewRecorder()

	req := httptest.NewRequest("GET", target, nil)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	handler.Status(checker, nil)(w, req)

	if w.Code != expectedStatus {
		t.Fatalf("expected status %d, got %d. Body: %s", expectedStatus, w.Code, w.Body.String())
	}

	if checkResponse != nil {
		checkResponse(t, w.Body.String())
	}
}

// stubStatusChecker is a canned settlement lookup.
type stubStatusChecker struct {
	status types.TxStatus
	err    error
}

func (s stubStatusChecker) GetStatus(ctx context.Context, txHash string) (types.TxStatus, error) {
	return s.status, s.err
}

func decodeChallenge(t *testing.T, body string) types.PaymentRequiredResponse {
	t.Helper()

	var challenge types.PaymentRequiredResponse
	if err := json.Unmarshal([]byte(body), &challenge); err != nil {
		t.Fatalf("failed to decode 402 body: %v", err)
	}
	return challenge
}
