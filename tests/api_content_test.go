package tests

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	handler "github.com/raid-guild/x402-paygate-go/api"
	"github.com/raid-guild/x402-paygate-go/core"
	"github.com/raid-guild/x402-paygate-go/types"
)

func contentRequest(t *testing.T, checker core.StatusChecker, target string, expectedStatus int, checkResponse func(*testing.T, string)) {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", target, nil)

	handler.Content(handler.ContentConfig{
		Requirement: testRequirementConfig(),
		Price:       decimal.RequireFromString("0.001"),
		Resource:    "premium-content",
		Status:      checker,
	})(w, req)

	if w.Code != expectedStatus {
		t.Fatalf("expected status %d, got %d. Body: %s", expectedStatus, w.Code, w.Body.String())
	}

	if checkResponse != nil {
		checkResponse(t, w.Body.String())
	}
}

func TestContent_TokenGate(t *testing.T) {

	t.Run("missing token yields the challenge", func(t *testing.T) {
		contentRequest(t, stubStatusChecker{status: types.TxStatusSettled}, "/api/content", http.StatusPaymentRequired, func(t *testing.T, body string) {
			challenge := decodeChallenge(t, body)
			if challenge.Error != types.ErrorPaymentRequired {
				t.Errorf("expected error %q, got %q", types.ErrorPaymentRequired, challenge.Error)
			}
			if len(challenge.Accepts) != 1 || challenge.Accepts[0].Resource != "premium-content" {
				t.Errorf("unexpected offer: %+v", challenge.Accepts)
			}
		})
	})

	t.Run("unsettled token yields the challenge", func(t *testing.T) {
		contentRequest(t, stubStatusChecker{status: types.TxStatusPending}, "/api/content?txHash=0xabc", http.StatusPaymentRequired, nil)
	})

	t.Run("lookup failure fails closed", func(t *testing.T) {
		contentRequest(t, stubStatusChecker{err: errors.New("explorer down")}, "/api/content?txHash=0xabc", http.StatusPaymentRequired, nil)
	})

	t.Run("settled token unlocks the content", func(t *testing.T) {
		contentRequest(t, stubStatusChecker{status: types.TxStatusSettled}, "/api/content?txHash=0xabc", http.StatusOK, func(t *testing.T, body string) {
			var response types.ResourceResponse
			if err := json.Unmarshal([]byte(body), &response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if !response.Success {
				t.Error("expected success to be true")
			}
			if response.Content.Title == "" {
				t.Error("expected a content title")
			}
		})
	})
}
