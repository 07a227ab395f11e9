package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/raid-guild/x402-paygate-go/core"
	"github.com/raid-guild/x402-paygate-go/types"
)

// ProtectedConfig wires the payment gate's collaborators. Replay and Status
// are optional hardening policies: a nil Replay allows idempotent
// resubmission of a valid payload, a nil Status accepts signature validity
// alone as proof of payment.
type ProtectedConfig struct {
	Requirement core.RequirementConfig
	BasePrice   decimal.Decimal
	Resource    string
	Description string
	Replay      *core.ReplayGuard
	Status      core.StatusChecker
	Log         *zap.Logger
}

// Protected returns the handler gating the protected resource behind the
// 402 challenge/response cycle. The handler is stateless across requests:
// the entire exchange state travels in the request itself.
func Protected(cfg ProtectedConfig) http.HandlerFunc {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request) {

		// Scale the configured price by the optional multiplier
		price := cfg.BasePrice
		if raw := r.URL.Query().Get("multiplier"); raw != "" {
			multiplier, err := strconv.ParseInt(raw, 10, 64)
			if err == nil && multiplier > 0 {
				price = price.Mul(decimal.NewFromInt(multiplier))
			}
		}

		// Build the requirements offered for this resource
		requirements, err := core.NewRequirement(cfg.Requirement, price, cfg.Resource, cfg.Description)
		if err != nil {
			// Builder failures are configuration faults, not protocol rejections
			cfg.Log.Error("build payment requirements", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		// No proof present: issue the challenge
		paymentHeader := r.Header.Get("x-payment")
		if paymentHeader == "" {
			gateMetrics.WithLabelValues("challenge").Inc()
			writePaymentRequired(w, types.ErrorPaymentRequired, requirements)
			return
		}

		// Parse the proof strictly; malformed proofs re-offer the challenge
		payload, err := core.ParsePayload([]byte(paymentHeader))
		if err != nil {
			cfg.Log.Info("malformed payment payload", zap.Error(err))
			gateMetrics.WithLabelValues("rejected").Inc()
			writePaymentRequired(w, types.ErrorInvalidPayload, requirements)
			return
		}

		// Verify the proof under the configured policies
		result := verifyWithPolicy(r.Context(), cfg, payload, requirements)
		if !result.Valid {
			cfg.Log.Info("payment rejected",
				zap.String("reason", string(result.Reason)),
				zap.String("from", payload.From),
			)
			gateMetrics.WithLabelValues("rejected").Inc()
			writePaymentRequired(w, errorForReason(result.Reason), requirements)
			return
		}

		cfg.Log.Info("payment verified",
			zap.String("payer", result.Payer),
			zap.String("txHash", payload.TxHash),
		)

		// Release the resource with the audit fields the payer displays
		gateMetrics.WithLabelValues("granted").Inc()
		writeJSON(w, http.StatusOK, types.ResourceResponse{
			Success: true,
			Message: "Payment verified successfully",
			Content: types.ResourceContent{
				Title:       "Premium Content",
				Description: "This is exclusive content available only after payment.",
				Data: &types.ResourceData{
					Secret:    "You have successfully accessed the protected content!",
					Timestamp: time.Now().UTC().Format(time.RFC3339),
					TxHash:    payload.TxHash,
				},
			},
		})
	}
}

// verifyWithPolicy runs proof verification plus the optional settlement and
// replay policies. Verification never surfaces as a server error: unexpected
// panics downgrade to a malformed-payload rejection so the gate fails closed.
func verifyWithPolicy(ctx context.Context, cfg ProtectedConfig, payload types.PaymentPayload, requirements types.PaymentRequirements) (result types.VerifyResult) {

	defer func() {
		if rec := recover(); rec != nil {
			cfg.Log.Error("payment verification panic", zap.Any("panic", rec))
			result = types.VerifyResult{
				Valid:  false,
				Reason: types.RejectReasonMalformedPayload,
			}
		}
	}()

	result = core.VerifyProof(payload, requirements)
	if !result.Valid {
		return result
	}

	// Settlement-confirmed proof, when required
	if cfg.Status != nil {
		status, err := cfg.Status.GetStatus(ctx, payload.TxHash)
		if err != nil || status != types.TxStatusSettled {
			if err != nil {
				cfg.Log.Info("settlement check failed", zap.Error(err))
			}
			return types.VerifyResult{
				Valid:  false,
				Reason: types.RejectReasonNotSettled,
			}
		}
	}

	// Single-use enforcement, when enabled. Only fully-valid payloads are
	// recorded so a rejected attempt never burns its key.
	if cfg.Replay != nil && cfg.Replay.Remember(payload) {
		return types.VerifyResult{
			Valid:  false,
			Reason: types.RejectReasonReplayedPayload,
		}
	}

	return result
}
