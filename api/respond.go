package handler

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/raid-guild/x402-paygate-go/types"
)

var gateMetrics = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "x402_gate_requests",
		Help: "Payment gate outcomes",
	},
	[]string{"outcome"},
)

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writePaymentRequired writes the 402 challenge, re-offering the requirements
// so the client can retry without re-deriving them.
func writePaymentRequired(w http.ResponseWriter, errorMessage string, requirements types.PaymentRequirements) {
	writeJSON(w, http.StatusPaymentRequired, types.PaymentRequiredResponse{
		X402Version: types.X402Version,
		Error:       errorMessage,
		Accepts:     []types.PaymentRequirements{requirements},
	})
}

// errorForReason maps a rejection reason to the 402 body error string.
func errorForReason(reason types.RejectReason) string {
	switch reason {
	case types.RejectReasonMalformedPayload:
		return types.ErrorInvalidPayload
	case types.RejectReasonInvalidSignature:
		return types.ErrorInvalidSignature
	case types.RejectReasonRequirementMismatch:
		return types.ErrorRequirementMismatch
	case types.RejectReasonReplayedPayload:
		return types.ErrorReplayedPayment
	case types.RejectReasonNotSettled:
		return types.ErrorNotSettled
	default:
		return types.ErrorVerificationFailed
	}
}
