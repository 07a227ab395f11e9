package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/raid-guild/x402-paygate-go/core"
	"github.com/raid-guild/x402-paygate-go/types"
)

// ContentConfig wires the token-gated content endpoint.
type ContentConfig struct {
	Requirement core.RequirementConfig
	Price       decimal.Decimal
	Resource    string
	Status      core.StatusChecker
	Log         *zap.Logger
}

// Content returns the handler for the lighter token-gated variant of the
// gate: instead of a signed proof, access is granted to a transaction hash
// the status checker confirms settled. Two states only: no or invalid token
// re-offers the challenge, a valid token releases the content.
func Content(cfg ContentConfig) http.HandlerFunc {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request) {

		requirements, err := core.NewRequirement(cfg.Requirement, cfg.Price, cfg.Resource, "Access to premium content")
		if err != nil {
			cfg.Log.Error("build payment requirements", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		txHash := r.URL.Query().Get("txHash")
		if txHash == "" || !verifyAccessToken(r, cfg, txHash) {
			writePaymentRequired(w, types.ErrorPaymentRequired, requirements)
			return
		}

		writeJSON(w, http.StatusOK, types.ResourceResponse{
			Success: true,
			Content: types.ResourceContent{
				Title:     "Congratulations! 🎉",
				Message:   "You have successfully unlocked this premium content!",
				Details:   "This content is now available because you completed the payment.",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			},
		})
	}
}

// verifyAccessToken treats a transaction hash as an opaque access token:
// it is valid exactly when the transfer it names has settled.
func verifyAccessToken(r *http.Request, cfg ContentConfig, txHash string) bool {
	if cfg.Status == nil {
		return false
	}
	status, err := cfg.Status.GetStatus(r.Context(), txHash)
	if err != nil {
		cfg.Log.Info("access token lookup failed", zap.Error(err))
		return false
	}
	return status == types.TxStatusSettled
}
