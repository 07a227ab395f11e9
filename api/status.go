package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/raid-guild/x402-paygate-go/auth"
	"github.com/raid-guild/x402-paygate-go/core"
	"github.com/raid-guild/x402-paygate-go/types"
	"github.com/raid-guild/x402-paygate-go/utils"
)

// Status returns the operator endpoint reporting whether a transaction has
// settled. Unlike the gate itself, lookup failures here are real server
// errors: this endpoint is a utility, not part of the 402 state machine.
func Status(checker core.StatusChecker, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request) {

		// Authenticate request
		err := auth.Authenticate(r)
		if err != nil {
			var se utils.StatusError
			if errors.As(err, &se) {
				http.Error(w, err.Error(), se.Status())
				return
			} else {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
		}

		txHash := r.URL.Query().Get("txHash")
		if txHash == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "Transaction hash is required",
			})
			return
		}

		status, err := checker.GetStatus(r.Context(), txHash)
		if err != nil {
			log.Error("check transaction status", zap.String("txHash", txHash), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Failed to check transaction status",
			})
			return
		}

		writeJSON(w, http.StatusOK, types.StatusResponse{
			Success: status == types.TxStatusSettled,
		})
	}
}
