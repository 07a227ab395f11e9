package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/raid-guild/x402-paygate-go/types"
)

// ParsePayload strictly decodes an x-payment header value into a payment
// payload. Unknown fields and malformed JSON are rejected outright so the
// verifier never sees a partially-populated structure.
func ParsePayload(raw []byte) (types.PaymentPayload, error) {
	var p types.PaymentPayload
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return types.PaymentPayload{}, fmt.Errorf("failed to decode payment payload: %v", err)
	}
	return p, nil
}

// VerifyProof validates a payment payload against the requirements issued for
// the resource. It performs no network calls; settlement confirmation is a
// separate policy handled by a StatusChecker.
func VerifyProof(p types.PaymentPayload, r types.PaymentRequirements) types.VerifyResult {

	// Verify the structural fields are present
	if p.From == "" || p.Signature == "" || p.Message == "" {
		return types.VerifyResult{
			Valid:  false,
			Reason: types.RejectReasonMalformedPayload,
		}
	}

	// Verify the claimed payer is a valid address
	if !common.IsHexAddress(p.From) {
		return types.VerifyResult{
			Valid:  false,
			Reason: types.RejectReasonMalformedPayload,
		}
	}

	// Parse the payload signature
	signature, err := common.ParseHexOrString(p.Signature)
	if err != nil {
		return types.VerifyResult{
			Valid:  false,
			Reason: types.RejectReasonInvalidSignature,
		}
	}

	// Verify the signature is exactly 65 bytes (32 bytes r + 32 bytes s + 1 byte v)
	if len(signature) != 65 {
		return types.VerifyResult{
			Valid:  false,
			Reason: types.RejectReasonInvalidSignature,
		}
	}

	// Work on a copy so the caller's payload is never mutated
	sig := make([]byte, 65)
	copy(sig, signature)

	// Convert the V value of the signature if necessary (27/28 → 0/1)
	if sig[64] == 27 || sig[64] == 28 {
		sig[64] -= 27
	}

	// Construct the personal-sign hash over exactly the message text
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(p.Message), p.Message)
	sighash := crypto.Keccak256([]byte(prefixed))

	// Recover the public key
	pubkey, err := crypto.Ecrecover(sighash, sig)
	if err != nil {
		return types.VerifyResult{
			Valid:  false,
			Reason: types.RejectReasonInvalidSignature,
		}
	}

	// Verify public key length
	if len(pubkey) != 65 {
		return types.VerifyResult{
			Valid:  false,
			Reason: types.RejectReasonInvalidSignature,
		}
	}

	// Unmarshal the public key
	recoveredPubkey, err := crypto.UnmarshalPubkey(pubkey)
	if err != nil {
		return types.VerifyResult{
			Valid:  false,
			Reason: types.RejectReasonInvalidSignature,
		}
	}

	// Convert the public key to an address
	sender := crypto.PubkeyToAddress(*recoveredPubkey)

	// Verify the signer matches the claimed payer
	if sender != common.HexToAddress(p.From) {
		return types.VerifyResult{
			Valid:  false,
			Reason: types.RejectReasonInvalidSignature,
		}
	}

	// Verify the payload recipient matches the required recipient
	if p.To != r.PayTo {
		return types.VerifyResult{
			Valid:  false,
			Reason: types.RejectReasonRequirementMismatch,
		}
	}

	// Verify the payload amount matches the required amount exactly
	if p.Amount != r.MaxAmountRequired {
		return types.VerifyResult{
			Valid:  false,
			Reason: types.RejectReasonRequirementMismatch,
		}
	}

	// Verify the payload network matches the required network
	if p.Network != r.Network {
		return types.VerifyResult{
			Valid:  false,
			Reason: types.RejectReasonRequirementMismatch,
		}
	}

	// Return verify result valid with the payer address
	return types.VerifyResult{
		Valid: true,
		Payer: sender.Hex(),
	}
}
