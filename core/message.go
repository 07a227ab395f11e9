package core

import (
	"fmt"

	"github.com/raid-guild/x402-paygate-go/types"
)

// authorizationTemplate is the canonical authorization text. Its exact byte
// content is part of the protocol contract: the payer signs the rendered
// message and the gate recomputes it from the same requirements, so any
// whitespace or field-order change invalidates all outstanding signatures.
const authorizationTemplate = `x402 Payment Authorization

I authorize payment for:
Resource: %s
Amount: %s wei
Recipient: %s
Network: %s
Description: %s

Signing this message authorizes the payment but does not execute the transaction.`

// AuthorizationMessage renders the canonical text a payer signs to authorize
// payment for the given requirements.
func AuthorizationMessage(r types.PaymentRequirements) string {
	return fmt.Sprintf(
		authorizationTemplate,
		r.Resource,
		r.MaxAmountRequired,
		r.PayTo,
		r.Network,
		r.Description,
	)
}
