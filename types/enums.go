package types

// X402Version is the protocol version carried in every 402 body.
const X402Version = "0.1.0"

// Scheme is the payment scheme enum.
type Scheme string

const (
	SchemeExact Scheme = "exact"
)

// Network is the settlement network enum.
type Network string

const (
	NetworkBaseSepolia Network = "base-sepolia"
	NetworkSepolia     Network = "sepolia"
)

// TxStatus is the settlement state of a transaction.
type TxStatus string

const (
	TxStatusSettled TxStatus = "settled"
	TxStatusPending TxStatus = "pending"
	TxStatusUnknown TxStatus = "unknown"
)

// RejectReason is the machine-readable reason a proof was rejected.
type RejectReason string

const (
	RejectReasonNone                RejectReason = ""
	RejectReasonMalformedPayload    RejectReason = "malformed_payload"
	RejectReasonInvalidSignature    RejectReason = "invalid_signature"
	RejectReasonRequirementMismatch RejectReason = "requirement_mismatch"
	RejectReasonReplayedPayload     RejectReason = "replayed_payload"
	RejectReasonNotSettled          RejectReason = "transaction_not_settled"
)

// Error strings carried in the 402 body, one per rejection state.
const (
	ErrorPaymentRequired     = "Payment required"
	ErrorInvalidPayload      = "Invalid payment payload"
	ErrorInvalidSignature    = "Invalid signature"
	ErrorRequirementMismatch = "Payment does not match requirements"
	ErrorReplayedPayment     = "Payment already used"
	ErrorNotSettled          = "Payment not settled"
	ErrorVerificationFailed  = "Payment verification failed"
)
