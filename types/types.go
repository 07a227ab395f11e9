package types

// PaymentRequirements describes the payment that satisfies access to a resource.
// Once issued in a 402 response it is immutable for that exchange.
type PaymentRequirements struct {
	Scheme            Scheme  `json:"scheme"`
	Network           Network `json:"network"`
	MaxAmountRequired string  `json:"maxAmountRequired"`
	Resource          string  `json:"resource"`
	Description       string  `json:"description"`
	MimeType          string  `json:"mimeType"`
	PayTo             string  `json:"payTo"`
	MaxTimeoutSeconds int64   `json:"maxTimeoutSeconds"`
	Asset             string  `json:"asset"`
}

// PaymentPayload is the payment proof a client submits in the x-payment header.
type PaymentPayload struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Amount    string  `json:"amount"`
	Network   Network `json:"network"`
	Signature string  `json:"signature"`
	Message   string  `json:"message"`
	TxHash    string  `json:"txHash"`
}

// PaymentRequiredResponse is the body of every 402 challenge.
type PaymentRequiredResponse struct {
	X402Version string                `json:"x402Version"`
	Error       string                `json:"error"`
	Accepts     []PaymentRequirements `json:"accepts"`
}

// VerifyResult is the outcome of proof verification.
type VerifyResult struct {
	Valid  bool
	Reason RejectReason
	Payer  string
}

// ResourceResponse is the body returned once payment is verified.
type ResourceResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Content ResourceContent `json:"content"`
}

// ResourceContent is the unlocked resource itself.
type ResourceContent struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Message     string        `json:"message,omitempty"`
	Details     string        `json:"details,omitempty"`
	Timestamp   string        `json:"timestamp,omitempty"`
	Data        *ResourceData `json:"data,omitempty"`
}

// ResourceData carries the per-request audit fields shown to the payer.
type ResourceData struct {
	Secret    string `json:"secret"`
	Timestamp string `json:"timestamp"`
	TxHash    string `json:"txHash"`
}

// StatusResponse is the body of the transaction status endpoint.
type StatusResponse struct {
	Success bool `json:"success"`
}
