// Package rpcapi is the engine's typed RPC schema: the request/response
// messages and service contracts for spec §4.1/§6's Wallet and Payments
// services, plus the client/server glue that would ordinarily come out
// of protoc-gen-go-grpc. protoc cannot be invoked in this environment,
// so this file and wallet_grpc.go/payments_grpc.go/codec.go are
// hand-written in its emitted shape (see DESIGN.md) — the transport,
// streaming and deadline machinery underneath is the real
// google.golang.org/grpc, not a fabrication.
package rpcapi

import "time"

// CreateWalletRequest is Wallet.CreateWallet's request, spec §6. An
// empty Mnemonic asks the engine to generate one.
type CreateWalletRequest struct {
	Mnemonic string
	Label    string
}

// CreateWalletResponse returns the node's hex-encoded public key and its
// first on-chain receive address.
type CreateWalletResponse struct {
	NodeID  string
	Address string
}

// GetBalanceRequest takes no fields.
type GetBalanceRequest struct{}

// GetBalanceResponse reports the on-chain confirmed and Lightning
// spendable balances, spec §4.1 GetBalance.
type GetBalanceResponse struct {
	ConfirmedSats int64
	LightningSats int64
}

// NewInvoiceRequest is Wallet.NewInvoice's request.
type NewInvoiceRequest struct {
	AmountSats int64
	Memo       string
}

// NewInvoiceResponse returns the BOLT-11 string and hex-encoded payment
// hash.
type NewInvoiceResponse struct {
	Bolt11      string
	PaymentHash string
}

// SendPaymentRequest is Wallet.SendPayment's request.
type SendPaymentRequest struct {
	Bolt11 string
}

// SendPaymentResponse carries the hex-encoded payment hash and the
// status spec §4.1 defines: pending, succeeded, or failed.
type SendPaymentResponse struct {
	PaymentHash string
	Status      string
}

// PaymentRecord mirrors spec §3's application payment record, the
// shared payload every Payments method returns or streams.
type PaymentRecord struct {
	PaymentID        string
	WalletID         string
	AmountSats       int64
	Invoice          string
	Description      string
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	RefundAmountSats int64
}

// ProcessPaymentRequest is Payments.ProcessPayment's request, idempotent
// by PaymentID.
type ProcessPaymentRequest struct {
	PaymentID   string
	WalletID    string
	AmountSats  int64
	Invoice     string
	Description string
}

// ProcessPaymentResponse wraps the resulting record.
type ProcessPaymentResponse struct {
	Record *PaymentRecord
}

// GetPaymentStatusRequest looks up a record by PaymentID.
type GetPaymentStatusRequest struct {
	PaymentID string
}

// GetPaymentStatusResponse wraps the found record.
type GetPaymentStatusResponse struct {
	Record *PaymentRecord
}

// ProcessRefundRequest is Payments.ProcessRefund's request.
// RefundInvoice is the optional out-of-band destination the
// counterparty supplied for the refund payout (spec §4.6); it is not
// part of the error-kind table in spec §6 and may be left empty when
// the counterparty's claim path is handled outside this engine.
type ProcessRefundRequest struct {
	PaymentID     string
	AmountSats    int64
	RefundInvoice string
}

// ProcessRefundResponse wraps the refunded record.
type ProcessRefundResponse struct {
	Record *PaymentRecord
}

// PaymentStreamRequest opens a stream of records for WalletID. A Limit
// of zero means unbounded.
type PaymentStreamRequest struct {
	WalletID string
	Limit    int32
}

// PaymentStreamResponse is one element of the streamed sequence.
type PaymentStreamResponse struct {
	Record *PaymentRecord
}
