// Package rpcserver implements spec §4.1/§6's Wallet and Payments
// services on top of an *engine.Engine, translating the engine's domain
// errors into google.golang.org/grpc status codes InvalidArgument,
// FailedPrecondition and NotFound. Every other error, including an
// integrity failure, is reported as Unknown.
//
// Grounded on lnd's rpcserver.go: a thin struct embedding the
// Unimplemented*Server types and one method per RPC that validates,
// calls into the engine, and maps the result onto the wire messages.
package rpcserver

import (
	"context"
	"encoding/hex"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/satsengine/lnengine/internal/engine"
	"github.com/satsengine/lnengine/internal/lightning"
	"github.com/satsengine/lnengine/internal/lightning/invoiceregistry"
	"github.com/satsengine/lnengine/internal/paymentregistry"
	"github.com/satsengine/lnengine/internal/rpcapi"
	"github.com/satsengine/lnengine/internal/walletcore"
)

// WalletServer implements rpcapi.WalletServer against one *engine.Engine.
type WalletServer struct {
	rpcapi.UnimplementedWalletServer
	eng *engine.Engine
}

// NewWalletServer wraps eng.
func NewWalletServer(eng *engine.Engine) *WalletServer {
	return &WalletServer{eng: eng}
}

func (s *WalletServer) CreateWallet(ctx context.Context, req *rpcapi.CreateWalletRequest) (*rpcapi.CreateWalletResponse, error) {
	nodeID, address, err := s.eng.CreateWallet(ctx, req.Mnemonic, req.Label)
	if err != nil {
		return nil, translateError(err)
	}
	return &rpcapi.CreateWalletResponse{NodeID: nodeID, Address: address}, nil
}

func (s *WalletServer) GetBalance(ctx context.Context, req *rpcapi.GetBalanceRequest) (*rpcapi.GetBalanceResponse, error) {
	confirmed, lightningSats, err := s.eng.GetBalance()
	if err != nil {
		return nil, translateError(err)
	}
	return &rpcapi.GetBalanceResponse{ConfirmedSats: confirmed, LightningSats: lightningSats}, nil
}

func (s *WalletServer) NewInvoice(ctx context.Context, req *rpcapi.NewInvoiceRequest) (*rpcapi.NewInvoiceResponse, error) {
	bolt11, hash, err := s.eng.NewInvoice(req.AmountSats, req.Memo)
	if err != nil {
		return nil, translateError(err)
	}
	return &rpcapi.NewInvoiceResponse{Bolt11: bolt11, PaymentHash: hex.EncodeToString(hash[:])}, nil
}

func (s *WalletServer) SendPayment(ctx context.Context, req *rpcapi.SendPaymentRequest) (*rpcapi.SendPaymentResponse, error) {
	hash, status, err := s.eng.SendPayment(ctx, req.Bolt11)
	if err != nil {
		return nil, translateError(err)
	}
	return &rpcapi.SendPaymentResponse{PaymentHash: hex.EncodeToString(hash[:]), Status: string(status)}, nil
}

// PaymentsServer implements rpcapi.PaymentsServer against one
// *engine.Engine's payment registry.
type PaymentsServer struct {
	rpcapi.UnimplementedPaymentsServer
	eng *engine.Engine
}

// NewPaymentsServer wraps eng.
func NewPaymentsServer(eng *engine.Engine) *PaymentsServer {
	return &PaymentsServer{eng: eng}
}

func (s *PaymentsServer) registry() (*paymentregistry.Registry, error) {
	return s.eng.Payments()
}

func (s *PaymentsServer) ProcessPayment(ctx context.Context, req *rpcapi.ProcessPaymentRequest) (*rpcapi.ProcessPaymentResponse, error) {
	reg, err := s.registry()
	if err != nil {
		return nil, translateError(err)
	}
	rec, err := reg.ProcessPayment(ctx, req.PaymentID, req.WalletID, req.AmountSats, req.Invoice, req.Description)
	if err != nil {
		return nil, translateError(err)
	}
	return &rpcapi.ProcessPaymentResponse{Record: toWireRecord(rec)}, nil
}

func (s *PaymentsServer) GetPaymentStatus(ctx context.Context, req *rpcapi.GetPaymentStatusRequest) (*rpcapi.GetPaymentStatusResponse, error) {
	reg, err := s.registry()
	if err != nil {
		return nil, translateError(err)
	}
	rec, err := reg.GetPaymentStatus(req.PaymentID)
	if err != nil {
		return nil, translateError(err)
	}
	return &rpcapi.GetPaymentStatusResponse{Record: toWireRecord(rec)}, nil
}

func (s *PaymentsServer) ProcessRefund(ctx context.Context, req *rpcapi.ProcessRefundRequest) (*rpcapi.ProcessRefundResponse, error) {
	reg, err := s.registry()
	if err != nil {
		return nil, translateError(err)
	}
	rec, err := reg.ProcessRefund(ctx, req.PaymentID, req.AmountSats, req.RefundInvoice)
	if err != nil {
		return nil, translateError(err)
	}
	return &rpcapi.ProcessRefundResponse{Record: toWireRecord(rec)}, nil
}

func (s *PaymentsServer) PaymentStream(req *rpcapi.PaymentStreamRequest, stream rpcapi.Payments_PaymentStreamServer) error {
	reg, err := s.registry()
	if err != nil {
		return translateError(err)
	}
	st, err := reg.PaymentStream(req.WalletID, int(req.Limit))
	if err != nil {
		return translateError(err)
	}
	for {
		rec, ok, err := st.Next()
		if err != nil {
			return translateError(err)
		}
		if !ok {
			return nil
		}
		if err := stream.Send(&rpcapi.PaymentStreamResponse{Record: toWireRecord(rec)}); err != nil {
			return err
		}
	}
}

func toWireRecord(rec *paymentregistry.Record) *rpcapi.PaymentRecord {
	return &rpcapi.PaymentRecord{
		PaymentID:        rec.PaymentID,
		WalletID:         rec.WalletID,
		AmountSats:       rec.AmountSats,
		Invoice:          rec.Invoice,
		Description:      rec.Description,
		Status:           string(rec.Status),
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
		RefundAmountSats: rec.RefundAmountSats,
	}
}

// translateError maps the engine's domain errors onto spec §6/§7's
// error-kind table.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, walletcore.ErrWalletExists):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, walletcore.ErrInvalidMnemonic), errors.Is(err, walletcore.ErrInvalidWordCount):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, engine.ErrWalletNotInitialized):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, paymentregistry.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, paymentregistry.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, paymentregistry.ErrNotCompleted):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, lightning.ErrInvoiceExpired):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, invoiceregistry.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, invoiceregistry.ErrAlreadySettled):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, invoiceregistry.ErrAmountOutOfRange), errors.Is(err, invoiceregistry.ErrMemoTooLong):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Unknown, err.Error())
	}
}
