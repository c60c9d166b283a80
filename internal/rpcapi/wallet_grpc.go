package rpcapi

import (
	"context"

	"google.golang.org/grpc"
)

const (
	Wallet_CreateWallet_FullMethodName = "/lnengine.Wallet/CreateWallet"
	Wallet_GetBalance_FullMethodName   = "/lnengine.Wallet/GetBalance"
	Wallet_NewInvoice_FullMethodName   = "/lnengine.Wallet/NewInvoice"
	Wallet_SendPayment_FullMethodName  = "/lnengine.Wallet/SendPayment"
)

// WalletClient is the client API for the Wallet service, spec §4.1/§6.
type WalletClient interface {
	CreateWallet(ctx context.Context, in *CreateWalletRequest, opts ...grpc.CallOption) (*CreateWalletResponse, error)
	GetBalance(ctx context.Context, in *GetBalanceRequest, opts ...grpc.CallOption) (*GetBalanceResponse, error)
	NewInvoice(ctx context.Context, in *NewInvoiceRequest, opts ...grpc.CallOption) (*NewInvoiceResponse, error)
	SendPayment(ctx context.Context, in *SendPaymentRequest, opts ...grpc.CallOption) (*SendPaymentResponse, error)
}

type walletClient struct {
	cc grpc.ClientConnInterface
}

// NewWalletClient constructs a client for the Wallet service over cc.
func NewWalletClient(cc grpc.ClientConnInterface) WalletClient {
	return &walletClient{cc}
}

func (c *walletClient) CreateWallet(ctx context.Context, in *CreateWalletRequest, opts ...grpc.CallOption) (*CreateWalletResponse, error) {
	out := new(CreateWalletResponse)
	if err := c.cc.Invoke(ctx, Wallet_CreateWallet_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *walletClient) GetBalance(ctx context.Context, in *GetBalanceRequest, opts ...grpc.CallOption) (*GetBalanceResponse, error) {
	out := new(GetBalanceResponse)
	if err := c.cc.Invoke(ctx, Wallet_GetBalance_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *walletClient) NewInvoice(ctx context.Context, in *NewInvoiceRequest, opts ...grpc.CallOption) (*NewInvoiceResponse, error) {
	out := new(NewInvoiceResponse)
	if err := c.cc.Invoke(ctx, Wallet_NewInvoice_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *walletClient) SendPayment(ctx context.Context, in *SendPaymentRequest, opts ...grpc.CallOption) (*SendPaymentResponse, error) {
	out := new(SendPaymentResponse)
	if err := c.cc.Invoke(ctx, Wallet_SendPayment_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// WalletServer is the server API for the Wallet service.
type WalletServer interface {
	CreateWallet(context.Context, *CreateWalletRequest) (*CreateWalletResponse, error)
	GetBalance(context.Context, *GetBalanceRequest) (*GetBalanceResponse, error)
	NewInvoice(context.Context, *NewInvoiceRequest) (*NewInvoiceResponse, error)
	SendPayment(context.Context, *SendPaymentRequest) (*SendPaymentResponse, error)
}

// UnimplementedWalletServer can be embedded in an implementation to get
// forward-compatible behavior as methods are added to the interface.
type UnimplementedWalletServer struct{}

func (UnimplementedWalletServer) CreateWallet(context.Context, *CreateWalletRequest) (*CreateWalletResponse, error) {
	return nil, grpcUnimplemented("CreateWallet")
}
func (UnimplementedWalletServer) GetBalance(context.Context, *GetBalanceRequest) (*GetBalanceResponse, error) {
	return nil, grpcUnimplemented("GetBalance")
}
func (UnimplementedWalletServer) NewInvoice(context.Context, *NewInvoiceRequest) (*NewInvoiceResponse, error) {
	return nil, grpcUnimplemented("NewInvoice")
}
func (UnimplementedWalletServer) SendPayment(context.Context, *SendPaymentRequest) (*SendPaymentResponse, error) {
	return nil, grpcUnimplemented("SendPayment")
}

// RegisterWalletServer registers srv with s under the Wallet service
// descriptor.
func RegisterWalletServer(s grpc.ServiceRegistrar, srv WalletServer) {
	s.RegisterService(&Wallet_ServiceDesc, srv)
}

func _Wallet_CreateWallet_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CreateWalletRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WalletServer).CreateWallet(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Wallet_CreateWallet_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WalletServer).CreateWallet(ctx, req.(*CreateWalletRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Wallet_GetBalance_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetBalanceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WalletServer).GetBalance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Wallet_GetBalance_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WalletServer).GetBalance(ctx, req.(*GetBalanceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Wallet_NewInvoice_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(NewInvoiceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WalletServer).NewInvoice(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Wallet_NewInvoice_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WalletServer).NewInvoice(ctx, req.(*NewInvoiceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Wallet_SendPayment_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SendPaymentRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WalletServer).SendPayment(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Wallet_SendPayment_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WalletServer).SendPayment(ctx, req.(*SendPaymentRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Wallet_ServiceDesc is the grpc.ServiceDesc for the Wallet service.
var Wallet_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "lnengine.Wallet",
	HandlerType: (*WalletServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateWallet", Handler: _Wallet_CreateWallet_Handler},
		{MethodName: "GetBalance", Handler: _Wallet_GetBalance_Handler},
		{MethodName: "NewInvoice", Handler: _Wallet_NewInvoice_Handler},
		{MethodName: "SendPayment", Handler: _Wallet_SendPayment_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lnengine/wallet.proto",
}
