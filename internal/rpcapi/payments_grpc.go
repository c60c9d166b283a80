package rpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	Payments_ProcessPayment_FullMethodName   = "/lnengine.Payments/ProcessPayment"
	Payments_GetPaymentStatus_FullMethodName = "/lnengine.Payments/GetPaymentStatus"
	Payments_ProcessRefund_FullMethodName    = "/lnengine.Payments/ProcessRefund"
	Payments_PaymentStream_FullMethodName    = "/lnengine.Payments/PaymentStream"
)

func grpcUnimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

// PaymentsClient is the client API for the Payments service, spec
// §4.6/§6.
type PaymentsClient interface {
	ProcessPayment(ctx context.Context, in *ProcessPaymentRequest, opts ...grpc.CallOption) (*ProcessPaymentResponse, error)
	GetPaymentStatus(ctx context.Context, in *GetPaymentStatusRequest, opts ...grpc.CallOption) (*GetPaymentStatusResponse, error)
	ProcessRefund(ctx context.Context, in *ProcessRefundRequest, opts ...grpc.CallOption) (*ProcessRefundResponse, error)
	PaymentStream(ctx context.Context, in *PaymentStreamRequest, opts ...grpc.CallOption) (Payments_PaymentStreamClient, error)
}

type paymentsClient struct {
	cc grpc.ClientConnInterface
}

// NewPaymentsClient constructs a client for the Payments service over cc.
func NewPaymentsClient(cc grpc.ClientConnInterface) PaymentsClient {
	return &paymentsClient{cc}
}

func (c *paymentsClient) ProcessPayment(ctx context.Context, in *ProcessPaymentRequest, opts ...grpc.CallOption) (*ProcessPaymentResponse, error) {
	out := new(ProcessPaymentResponse)
	if err := c.cc.Invoke(ctx, Payments_ProcessPayment_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *paymentsClient) GetPaymentStatus(ctx context.Context, in *GetPaymentStatusRequest, opts ...grpc.CallOption) (*GetPaymentStatusResponse, error) {
	out := new(GetPaymentStatusResponse)
	if err := c.cc.Invoke(ctx, Payments_GetPaymentStatus_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *paymentsClient) ProcessRefund(ctx context.Context, in *ProcessRefundRequest, opts ...grpc.CallOption) (*ProcessRefundResponse, error) {
	out := new(ProcessRefundResponse)
	if err := c.cc.Invoke(ctx, Payments_ProcessRefund_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *paymentsClient) PaymentStream(ctx context.Context, in *PaymentStreamRequest, opts ...grpc.CallOption) (Payments_PaymentStreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &Payments_ServiceDesc.Streams[0], Payments_PaymentStream_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &paymentsPaymentStreamClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// Payments_PaymentStreamClient is the client-side handle on the lazy,
// finite sequence PaymentStream returns (spec §4.6).
type Payments_PaymentStreamClient interface {
	Recv() (*PaymentStreamResponse, error)
	grpc.ClientStream
}

type paymentsPaymentStreamClient struct {
	grpc.ClientStream
}

func (x *paymentsPaymentStreamClient) Recv() (*PaymentStreamResponse, error) {
	m := new(PaymentStreamResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// PaymentsServer is the server API for the Payments service.
type PaymentsServer interface {
	ProcessPayment(context.Context, *ProcessPaymentRequest) (*ProcessPaymentResponse, error)
	GetPaymentStatus(context.Context, *GetPaymentStatusRequest) (*GetPaymentStatusResponse, error)
	ProcessRefund(context.Context, *ProcessRefundRequest) (*ProcessRefundResponse, error)
	PaymentStream(*PaymentStreamRequest, Payments_PaymentStreamServer) error
}

// UnimplementedPaymentsServer can be embedded in an implementation to
// get forward-compatible behavior as methods are added.
type UnimplementedPaymentsServer struct{}

func (UnimplementedPaymentsServer) ProcessPayment(context.Context, *ProcessPaymentRequest) (*ProcessPaymentResponse, error) {
	return nil, grpcUnimplemented("ProcessPayment")
}
func (UnimplementedPaymentsServer) GetPaymentStatus(context.Context, *GetPaymentStatusRequest) (*GetPaymentStatusResponse, error) {
	return nil, grpcUnimplemented("GetPaymentStatus")
}
func (UnimplementedPaymentsServer) ProcessRefund(context.Context, *ProcessRefundRequest) (*ProcessRefundResponse, error) {
	return nil, grpcUnimplemented("ProcessRefund")
}
func (UnimplementedPaymentsServer) PaymentStream(*PaymentStreamRequest, Payments_PaymentStreamServer) error {
	return grpcUnimplemented("PaymentStream")
}

// RegisterPaymentsServer registers srv with s under the Payments
// service descriptor.
func RegisterPaymentsServer(s grpc.ServiceRegistrar, srv PaymentsServer) {
	s.RegisterService(&Payments_ServiceDesc, srv)
}

func _Payments_ProcessPayment_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ProcessPaymentRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PaymentsServer).ProcessPayment(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Payments_ProcessPayment_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PaymentsServer).ProcessPayment(ctx, req.(*ProcessPaymentRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Payments_GetPaymentStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetPaymentStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PaymentsServer).GetPaymentStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Payments_GetPaymentStatus_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PaymentsServer).GetPaymentStatus(ctx, req.(*GetPaymentStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Payments_ProcessRefund_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ProcessRefundRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PaymentsServer).ProcessRefund(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Payments_ProcessRefund_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PaymentsServer).ProcessRefund(ctx, req.(*ProcessRefundRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Payments_PaymentStream_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(PaymentStreamRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(PaymentsServer).PaymentStream(m, &paymentsPaymentStreamServer{stream})
}

// Payments_PaymentStreamServer is the server-side handle used to push
// records of a PaymentStream call to the client.
type Payments_PaymentStreamServer interface {
	Send(*PaymentStreamResponse) error
	grpc.ServerStream
}

type paymentsPaymentStreamServer struct {
	grpc.ServerStream
}

func (x *paymentsPaymentStreamServer) Send(m *PaymentStreamResponse) error {
	return x.ServerStream.SendMsg(m)
}

// Payments_ServiceDesc is the grpc.ServiceDesc for the Payments service.
var Payments_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "lnengine.Payments",
	HandlerType: (*PaymentsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ProcessPayment", Handler: _Payments_ProcessPayment_Handler},
		{MethodName: "GetPaymentStatus", Handler: _Payments_GetPaymentStatus_Handler},
		{MethodName: "ProcessRefund", Handler: _Payments_ProcessRefund_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "PaymentStream",
			Handler:       _Payments_PaymentStream_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "lnengine/payments.proto",
}
