package grpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "subscriptions.SubscriptionsService"

// SubscriptionsServer exchanges google.protobuf.Struct messages whose fields follow
// the JSON shape of the HTTP API.
type SubscriptionsServer interface {
	Health(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	PreviewSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	DefineOrderLineSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ApplyFuturePaymentDiscount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetSchedule(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SubscriptionsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Health", Handler: unaryHandler("Health", SubscriptionsServer.Health)},
		{MethodName: "PreviewSubscription", Handler: unaryHandler("PreviewSubscription", SubscriptionsServer.PreviewSubscription)},
		{MethodName: "DefineOrderLineSubscription", Handler: unaryHandler("DefineOrderLineSubscription", SubscriptionsServer.DefineOrderLineSubscription)},
		{MethodName: "ApplyFuturePaymentDiscount", Handler: unaryHandler("ApplyFuturePaymentDiscount", SubscriptionsServer.ApplyFuturePaymentDiscount)},
		{MethodName: "GetSubscription", Handler: unaryHandler("GetSubscription", SubscriptionsServer.GetSubscription)},
		{MethodName: "GetSchedule", Handler: unaryHandler("GetSchedule", SubscriptionsServer.GetSchedule)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "subscriptions.proto",
}

func RegisterSubscriptionsServer(s grpc.ServiceRegistrar, srv SubscriptionsServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type structCall func(SubscriptionsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call structCall) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SubscriptionsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(SubscriptionsServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func decodeStruct(in *structpb.Struct, out interface{}) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return status.Error(codes.InvalidArgument, "invalid request message")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return status.Error(codes.InvalidArgument, "invalid request message")
	}
	return nil
}

func encodeStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}
