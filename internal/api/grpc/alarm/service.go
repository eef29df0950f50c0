package alarm

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "alarm.v1.AlarmService"

// Full method names, used by clients with grpc.ClientConn.Invoke.
const (
	GetAlarmStateMethod = "/" + ServiceName + "/GetAlarmState"
	SetAlarmStateMethod = "/" + ServiceName + "/SetAlarmState"
)

// AlarmServiceServer is the server API of the control service.
// Messages are protobuf well-known types: the state travels as a Struct and
// the desired arm flag as a BoolValue.
type AlarmServiceServer interface {
	GetAlarmState(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	SetAlarmState(ctx context.Context, req *wrapperspb.BoolValue) (*structpb.Struct, error)
}

// RegisterAlarmServiceServer registers srv with the gRPC server.
func RegisterAlarmServiceServer(s grpc.ServiceRegistrar, srv AlarmServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

//nolint:gochecknoglobals // Service descriptors are package-level in grpc-go.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlarmServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetAlarmState",
			Handler:    getAlarmStateHandler,
		},
		{
			MethodName: "SetAlarmState",
			Handler:    setAlarmStateHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "alarm/v1/alarm.proto",
}

//nolint:forcetypeassert // grpc-go guarantees srv implements HandlerType.
func getAlarmStateHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(AlarmServiceServer).GetAlarmState(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetAlarmStateMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AlarmServiceServer).GetAlarmState(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}

//nolint:forcetypeassert // grpc-go guarantees srv implements HandlerType.
func setAlarmStateHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.BoolValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(AlarmServiceServer).SetAlarmState(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SetAlarmStateMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AlarmServiceServer).SetAlarmState(ctx, req.(*wrapperspb.BoolValue))
	}

	return interceptor(ctx, in, info, handler)
}
