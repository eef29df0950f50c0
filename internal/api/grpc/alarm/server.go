package alarm

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/alarm-bridge/internal/domain/alarm"
	"github.com/oshokin/alarm-bridge/internal/logger"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	SetArmed(ctx context.Context, actor *domain.Actor, armed bool) bool
	State(ctx context.Context) *domain.State
}

// Server implements the AlarmService gRPC API.
type Server struct {
	// service provides the business logic for alarm operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// SetAlarmState arms or disarms the alarm on behalf of the caller in metadata.
func (s *Server) SetAlarmState(ctx context.Context, req *wrapperspb.BoolValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	actor := ActorFromContext(ctx)
	if actor == nil {
		return nil, status.Error(codes.InvalidArgument, "actor is required")
	}

	s.service.SetArmed(ctx, actor, req.GetValue())

	return s.encode(ctx)
}

// GetAlarmState returns the current alarm state.
func (s *Server) GetAlarmState(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	logger.DebugKV(ctx, "Alarm state requested", "actor", ActorFromContext(ctx))

	return s.encode(ctx)
}

func (s *Server) encode(ctx context.Context) (*structpb.Struct, error) {
	result, err := EncodeState(s.service.State(ctx))
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode state")
	}

	return result, nil
}
