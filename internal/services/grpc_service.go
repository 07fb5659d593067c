package services

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/intelligence-core/internal/api"
	"github.com/miradorstack/intelligence-core/internal/grpc/intelv1"
	"github.com/miradorstack/intelligence-core/internal/utils"
)

// GRPCService implements intelligence.v1.IntelligenceCore over the façade.
type GRPCService struct {
	intelv1.UnimplementedIntelligenceCoreServer

	logger *slog.Logger
	core   *IntelligenceService
}

// NewGRPCService constructs the gRPC adapter.
func NewGRPCService(logger *slog.Logger, core *IntelligenceService) *GRPCService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCService{logger: logger, core: core}
}

// GetSummary returns the newest summary.
func (s *GRPCService) GetSummary(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	summary, err := s.core.Summary(ctx)
	if err != nil {
		return nil, s.toStatus("GetSummary", err)
	}
	return s.encodeStruct("GetSummary", summary)
}

// GetDrift returns a fresh drift analysis.
func (s *GRPCService) GetDrift(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	drift, err := s.core.Drift(ctx)
	if err != nil {
		return nil, s.toStatus("GetDrift", err)
	}
	return s.encodeStruct("GetDrift", drift)
}

// GetPerformance returns a fresh performance overview.
func (s *GRPCService) GetPerformance(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	perf, err := s.core.Performance(ctx)
	if err != nil {
		return nil, s.toStatus("GetPerformance", err)
	}
	return s.encodeStruct("GetPerformance", perf)
}

// QuerySignals answers a signal query encoded as a Struct.
func (s *GRPCService) QuerySignals(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	q, err := api.QueryFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	result, err := s.core.QuerySignals(ctx, q)
	if err != nil {
		return nil, s.toStatus("QuerySignals", err)
	}
	return s.encodeValue("QuerySignals", result)
}

// RunCycle triggers an aggregation cycle and returns its summary.
func (s *GRPCService) RunCycle(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	summary, err := s.core.RunCycle(ctx)
	if err != nil {
		return nil, s.toStatus("RunCycle", err)
	}
	return s.encodeStruct("RunCycle", summary)
}

// ListSystems returns the systems known to the store.
func (s *GRPCService) ListSystems(ctx context.Context, _ *emptypb.Empty) (*structpb.Value, error) {
	systems, err := s.core.Systems(ctx)
	if err != nil {
		return nil, s.toStatus("ListSystems", err)
	}
	return s.encodeValue("ListSystems", systems)
}

// ListPatterns returns recurring anomaly patterns.
func (s *GRPCService) ListPatterns(ctx context.Context, _ *emptypb.Empty) (*structpb.Value, error) {
	found, err := s.core.Patterns(ctx)
	if err != nil {
		return nil, s.toStatus("ListPatterns", err)
	}
	return s.encodeValue("ListPatterns", found)
}

func (s *GRPCService) encodeValue(method string, v any) (*structpb.Value, error) {
	out, err := api.ToValue(v)
	if err != nil {
		s.logger.Error("encode response failed", slog.String("method", method), slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

func (s *GRPCService) encodeStruct(method string, v any) (*structpb.Struct, error) {
	out, err := api.ToStruct(v)
	if err != nil {
		s.logger.Error("encode response failed", slog.String("method", method), slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

func (s *GRPCService) toStatus(method string, err error) error {
	switch {
	case errors.Is(err, ErrNotInitialized):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrInvalidQuery):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error("rpc failed",
			slog.String("method", method),
			slog.String("op", utils.OpOf(err)),
			slog.Any("error", err))
		return status.Error(codes.Internal, err.Error())
	}
}
