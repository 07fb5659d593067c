package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/intelligence-core/internal/api"
	"github.com/miradorstack/intelligence-core/internal/models"
	"github.com/miradorstack/intelligence-core/internal/sources"
	"github.com/miradorstack/intelligence-core/internal/utils"
)

func TestGRPCServiceNotInitialized(t *testing.T) {
	svc := NewGRPCService(nil, newTestService(t, sources.NewMockSet()))

	_, err := svc.GetSummary(context.Background(), &emptypb.Empty{})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected failed precondition, got %v", err)
	}
	_, err = svc.QuerySignals(context.Background(), &structpb.Struct{})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected failed precondition, got %v", err)
	}
}

func TestGRPCServiceRunCycleAndSummary(t *testing.T) {
	svc := NewGRPCService(nil, newTestService(t, sources.NewMockSet()))
	ctx := context.Background()

	cycle, err := svc.RunCycle(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := svc.GetSummary(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.GetFields()["id"].GetStringValue() != cycle.GetFields()["id"].GetStringValue() {
		t.Fatalf("expected latest summary to match cycle summary")
	}

	var summary models.Summary
	if err := api.DecodeStruct(got, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.PerformanceOverview.AvgLatency != 65 || len(summary.Anomalies) != 1 {
		t.Fatalf("unexpected decoded summary %+v", summary)
	}

	drift, err := svc.GetDrift(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if drift.GetFields()["severity"].GetStringValue() != "low" {
		t.Fatalf("unexpected drift %v", drift)
	}
}

func TestGRPCServiceQuerySignals(t *testing.T) {
	svc := NewGRPCService(nil, newTestService(t, sources.NewMockSet()))
	ctx := context.Background()
	if _, err := svc.RunCycle(ctx, &emptypb.Empty{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, err := structpb.NewStruct(map[string]any{"system": "anomaly", "limit": 5})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	value, err := svc.QuerySignals(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := models.SignalsResult{Kind: models.ResultSystem}
	if err := api.DecodeValue(value, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.System == nil || result.System.System != "anomaly" || result.System.Count != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	bad, err := structpb.NewStruct(map[string]any{"limit": -1})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if _, err := svc.QuerySignals(ctx, bad); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestGRPCServiceListSystemsAndPatterns(t *testing.T) {
	svc := NewGRPCService(nil, newTestService(t, sources.NewMockSet()))
	ctx := context.Background()

	if _, err := svc.ListSystems(ctx, &emptypb.Empty{}); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected failed precondition, got %v", err)
	}
	if _, err := svc.RunCycle(ctx, &emptypb.Empty{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, err := svc.ListSystems(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var systems []string
	if err := api.DecodeValue(value, &systems); err != nil {
		t.Fatalf("decode systems: %v", err)
	}
	if len(systems) != len(models.SourceTags()) {
		t.Fatalf("expected %d systems, got %v", len(models.SourceTags()), systems)
	}

	value, err = svc.ListPatterns(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var found []models.AnomalyPattern
	if err := api.DecodeValue(value, &found); err != nil {
		t.Fatalf("decode patterns: %v", err)
	}
	if len(found) != 1 || found[0].Occurrences != 1 || found[0].Prevalence != 1 {
		t.Fatalf("unexpected patterns %+v", found)
	}
}

func TestGRPCServiceQuerySignalsPageBounds(t *testing.T) {
	svc := NewGRPCService(nil, newTestService(t, sources.NewMockSet()))
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := svc.RunCycle(ctx, &emptypb.Empty{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	maxInt := strconv.Itoa(math.MaxInt)
	cases := []struct {
		limit  string
		offset string
		want   int
	}{
		{limit: maxInt, offset: "1", want: 1},
		{limit: maxInt, offset: "0", want: 2},
		{limit: "10", offset: "1", want: 1},
		{limit: "10", offset: "2", want: 0},
		{limit: maxInt, offset: maxInt, want: 0},
	}
	for _, tc := range cases {
		req, err := structpb.NewStruct(map[string]any{"system": "benchmark", "limit": tc.limit, "offset": tc.offset})
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		value, err := svc.QuerySignals(ctx, req)
		if err != nil {
			t.Fatalf("limit=%s offset=%s: unexpected error: %v", tc.limit, tc.offset, err)
		}
		result := models.SignalsResult{Kind: models.ResultSystem}
		if err := api.DecodeValue(value, &result); err != nil {
			t.Fatalf("decode result: %v", err)
		}
		if result.System == nil || result.System.Count != 2 {
			t.Fatalf("expected count 2, got %+v", result.System)
		}
		if len(result.System.Signals) != tc.want {
			t.Fatalf("limit=%s offset=%s: expected %d signals, got %d", tc.limit, tc.offset, tc.want, len(result.System.Signals))
		}
	}
}

func TestGRPCServiceInternalErrorLogsOperation(t *testing.T) {
	var buf bytes.Buffer
	svc := NewGRPCService(slog.New(slog.NewJSONHandler(&buf, nil)), nil)

	err := svc.toStatus("GetSummary", utils.NewAppError("get summary", "store unavailable", errors.New("disk full")))
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected internal, got %v", err)
	}
	if !strings.Contains(buf.String(), `"op":"get summary"`) || !strings.Contains(buf.String(), `"method":"GetSummary"`) {
		t.Fatalf("expected method and operation in log, got %s", buf.String())
	}
}
