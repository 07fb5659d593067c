package main

import (
	"context"

	"github.com/miradorstack/intelligence-core/internal/api"
	"github.com/miradorstack/intelligence-core/internal/grpc/intelv1"
	"github.com/miradorstack/intelligence-core/internal/models"
)

// remote adapts the gRPC client to api.Intelligence.
type remote struct {
	client *intelv1.Client
}

var _ api.Intelligence = (*remote)(nil)

func newRemote(client *intelv1.Client) *remote {
	return &remote{client: client}
}

func (r *remote) RunCycle(ctx context.Context) (models.Summary, error) {
	var out models.Summary
	resp, err := r.client.RunCycle(ctx)
	if err != nil {
		return out, err
	}
	if err := api.DecodeStruct(resp, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (r *remote) Summary(ctx context.Context) (models.Summary, error) {
	var out models.Summary
	resp, err := r.client.GetSummary(ctx)
	if err != nil {
		return out, err
	}
	if err := api.DecodeStruct(resp, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (r *remote) Drift(ctx context.Context) (models.DriftAnalysis, error) {
	var out models.DriftAnalysis
	resp, err := r.client.GetDrift(ctx)
	if err != nil {
		return out, err
	}
	if err := api.DecodeStruct(resp, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (r *remote) Performance(ctx context.Context) (models.PerformanceOverview, error) {
	var out models.PerformanceOverview
	resp, err := r.client.GetPerformance(ctx)
	if err != nil {
		return out, err
	}
	if err := api.DecodeStruct(resp, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (r *remote) QuerySignals(ctx context.Context, q models.SignalQuery) (models.SignalsResult, error) {
	out := models.SignalsResult{Kind: q.ResultKind()}
	req, err := api.QueryToStruct(q)
	if err != nil {
		return out, err
	}
	resp, err := r.client.QuerySignals(ctx, req)
	if err != nil {
		return out, err
	}
	if err := api.DecodeValue(resp, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (r *remote) Systems(ctx context.Context) ([]string, error) {
	var out []string
	resp, err := r.client.ListSystems(ctx)
	if err != nil {
		return nil, err
	}
	if err := api.DecodeValue(resp, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (r *remote) Patterns(ctx context.Context) ([]models.AnomalyPattern, error) {
	var out []models.AnomalyPattern
	resp, err := r.client.ListPatterns(ctx)
	if err != nil {
		return nil, err
	}
	if err := api.DecodeValue(resp, &out); err != nil {
		return out, err
	}
	return out, nil
}
