package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/liftcoach/internal/models"
)

func (h *handlers) recovery(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)

	history, err := h.ds.RecentSessions(ctx, uid, historyDepth)
	if err != nil {
		return nil, err
	}
	catalog, err := h.ds.ListExercises(ctx, models.ExerciseFilter{})
	if err != nil {
		h.log.Warn("recovery: catalog query failed", "error", err)
	}

	return jsonResource(req.Params.URI, map[string]any{
		"date":     h.now().Format("2006-01-02"),
		"sessions": len(history),
		"recovery": h.recommender.Analyze(history, catalog),
	})
}

func (h *handlers) catalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	exercises, err := h.ds.ListExercises(ctx, models.ExerciseFilter{})
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, exercises)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
