package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/qutils/internal/core/domain"
	"github.com/custodia-labs/qutils/internal/core/ports/driving"
)

const (
	// uriScheme is the custom URI scheme for qutils resources.
	uriScheme = "qutils://"
)

// entryInfo is one key in a store dump.
type entryInfo struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "cache",
		Name:        "cache",
		Description: "Every key in the cache with its type and value",
		MIMEType:    "application/json",
	}, s.handleCacheResource)

	if s.ports.Settings != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "settings",
			Name:        "settings",
			Description: "Every application setting",
			MIMEType:    "application/json",
		}, s.handleSettingsResource)
	}
}

// handleCacheResource returns a JSON dump of the cache.
func (s *Server) handleCacheResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return dumpResource(ctx, s.ports.Cache, req.Params.URI)
}

// handleSettingsResource returns a JSON dump of the settings.
func (s *Server) handleSettingsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	if s.ports.Settings == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return dumpResource(ctx, s.ports.Settings, req.Params.URI)
}

func dumpResource(ctx context.Context, store driving.KeyValueStore, uri string) (*mcp.ReadResourceResult, error) {
	entries, err := store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading store: %w", err)
	}

	infos := make([]entryInfo, len(entries))
	for i, e := range entries {
		infos[i] = entryInfo{Key: e.Key, Type: e.Kind.String(), Value: string(e.Payload)}
		if v, err := e.Value(); err == nil {
			infos[i].Value = domain.ToAny(v)
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling entries: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
