package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/qutils/internal/core/domain"
	"github.com/custodia-labs/qutils/internal/core/ports/driving"
)

// KeyInput is the input schema for single-key tools.
type KeyInput struct {
	Key string `json:"key" jsonschema:"the key to operate on"`
}

// SetInput is the input schema for the set tools.
type SetInput struct {
	Key   string `json:"key" jsonschema:"the key to write"`
	Value any    `json:"value" jsonschema:"the value to store: string, number, boolean, null, array or object"`
	Type  string `json:"type,omitempty" jsonschema:"optional type to coerce a string value to: text, int, float, bool, bytes, null, list or map"`
}

// EmptyInput is the input schema for tools without arguments.
type EmptyInput struct{}

// GetOutput is the output schema for the get tools.
type GetOutput struct {
	Key   string `json:"key"`
	Found bool   `json:"found"`
	Type  string `json:"type,omitempty"`
	Value any    `json:"value,omitempty"`
}

// WriteOutput is the output schema for the set tools.
type WriteOutput struct {
	Key  string `json:"key"`
	Type string `json:"type"`
}

// RemoveOutput is the output schema for the remove tools.
type RemoveOutput struct {
	Key     string `json:"key"`
	Removed bool   `json:"removed"`
}

// ExistsOutput is the output schema for the exists tool.
type ExistsOutput struct {
	Key    string `json:"key"`
	Exists bool   `json:"exists"`
}

// KeysOutput is the output schema for the keys tool.
type KeysOutput struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

// ClearOutput is the output schema for the clear tool.
type ClearOutput struct {
	Cleared int `json:"cleared"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cache_get",
		Description: "Read a value from the cache",
	}, s.handleCacheGet)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cache_set",
		Description: "Write a value to the cache, keeping its type",
	}, s.handleCacheSet)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cache_remove",
		Description: "Remove a key from the cache",
	}, s.handleCacheRemove)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cache_exists",
		Description: "Check whether a key exists in the cache",
	}, s.handleCacheExists)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cache_keys",
		Description: "List every key in the cache",
	}, s.handleCacheKeys)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cache_clear",
		Description: "Remove every key from the cache",
	}, s.handleCacheClear)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "settings_get",
		Description: "Read an application setting",
	}, s.handleSettingsGet)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "settings_set",
		Description: "Write an application setting",
	}, s.handleSettingsSet)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "settings_remove",
		Description: "Remove an application setting",
	}, s.handleSettingsRemove)
}

func (s *Server) handleCacheGet(ctx context.Context, _ *mcp.CallToolRequest, input KeyInput) (*mcp.CallToolResult, GetOutput, error) {
	out, err := get(ctx, s.ports.Cache, input.Key)
	return nil, out, err
}

func (s *Server) handleCacheSet(ctx context.Context, _ *mcp.CallToolRequest, input SetInput) (*mcp.CallToolResult, WriteOutput, error) {
	out, err := set(ctx, s.ports.Cache, input)
	s.drain()
	return nil, out, err
}

func (s *Server) handleCacheRemove(ctx context.Context, _ *mcp.CallToolRequest, input KeyInput) (*mcp.CallToolResult, RemoveOutput, error) {
	out, err := remove(ctx, s.ports.Cache, input.Key)
	s.drain()
	return nil, out, err
}

func (s *Server) handleCacheExists(ctx context.Context, _ *mcp.CallToolRequest, input KeyInput) (*mcp.CallToolResult, ExistsOutput, error) {
	if err := requireKey(input.Key); err != nil {
		return nil, ExistsOutput{}, err
	}
	ok, err := s.ports.Cache.Exists(ctx, input.Key)
	if err != nil {
		return nil, ExistsOutput{}, fmt.Errorf("checking %s: %w", input.Key, err)
	}
	return nil, ExistsOutput{Key: input.Key, Exists: ok}, nil
}

func (s *Server) handleCacheKeys(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, KeysOutput, error) {
	keys, err := s.ports.Cache.Keys(ctx)
	if err != nil {
		return nil, KeysOutput{}, fmt.Errorf("listing keys: %w", err)
	}
	if keys == nil {
		keys = []string{}
	}
	return nil, KeysOutput{Keys: keys, Count: len(keys)}, nil
}

func (s *Server) handleCacheClear(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, ClearOutput, error) {
	keys, err := s.ports.Cache.Keys(ctx)
	if err != nil {
		return nil, ClearOutput{}, fmt.Errorf("listing keys: %w", err)
	}
	if err := s.ports.Cache.Clear(ctx); err != nil {
		return nil, ClearOutput{}, fmt.Errorf("clearing cache: %w", err)
	}
	s.drain()
	return nil, ClearOutput{Cleared: len(keys)}, nil
}

func (s *Server) handleSettingsGet(ctx context.Context, _ *mcp.CallToolRequest, input KeyInput) (*mcp.CallToolResult, GetOutput, error) {
	if s.ports.Settings == nil {
		return nil, GetOutput{}, ErrSettingsUnavailable
	}
	out, err := get(ctx, s.ports.Settings, input.Key)
	return nil, out, err
}

func (s *Server) handleSettingsSet(ctx context.Context, _ *mcp.CallToolRequest, input SetInput) (*mcp.CallToolResult, WriteOutput, error) {
	if s.ports.Settings == nil {
		return nil, WriteOutput{}, ErrSettingsUnavailable
	}
	out, err := set(ctx, s.ports.Settings, input)
	s.drain()
	return nil, out, err
}

func (s *Server) handleSettingsRemove(ctx context.Context, _ *mcp.CallToolRequest, input KeyInput) (*mcp.CallToolResult, RemoveOutput, error) {
	if s.ports.Settings == nil {
		return nil, RemoveOutput{}, ErrSettingsUnavailable
	}
	out, err := remove(ctx, s.ports.Settings, input.Key)
	s.drain()
	return nil, out, err
}

func get(ctx context.Context, store driving.KeyValueStore, key string) (GetOutput, error) {
	if err := requireKey(key); err != nil {
		return GetOutput{}, err
	}
	v, err := store.Read(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return GetOutput{Key: key}, nil
	}
	if err != nil {
		return GetOutput{}, fmt.Errorf("reading %s: %w", key, err)
	}
	return GetOutput{Key: key, Found: true, Type: v.Kind().String(), Value: domain.ToAny(v)}, nil
}

func set(ctx context.Context, store driving.KeyValueStore, input SetInput) (WriteOutput, error) {
	if err := requireKey(input.Key); err != nil {
		return WriteOutput{}, err
	}
	v, err := toValue(input.Value, input.Type)
	if err != nil {
		return WriteOutput{}, err
	}
	if err := store.Write(ctx, input.Key, v); err != nil {
		return WriteOutput{}, fmt.Errorf("writing %s: %w", input.Key, err)
	}
	return WriteOutput{Key: input.Key, Type: v.Kind().String()}, nil
}

func remove(ctx context.Context, store driving.KeyValueStore, key string) (RemoveOutput, error) {
	if err := requireKey(key); err != nil {
		return RemoveOutput{}, err
	}
	existed, err := store.Exists(ctx, key)
	if err != nil {
		return RemoveOutput{}, fmt.Errorf("checking %s: %w", key, err)
	}
	if err := store.Remove(ctx, key); err != nil {
		return RemoveOutput{}, fmt.Errorf("removing %s: %w", key, err)
	}
	return RemoveOutput{Key: key, Removed: existed}, nil
}

// toValue converts a JSON tool argument into a value, coercing string
// arguments to typeName when given.
func toValue(raw any, typeName string) (domain.Value, error) {
	if typeName == "" {
		return domain.FromAny(raw)
	}

	kind, err := domain.ParseKind(typeName)
	if err != nil {
		return nil, err
	}

	if str, ok := raw.(string); ok {
		if kind.IsComposite() {
			v, err := domain.DecodeJSON([]byte(str))
			if err != nil {
				return nil, err
			}
			raw = v
		} else {
			return domain.ParseScalar(str, kind)
		}
	}

	v, err := domain.FromAny(raw)
	if err != nil {
		return nil, err
	}
	if kind == domain.KindFloat && v.Kind() == domain.KindInt {
		return domain.Float(float64(v.(domain.Int))), nil
	}
	if v.Kind() != kind {
		return nil, fmt.Errorf("%w: value is %s, not %s", domain.ErrInvalidInput, v.Kind(), kind)
	}
	return v, nil
}

func requireKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key is required", domain.ErrInvalidInput)
	}
	return nil
}
