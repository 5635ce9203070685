// Package mcp provides an MCP (Model Context Protocol) server adapter for qutils.
// It lets AI assistants read and write the cache and settings stores.
package mcp

import "errors"

// ErrMissingCacheStore is returned when the cache store is not provided.
var ErrMissingCacheStore = errors.New("mcp: cache store is required")

// ErrSettingsUnavailable is returned by settings tools when no settings
// store is configured.
var ErrSettingsUnavailable = errors.New("mcp: settings store is not configured")
