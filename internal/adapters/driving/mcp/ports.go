package mcp

import (
	"github.com/custodia-labs/qutils/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Cache is the typed cache store.
	Cache driving.KeyValueStore

	// Settings is the settings store.
	Settings driving.KeyValueStore

	// Provider delivers queued change notifications after writes.
	Provider driving.StoreProvider
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Cache == nil {
		return ErrMissingCacheStore
	}
	// Settings and Provider are optional
	return nil
}
