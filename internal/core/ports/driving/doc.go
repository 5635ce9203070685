// Package driving defines interfaces that external actors (CLI, MCP) use
// to interact with core services. These are the "driving" ports in hexagonal
// architecture terminology - they drive the application.
//
//   - KeyValueStore: One cache or settings table
//   - StoreProvider: Opens stores and delivers their change notifications
//   - ConfigService: Application configuration
//
// Implementations of these interfaces live in internal/core/services.
package driving
