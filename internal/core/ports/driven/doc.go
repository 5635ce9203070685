// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Database: Parameterized SQL execution against one embedded database file
//   - Opener: Opens a Database for a file path
//   - Dispatcher: Queued delivery of change notifications
//   - EventQueue: A Dispatcher the application can drain
//   - ChangeWatcher: Detects modifications of a database file
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
