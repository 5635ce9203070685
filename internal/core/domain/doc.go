// Package domain defines the core types for qutils.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Value: A tagged value stored in a key/value table
//   - Schema: How a cache or settings store maps onto table columns
//   - Query, Constraint: Parameterised SELECT descriptions with positional joiners
//   - ChangeEvent: A modification delivered to every bound store instance
//   - AppConfig: Resolved application configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
