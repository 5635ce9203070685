// Package services implements the driving port interfaces.
//
// The Registry tracks every key/value store instance by database path and
// table and shares one connection per path. A Store reads and writes one
// table and notifies every instance bound to the same table through the
// dispatcher. A Monitor detects changes written by other processes by
// diffing table snapshots. A Provider opens stores for a configuration.
//
// Services depend only on domain and the driven ports; adapters are
// injected by the composition root.
package services
