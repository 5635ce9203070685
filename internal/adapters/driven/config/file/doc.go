// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML configuration in ~/.qutils/config.toml, written as
//     nested tables and read back as dot-separated keys
package file
