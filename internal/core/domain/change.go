package domain

import "time"

// ChangeEvent describes a modification of a key in a key/value table.
// It is delivered to every store instance bound to the same database path
// and table.
type ChangeEvent struct {
	// ID uniquely identifies the event.
	ID string

	// Database is the database file path.
	Database string

	// Table is the table name.
	Table string

	// Key is the affected key.
	Key string

	// Old is the previous value, nil when the key did not exist.
	Old Value

	// New is the current value, nil when the key was removed.
	New Value

	// Removed is set when the key was deleted.
	Removed bool

	// Origin is the instance id of the writer. Zero for changes observed
	// from outside the process.
	Origin uint64

	// At is when the change was made.
	At time.Time
}

// OldString renders the previous value, or "" when absent.
func (e ChangeEvent) OldString() string {
	return valueString(e.Old)
}

// NewString renders the current value, or "" when absent.
func (e ChangeEvent) NewString() string {
	return valueString(e.New)
}

// Entry is a stored key with its encoded payload.
type Entry struct {
	Key     string
	Payload []byte
	Kind    Kind
}

// Value decodes the entry.
func (e Entry) Value() (Value, error) {
	return Decode(e.Payload, e.Kind)
}

// SameAs reports whether two entries hold byte-identical payloads with the
// same type tag.
func (e Entry) SameAs(other Entry) bool {
	return e.Kind == other.Kind && string(e.Payload) == string(other.Payload)
}
