package domain

// StoreKind identifies a key/value table layout.
type StoreKind string

// Available store kinds.
const (
	// StoreCache is the typed cache layout (name, blob value, type tag).
	StoreCache StoreKind = "cache"

	// StoreSettings is the untyped settings layout (name, text value).
	StoreSettings StoreKind = "settings"
)

// IsValid returns true if the store kind is recognised.
func (k StoreKind) IsValid() bool {
	return k == StoreCache || k == StoreSettings
}

// String returns the string representation.
func (k StoreKind) String() string {
	return string(k)
}

// Default table names.
const (
	DefaultCacheTable    = "cache"
	DefaultSettingsTable = "settings"
)

// Schema describes how a key/value store maps onto table columns.
type Schema struct {
	// Kind is the layout this schema implements.
	Kind StoreKind

	// Table is the table name.
	Table string

	// KeyColumn holds the key text.
	KeyColumn string

	// ValueColumn holds the encoded payload.
	ValueColumn string

	// ValueType is the declared type of ValueColumn.
	ValueType ColumnType

	// TypeColumn holds the type tag. Empty when the layout has no tag.
	TypeColumn string

	// UniqueKeys declares the key column UNIQUE when the table is created.
	UniqueKeys bool
}

// CacheSchema returns the cache layout:
// (cache_name TEXT, cache_value BLOB, cache_type INTEGER).
func CacheSchema(table string) Schema {
	if table == "" {
		table = DefaultCacheTable
	}
	return Schema{
		Kind:        StoreCache,
		Table:       table,
		KeyColumn:   "cache_name",
		ValueColumn: "cache_value",
		ValueType:   ColumnBlob,
		TypeColumn:  "cache_type",
		UniqueKeys:  true,
	}
}

// SettingsSchema returns the settings layout:
// (setting_name TEXT, setting_value TEXT).
func SettingsSchema(table string) Schema {
	if table == "" {
		table = DefaultSettingsTable
	}
	return Schema{
		Kind:        StoreSettings,
		Table:       table,
		KeyColumn:   "setting_name",
		ValueColumn: "setting_value",
		ValueType:   ColumnText,
		UniqueKeys:  true,
	}
}

// Typed returns true if the layout persists a type tag.
func (s Schema) Typed() bool {
	return s.TypeColumn != ""
}

// Columns returns the CREATE TABLE column list.
func (s Schema) Columns() []Column {
	cols := []Column{
		{Name: s.KeyColumn, Type: ColumnText, Unique: s.UniqueKeys, NotNull: s.UniqueKeys},
		{Name: s.ValueColumn, Type: s.ValueType},
	}
	if s.Typed() {
		cols = append(cols, Column{Name: s.TypeColumn, Type: ColumnInteger})
	}
	return cols
}

// KeyConstraint returns the constraint selecting a single key.
func (s Schema) KeyConstraint(key string) []Constraint {
	return Where(s.KeyColumn, key)
}
