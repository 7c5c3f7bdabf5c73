// TableSpec and friends live here so both the schema package and every
// backend can import them without circular deps.
package storage

// TableSpec describes one warehouse table declaratively. Backends translate
// it into their own DDL dialect.
type TableSpec struct {
	Name       string
	PrimaryKey *PrimaryKeySpec
	Columns    []ColumnSpec
	// Constraints currently supports kind "unique" only.
	Constraints []ConstraintSpec
	// Conflict names the columns that define row identity for UpsertIgnore.
	// They must be covered by the primary key or a unique constraint, since
	// the ignore-on-conflict insert relies on the store rejecting duplicates.
	Conflict []string
}

// PrimaryKeySpec describes the surrogate or natural key column.
// Type "serial" means a store-assigned auto-incrementing surrogate key.
type PrimaryKeySpec struct {
	Name string
	Type string
}

// ColumnSpec uses portable types: "int", "date", "varchar(n)", "decimal(p,s)".
type ColumnSpec struct {
	Name       string
	Type       string
	References string
	Nullable   bool
}

type ConstraintSpec struct {
	Kind    string // "unique"
	Columns []string
}

// ColumnType returns the declared type of a column (primary key included).
func (t TableSpec) ColumnType(name string) (string, bool) {
	if t.PrimaryKey != nil && t.PrimaryKey.Name == name {
		return t.PrimaryKey.Type, true
	}
	for _, c := range t.Columns {
		if c.Name == name {
			return c.Type, true
		}
	}
	return "", false
}
