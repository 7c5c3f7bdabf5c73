package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"telcodw/internal/storage"
)

// Repo implements storage.Warehouse for SQLite.
//
// Useful as a zero-infrastructure warehouse for local runs and as the store
// the integration tests run against. "INSERT OR IGNORE" relies on the UNIQUE
// and PRIMARY KEY constraints emitted by EnsureSchema, which is why the
// schema package declares conflict columns that are always covered by one.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Warehouse, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// One connection only: SQLite is single-writer anyway, and with a
	// ":memory:" DSN every pooled connection would otherwise open its own
	// empty database.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) Ping(ctx context.Context) (string, error) {
	var v string
	if err := r.db.QueryRowContext(ctx, `SELECT sqlite_version()`).Scan(&v); err != nil {
		return "", err
	}
	return "SQLite " + v, nil
}

func (r *Repo) EnsureSchema(ctx context.Context, tables []storage.TableSpec) error {
	for _, t := range tables {
		ddl, err := buildCreateTableSQL(t)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// maxBindArgs keeps multi-row inserts well below SQLite's bind limit.
const maxBindArgs = 800

func (r *Repo) Append(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	var total int64
	for _, chunk := range chunkRows(rows, maxBindArgs/len(columns)) {
		q, args := buildInsertSQL("INSERT INTO ", table, columns, chunk)
		res, err := r.db.ExecContext(ctx, q, args...)
		if err != nil {
			return total, fmt.Errorf("insert %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// UpsertIgnore applies the two-phase scratch protocol on a single pooled
// connection: the scratch table is a session-scoped TEMP table, so everything
// must stay on one *sql.Conn.
func (r *Repo) UpsertIgnore(ctx context.Context, spec storage.TableSpec, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	scratch := "scratch_" + spec.Name
	// A failed earlier run can leave the scratch table behind in the pooled
	// session; clear it before recreating.
	if _, err := conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+sqlIdent(scratch)); err != nil {
		return fmt.Errorf("clear scratch %s: %w", scratch, err)
	}
	if _, err := conn.ExecContext(ctx, buildScratchSQL(scratch, spec, columns)); err != nil {
		return fmt.Errorf("create scratch %s: %w", scratch, err)
	}

	for _, chunk := range chunkRows(rows, maxBindArgs/len(columns)) {
		q, args := buildInsertSQL("INSERT INTO ", scratch, columns, chunk)
		if _, err := conn.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("fill scratch %s: %w", scratch, err)
		}
	}

	// Merge and drop run as two separate statements in one transaction.
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, buildMergeSQL(spec.Name, scratch, columns, spec.Conflict)); err != nil {
		return fmt.Errorf("upsert %s: %w", spec.Name, err)
	}
	if _, err := tx.ExecContext(ctx, "DROP TABLE "+sqlIdent(scratch)); err != nil {
		return fmt.Errorf("drop scratch %s: %w", scratch, err)
	}
	return tx.Commit()
}

func (r *Repo) ReadAll(ctx context.Context, table string, columns []string) ([][]any, error) {
	q := "SELECT " + joinIdents(columns) + " FROM " + table
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(columns))
		dests := make([]any, len(columns))
		for i := range vals {
			dests[i] = &vals[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}

func (r *Repo) SelectKeyValue(ctx context.Context, table, keyColumn, valueColumn string) (map[string]int64, error) {
	q := fmt.Sprintf(`SELECT %s, %s FROM %s`, sqlIdent(keyColumn), sqlIdent(valueColumn), table)
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var k any
		var id sql.NullInt64
		if err := rows.Scan(&k, &id); err != nil {
			return nil, err
		}
		if !id.Valid {
			return nil, fmt.Errorf("sqlite: %s.%s is NULL; surrogate key not auto-generated", table, valueColumn)
		}
		out[storage.NormalizeKey(k)] = id.Int64
	}
	return out, rows.Err()
}

// ---- SQL builders (pure, unit-testable without a database) ----

func buildCreateTableSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("table name is empty")
	}

	var parts []string
	if t.PrimaryKey != nil {
		// "INTEGER PRIMARY KEY" aliases the rowid in SQLite; for "serial"
		// that also gives us auto-generated surrogate keys.
		switch strings.ToLower(strings.TrimSpace(t.PrimaryKey.Type)) {
		case "serial", "bigserial":
			parts = append(parts, fmt.Sprintf(`%s INTEGER PRIMARY KEY AUTOINCREMENT`, sqlIdent(t.PrimaryKey.Name)))
		case "int", "integer":
			parts = append(parts, fmt.Sprintf(`%s INTEGER PRIMARY KEY`, sqlIdent(t.PrimaryKey.Name)))
		default:
			parts = append(parts, fmt.Sprintf(`%s %s PRIMARY KEY`, sqlIdent(t.PrimaryKey.Name), t.PrimaryKey.Type))
		}
	}

	for _, c := range t.Columns {
		col := fmt.Sprintf("%s %s", sqlIdent(c.Name), c.Type)
		if !c.Nullable {
			col += " NOT NULL"
		}
		// Enforcement depends on PRAGMA foreign_keys=ON; kept for schema docs.
		if c.References != "" {
			col += " REFERENCES " + c.References
		}
		parts = append(parts, col)
	}

	for _, con := range t.Constraints {
		if con.Kind != "unique" {
			return "", fmt.Errorf("%s: unsupported constraint kind %s", t.Name, con.Kind)
		}
		parts = append(parts, fmt.Sprintf("UNIQUE (%s)", joinIdents(con.Columns)))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", t.Name, strings.Join(parts, ",\n  ")), nil
}

// buildScratchSQL declares the scratch table with the target's column types
// but no keys or constraints; it only exists to be merged and dropped.
func buildScratchSQL(scratch string, spec storage.TableSpec, columns []string) string {
	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		typ, ok := spec.ColumnType(c)
		if !ok {
			typ = "text"
		}
		parts = append(parts, fmt.Sprintf("%s %s", sqlIdent(c), typ))
	}
	return fmt.Sprintf("CREATE TEMP TABLE %s (%s);", sqlIdent(scratch), strings.Join(parts, ", "))
}

// buildMergeSQL pairs INSERT OR IGNORE with a NULL-safe NOT EXISTS guard.
// UNIQUE indexes treat NULLs as distinct, so OR IGNORE alone would re-insert
// row-identity rows carrying NULL attributes on every run; the IS operator
// compares NULL-safely.
func buildMergeSQL(target, scratch string, columns []string, conflict []string) string {
	cols := joinIdents(columns)
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT OR IGNORE INTO %s (%s) SELECT %s FROM %s s", target, cols, cols, sqlIdent(scratch))
	if len(conflict) > 0 {
		b.WriteString(" WHERE NOT EXISTS (SELECT 1 FROM ")
		b.WriteString(target)
		b.WriteString(" d WHERE ")
		for i, c := range conflict {
			if i > 0 {
				b.WriteString(" AND ")
			}
			id := sqlIdent(c)
			fmt.Fprintf(&b, "d.%s IS s.%s", id, id)
		}
		b.WriteString(")")
	}
	b.WriteString(";")
	return b.String()
}

func buildInsertSQL(prefix, table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(joinIdents(columns))
	b.WriteString(") VALUES ")

	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders)
		args = append(args, row...)
	}
	return b.String(), args
}

func chunkRows(rows [][]any, size int) [][][]any {
	if size < 1 {
		size = 1
	}
	var out [][][]any
	for len(rows) > size {
		out = append(out, rows[:size])
		rows = rows[size:]
	}
	if len(rows) > 0 {
		out = append(out, rows)
	}
	return out
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func joinIdents(columns []string) string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		out = append(out, sqlIdent(c))
	}
	return strings.Join(out, ", ")
}
