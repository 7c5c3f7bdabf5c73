package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"telcodw/internal/storage"
)

// Repo implements storage.Warehouse for Postgres on top of a pgx pool.
//
// Ignore-on-conflict maps to INSERT ... ON CONFLICT (...) DO NOTHING, which
// requires a unique index over exactly the spec's conflict columns; the
// schema package guarantees that.
type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Warehouse, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

func (r *Repo) Ping(ctx context.Context) (string, error) {
	var v string
	if err := r.pool.QueryRow(ctx, `SELECT version()`).Scan(&v); err != nil {
		return "", err
	}
	return v, nil
}

func (r *Repo) EnsureSchema(ctx context.Context, tables []storage.TableSpec) error {
	for _, t := range tables {
		ddl, err := buildCreateTableSQL(t)
		if err != nil {
			return err
		}
		if _, err := r.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

const maxBindArgs = 2000

func (r *Repo) Append(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	var total int64
	for _, chunk := range chunkRows(rows, maxBindArgs/len(columns)) {
		q, args := buildInsertSQL(table, columns, chunk, "")
		cmd, err := r.pool.Exec(ctx, q, args...)
		if err != nil {
			return total, fmt.Errorf("insert %s: %w", table, err)
		}
		total += cmd.RowsAffected()
	}
	return total, nil
}

func (r *Repo) UpsertIgnore(ctx context.Context, spec storage.TableSpec, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	// TEMPORARY tables are session-scoped; hold one pooled connection for
	// the whole protocol.
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	scratch := "scratch_" + spec.Name
	// A failed earlier run can leave the table behind in a pooled session.
	if _, err := conn.Exec(ctx, "DROP TABLE IF EXISTS "+pgIdent(scratch)); err != nil {
		return fmt.Errorf("clear scratch %s: %w", scratch, err)
	}
	if _, err := conn.Exec(ctx, buildScratchSQL(scratch, spec, columns)); err != nil {
		return fmt.Errorf("create scratch %s: %w", scratch, err)
	}

	for _, chunk := range chunkRows(rows, maxBindArgs/len(columns)) {
		q, args := buildInsertSQL(scratch, columns, chunk, "")
		if _, err := conn.Exec(ctx, q, args...); err != nil {
			return fmt.Errorf("fill scratch %s: %w", scratch, err)
		}
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Merge and drop as two separate statements in one transaction.
	if _, err := tx.Exec(ctx, buildMergeSQL(spec.Name, scratch, columns, spec.Conflict)); err != nil {
		return fmt.Errorf("upsert %s: %w", spec.Name, err)
	}
	if _, err := tx.Exec(ctx, "DROP TABLE "+pgIdent(scratch)); err != nil {
		return fmt.Errorf("drop scratch %s: %w", scratch, err)
	}
	return tx.Commit(ctx)
}

func (r *Repo) ReadAll(ctx context.Context, table string, columns []string) ([][]any, error) {
	q := "SELECT " + joinIdents(columns) + " FROM " + table
	rows, err := r.pool.Query(ctx, q)
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
	q := fmt.Sprintf("SELECT %s, %s FROM %s", pgIdent(keyColumn), pgIdent(valueColumn), table)
	rows, err := r.pool.Query(ctx, q)
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
			return nil, fmt.Errorf("postgres: %s.%s is NULL; surrogate key not auto-generated", table, valueColumn)
		}
		out[storage.NormalizeKey(k)] = id.Int64
	}
	return out, rows.Err()
}

// ---- SQL builders ----

func buildCreateTableSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("table name is empty")
	}

	var parts []string
	if t.PrimaryKey != nil {
		switch strings.ToLower(strings.TrimSpace(t.PrimaryKey.Type)) {
		case "serial", "bigserial":
			parts = append(parts, fmt.Sprintf("%s SERIAL PRIMARY KEY", pgIdent(t.PrimaryKey.Name)))
		default:
			parts = append(parts, fmt.Sprintf("%s %s PRIMARY KEY", pgIdent(t.PrimaryKey.Name), t.PrimaryKey.Type))
		}
	}

	for _, c := range t.Columns {
		col := fmt.Sprintf("%s %s", pgIdent(c.Name), translateType(c.Type))
		if !c.Nullable {
			col += " NOT NULL"
		}
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

func translateType(t string) string {
	if strings.EqualFold(t, "decimal") || strings.HasPrefix(strings.ToLower(t), "decimal(") {
		return "numeric" + t[len("decimal"):]
	}
	return t
}

func buildScratchSQL(scratch string, spec storage.TableSpec, columns []string) string {
	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		typ, ok := spec.ColumnType(c)
		if !ok {
			typ = "text"
		}
		if strings.EqualFold(typ, "serial") {
			typ = "int"
		}
		parts = append(parts, fmt.Sprintf("%s %s", pgIdent(c), translateType(typ)))
	}
	return fmt.Sprintf("CREATE TEMPORARY TABLE %s (%s);", pgIdent(scratch), strings.Join(parts, ", "))
}

// buildMergeSQL pairs ON CONFLICT DO NOTHING with a NULL-safe NOT EXISTS
// guard. Unique indexes treat NULLs as distinct, so DO NOTHING alone would
// re-insert row-identity rows carrying NULL attributes on every run;
// IS NOT DISTINCT FROM compares NULL-safely.
func buildMergeSQL(target, scratch string, columns []string, conflict []string) string {
	cols := joinIdents(columns)
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) SELECT %s FROM %s s", target, cols, cols, pgIdent(scratch))
	if len(conflict) > 0 {
		b.WriteString(" WHERE NOT EXISTS (SELECT 1 FROM ")
		b.WriteString(target)
		b.WriteString(" d WHERE ")
		for i, c := range conflict {
			if i > 0 {
				b.WriteString(" AND ")
			}
			id := pgIdent(c)
			fmt.Fprintf(&b, "d.%s IS NOT DISTINCT FROM s.%s", id, id)
		}
		b.WriteString(") ON CONFLICT (")
		b.WriteString(joinIdents(conflict))
		b.WriteString(") DO NOTHING")
	}
	b.WriteString(";")
	return b.String()
}

// buildInsertSQL is pure so placeholder numbering can be unit-tested without
// a database. suffix is appended verbatim (e.g. an ON CONFLICT clause).
func buildInsertSQL(table string, columns []string, rows [][]any, suffix string) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(joinIdents(columns))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}
	if suffix != "" {
		b.WriteString(" ")
		b.WriteString(suffix)
	}
	b.WriteString(";")
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

func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func joinIdents(columns []string) string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		out = append(out, pgIdent(c))
	}
	return strings.Join(out, ", ")
}
