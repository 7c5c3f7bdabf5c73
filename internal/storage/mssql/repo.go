package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"telcodw/internal/storage"
)

// Repo implements storage.Warehouse for SQL Server.
//
// SQL Server has no INSERT IGNORE, so the scratch merge filters with a
// NULL-safe NOT EXISTS over the spec's conflict columns instead of relying on
// a constraint violation being swallowed.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Warehouse, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) Ping(ctx context.Context) (string, error) {
	var v string
	if err := r.db.QueryRowContext(ctx, `SELECT @@VERSION`).Scan(&v); err != nil {
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
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// maxBindArgs stays under SQL Server's 2100 parameter limit per statement.
const maxBindArgs = 2000

func (r *Repo) Append(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	var total int64
	for _, chunk := range chunkRows(rows, maxBindArgs/len(columns)) {
		q, args := buildInsertSQL(table, columns, chunk)
		res, err := r.db.ExecContext(ctx, q, args...)
		if err != nil {
			return total, fmt.Errorf("insert %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (r *Repo) UpsertIgnore(ctx context.Context, spec storage.TableSpec, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	// #temp tables are session-scoped; pin one connection.
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	scratch := "#scratch_" + spec.Name
	// A failed earlier run can leave the table behind in a pooled session.
	if _, err := conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+sqlIdent(scratch)); err != nil {
		return fmt.Errorf("clear scratch %s: %w", scratch, err)
	}
	if _, err := conn.ExecContext(ctx, buildScratchSQL(scratch, spec, columns)); err != nil {
		return fmt.Errorf("create scratch %s: %w", scratch, err)
	}

	for _, chunk := range chunkRows(rows, maxBindArgs/len(columns)) {
		q, args := buildInsertSQL(scratch, columns, chunk)
		if _, err := conn.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("fill scratch %s: %w", scratch, err)
		}
	}

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
	q := "SELECT " + joinIdents(columns) + " FROM " + sqlIdent(table)
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
	q := fmt.Sprintf("SELECT %s, %s FROM %s", sqlIdent(keyColumn), sqlIdent(valueColumn), sqlIdent(table))
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
			return nil, fmt.Errorf("mssql: %s.%s is NULL; surrogate key not auto-generated", table, valueColumn)
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
			parts = append(parts, fmt.Sprintf("%s INT IDENTITY(1,1) PRIMARY KEY", sqlIdent(t.PrimaryKey.Name)))
		default:
			parts = append(parts, fmt.Sprintf("%s %s PRIMARY KEY", sqlIdent(t.PrimaryKey.Name), t.PrimaryKey.Type))
		}
	}

	for _, c := range t.Columns {
		col := fmt.Sprintf("%s %s", sqlIdent(c.Name), c.Type)
		if !c.Nullable {
			col += " NOT NULL"
		}
		parts = append(parts, col)
	}

	for _, con := range t.Constraints {
		if con.Kind != "unique" {
			return "", fmt.Errorf("%s: unsupported constraint kind %s", t.Name, con.Kind)
		}
		parts = append(parts, fmt.Sprintf("UNIQUE (%s)", joinIdents(con.Columns)))
	}

	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL BEGIN CREATE TABLE %s (\n  %s\n) END;",
		t.Name, sqlIdent(t.Name), strings.Join(parts, ",\n  "),
	), nil
}

func buildScratchSQL(scratch string, spec storage.TableSpec, columns []string) string {
	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		typ, ok := spec.ColumnType(c)
		if !ok {
			typ = "varchar(255)"
		}
		if strings.EqualFold(typ, "serial") {
			typ = "int"
		}
		parts = append(parts, fmt.Sprintf("%s %s", sqlIdent(c), typ))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s);", sqlIdent(scratch), strings.Join(parts, ", "))
}

// buildMergeSQL inserts only scratch rows whose conflict-column tuple does
// not already exist in the target. The comparison is NULL-safe because
// row-identity dimensions can legitimately carry NULL attributes.
func buildMergeSQL(target, scratch string, columns []string, conflict []string) string {
	cols := joinIdents(columns)
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) SELECT %s FROM %s s",
		sqlIdent(target), cols, cols, sqlIdent(scratch))

	if len(conflict) > 0 {
		b.WriteString(" WHERE NOT EXISTS (SELECT 1 FROM ")
		b.WriteString(sqlIdent(target))
		b.WriteString(" d WHERE ")
		for i, c := range conflict {
			if i > 0 {
				b.WriteString(" AND ")
			}
			id := sqlIdent(c)
			fmt.Fprintf(&b, "(d.%s = s.%s OR (d.%s IS NULL AND s.%s IS NULL))", id, id, id, id)
		}
		b.WriteString(")")
	}
	b.WriteString(";")
	return b.String()
}

func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(table))
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
			fmt.Fprintf(&b, "@p%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
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

// sqlIdent brackets identifiers; #temp names keep their prefix inside the
// brackets.
func sqlIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

func joinIdents(columns []string) string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		out = append(out, sqlIdent(c))
	}
	return strings.Join(out, ", ")
}
