package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"wsrestore/internal/restore"
)

// dialect captures the SQL differences between supported backends.
type dialect struct {
	name string

	// placeholder returns the bind parameter for the n-th argument (1-based).
	placeholder func(n int) string

	// clear returns the statement that empties a table.
	clear func(table string) string
}

var postgresDialect = dialect{
	name:        "postgres",
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	clear:       func(table string) string { return "TRUNCATE TABLE " + quoteIdent(table) + " CASCADE" },
}

var sqliteDialect = dialect{
	name:        "sqlite",
	placeholder: func(int) string { return "?" },
	clear:       func(table string) string { return "DELETE FROM " + quoteIdent(table) },
}

// SQLStore implements restore.Store over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect

	// adaptive adds columns the table lacks before inserting. Only the
	// SQLite rehearsal schema uses it.
	adaptive bool
	columns  map[string]map[string]bool
}

var _ restore.Store = (*SQLStore)(nil)

func newSQLStore(db *sql.DB, d dialect, adaptive bool) *SQLStore {
	return &SQLStore{
		db:       db,
		dialect:  d,
		adaptive: adaptive,
		columns:  make(map[string]map[string]bool),
	}
}

// DB returns the underlying connection pool.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Dialect returns "postgres" or "sqlite".
func (s *SQLStore) Dialect() string { return s.dialect.name }

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	q := "SELECT COUNT(*) FROM " + quoteIdent(table)
	if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

func (s *SQLStore) ClearTable(ctx context.Context, table string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.clear(table)); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}
	return nil
}

// InsertRow inserts row with its columns in sorted order so statements for
// records of the same shape are identical.
func (s *SQLStore) InsertRow(ctx context.Context, table string, row restore.Record) error {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	if s.adaptive {
		if err := s.ensureColumns(ctx, table, cols); err != nil {
			return err
		}
	}

	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
		marks[i] = s.dialect.placeholder(i + 1)
		args[i] = row[c]
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return err
	}
	return nil
}

func (s *SQLStore) FirstCollectionID(ctx context.Context) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT "id" FROM "collections" ORDER BY "createdAt" ASC, "id" ASC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (s *SQLStore) Exists(ctx context.Context, table, id string) (bool, error) {
	q := fmt.Sprintf(`SELECT 1 FROM %s WHERE "id" = %s LIMIT 1`, quoteIdent(table), s.dialect.placeholder(1))
	var one int
	err := s.db.QueryRowContext(ctx, q, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up %s %s: %w", table, id, err)
	}
	return true, nil
}

func (s *SQLStore) ListIDs(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT \"id\" FROM "+quoteIdent(table)+" ORDER BY \"id\"")
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning %s id: %w", table, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing %s: %w", table, err)
	}
	return ids, nil
}

func (s *SQLStore) FindGrant(ctx context.Context, userID, collectionID string) (*restore.Grant, error) {
	q := fmt.Sprintf(`SELECT "id", "permission" FROM "user_permissions" WHERE "userId" = %s AND "collectionId" = %s ORDER BY "createdAt" ASC LIMIT 1`,
		s.dialect.placeholder(1), s.dialect.placeholder(2))

	g := restore.Grant{UserID: userID, CollectionID: collectionID}
	var permission sql.NullString
	err := s.db.QueryRowContext(ctx, q, userID, collectionID).Scan(&g.ID, &permission)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	g.Permission = permission.String
	return &g, nil
}

func (s *SQLStore) InsertGrant(ctx context.Context, g restore.Grant) error {
	p := s.dialect.placeholder
	q := fmt.Sprintf(`INSERT INTO "user_permissions" ("id", "userId", "collectionId", "permission", "createdAt", "updatedAt", "createdById") VALUES (%s, %s, %s, %s, %s, %s, %s)`,
		p(1), p(2), p(3), p(4), p(5), p(6), p(7))
	_, err := s.db.ExecContext(ctx, q,
		g.ID, g.UserID, g.CollectionID, g.Permission, s.timeArg(g.CreatedAt), s.timeArg(g.UpdatedAt), g.CreatedByID)
	return err
}

func (s *SQLStore) UpgradeGrant(ctx context.Context, grantID, permission string, at time.Time) error {
	p := s.dialect.placeholder
	q := fmt.Sprintf(`UPDATE "user_permissions" SET "permission" = %s, "updatedAt" = %s WHERE "id" = %s`, p(1), p(2), p(3))
	res, err := s.db.ExecContext(ctx, q, permission, s.timeArg(at), grantID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("grant %s not found", grantID)
	}
	return nil
}

func (s *SQLStore) DeleteOrphans(ctx context.Context, table, column, parentTable string) (int64, error) {
	q := fmt.Sprintf(`DELETE FROM %s WHERE %s IS NOT NULL AND %s NOT IN (SELECT "id" FROM %s)`,
		quoteIdent(table), quoteIdent(column), quoteIdent(column), quoteIdent(parentTable))
	res, err := s.db.ExecContext(ctx, q)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted rows: %w", err)
	}
	return n, nil
}

// timeArg renders timestamps the way the repairer does for SQLite, whose
// columns are text; Postgres gets a native time.
func (s *SQLStore) timeArg(t time.Time) any {
	if s.dialect.name == "sqlite" {
		return t.UTC().Format("2006-01-02T15:04:05.000Z")
	}
	return t.UTC()
}

// ensureColumns adds any of cols that table does not have yet.
func (s *SQLStore) ensureColumns(ctx context.Context, table string, cols []string) error {
	known, ok := s.columns[table]
	if !ok {
		var err error
		known, err = s.tableColumns(ctx, table)
		if err != nil {
			return err
		}
		s.columns[table] = known
	}

	for _, c := range cols {
		if known[c] {
			continue
		}
		q := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quoteIdent(table), quoteIdent(c))
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("adding column %s.%s: %w", table, c, err)
		}
		known[c] = true
	}
	return nil
}

func (s *SQLStore) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scanning column of %s: %w", table, err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s does not exist", table)
	}
	return cols, nil
}

// quoteIdent quotes a table or column name. Exported field names are
// camelCase, which Postgres folds to lower case unless quoted.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
