// Package sqltwoway is the high-level façade over database/sql: it loads a
// template by path, compiles it against bound parameters, executes it, and
// maps result rows onto caller structs.
package sqltwoway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Chahine-tech/sqltwoway/pkg/dialect"
	"github.com/Chahine-tech/sqltwoway/pkg/loader"
	"github.com/Chahine-tech/sqltwoway/pkg/mapper"
	"github.com/Chahine-tech/sqltwoway/pkg/sqlerr"
	"github.com/Chahine-tech/sqltwoway/pkg/template"
	"github.com/Chahine-tech/sqltwoway/pkg/value"
	"github.com/Chahine-tech/sqltwoway/pkg/watch"
)

// ErrNoRows is returned by QueryOne when the template produced zero rows.
var ErrNoRows = errors.New("sqltwoway: no rows")

// DB wraps a database/sql connection with template loading, compiling, and
// row mapping.
type DB struct {
	conn    *sql.DB
	loader  *loader.Loader
	dialect dialect.Dialect
	naming  mapper.NamingStrategy
	cache   *templateCache
	watcher *watch.TemplateWatcher
}

// Option configures a DB at Open time.
type Option func(*DB)

// WithDialect overrides the dialect auto-detected from the driver name.
func WithDialect(d dialect.Dialect) Option {
	return func(db *DB) { db.dialect = d }
}

// WithNamingStrategy sets the column naming strategy used to map result
// rows onto struct fields that carry no `db` tag.
func WithNamingStrategy(n mapper.NamingStrategy) Option {
	return func(db *DB) { db.naming = n }
}

// WithBaseDir sets the directory templates and includes are resolved
// against. Defaults to the current directory if never set.
func WithBaseDir(dir string) Option {
	return func(db *DB) { db.loader = loader.NewLoader(dir) }
}

// WithWatch starts a background TemplateWatcher rooted at baseDir that
// evicts a template's cache entry whenever its file changes on disk.
func WithWatch(baseDir string) Option {
	return func(db *DB) {
		db.watcher = watch.NewTemplateWatcher(baseDir)
	}
}

// Open opens a database/sql connection via driverName/dataSourceName and
// auto-detects the dialect from driverName. Pass WithBaseDir to set the
// template root; it defaults to the current directory.
func Open(driverName, dataSourceName string, opts ...Option) (*DB, error) {
	conn, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, sqlerr.Wrap(sqlerr.Facade, "failed to open connection", err)
	}

	d, ok := dialect.FromDriverName(driverName)
	if !ok {
		d = dialect.Sqlite
	}

	db := &DB{
		conn:    conn,
		loader:  loader.NewLoader("."),
		dialect: d,
		naming:  mapper.AsIs,
		cache:   newTemplateCache(),
	}
	for _, o := range opts {
		o(db)
	}

	if db.watcher != nil {
		changed := make(chan string, 16)
		if err := db.watcher.Start(context.Background(), changed); err != nil {
			return nil, fmt.Errorf("failed to start template watcher: %w", err)
		}
		go db.evictOnChange(changed)
	}

	return db, nil
}

func (db *DB) evictOnChange(changed <-chan string) {
	for path := range changed {
		db.cache.evict(path)
	}
}

// Close closes the underlying connection and stops the watcher, if any.
func (db *DB) Close() error {
	if db.watcher != nil {
		db.watcher.Stop()
	}
	return db.conn.Close()
}

// execer abstracts *sql.DB and *sql.Tx so Query/QueryOne/Exec work
// identically against either.
type execer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (db *DB) compile(sqlPath string, params map[string]value.Value) (*template.CompileResult, error) {
	text, err := db.cache.load(sqlPath, db.dialect, db.loader)
	if err != nil {
		return nil, err
	}
	c, err := template.New(template.WithBaseDir(db.loader.BaseDir()), template.WithDialect(db.dialect))
	if err != nil {
		return nil, err
	}
	return c.Compile(text, params)
}

// Query loads, compiles, and executes sqlPath, mapping every result row
// onto dest (a pointer to a slice of struct or struct pointer).
func (db *DB) Query(ctx context.Context, dest any, sqlPath string, params map[string]value.Value) error {
	return queryInto(ctx, db.conn, db, dest, sqlPath, params)
}

// QueryOne is Query for a single-row result; it returns ErrNoRows if the
// template produces zero rows.
func (db *DB) QueryOne(ctx context.Context, dest any, sqlPath string, params map[string]value.Value) error {
	return queryOneInto(ctx, db.conn, db, dest, sqlPath, params)
}

// Exec compiles and executes an INSERT/UPDATE/DELETE template.
func (db *DB) Exec(ctx context.Context, sqlPath string, params map[string]value.Value) (sql.Result, error) {
	return execTemplate(ctx, db.conn, db, sqlPath, params)
}

// Tx wraps an in-flight transaction with the same Query/QueryOne/Exec
// surface as DB.
type Tx struct {
	tx *sql.Tx
	db *DB
}

// Query is Tx's analogue of DB.Query.
func (t *Tx) Query(ctx context.Context, dest any, sqlPath string, params map[string]value.Value) error {
	return queryInto(ctx, t.tx, t.db, dest, sqlPath, params)
}

// QueryOne is Tx's analogue of DB.QueryOne.
func (t *Tx) QueryOne(ctx context.Context, dest any, sqlPath string, params map[string]value.Value) error {
	return queryOneInto(ctx, t.tx, t.db, dest, sqlPath, params)
}

// Exec is Tx's analogue of DB.Exec.
func (t *Tx) Exec(ctx context.Context, sqlPath string, params map[string]value.Value) (sql.Result, error) {
	return execTemplate(ctx, t.tx, t.db, sqlPath, params)
}

// WithTx begins a transaction, runs fn with a *Tx, commits on success, and
// rolls back on error or panic (re-panicking after rollback).
func (db *DB) WithTx(ctx context.Context, fn func(*Tx) error) (err error) {
	sqlTx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return sqlerr.Wrap(sqlerr.Facade, "failed to begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&Tx{tx: sqlTx, db: db}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return sqlerr.Wrap(sqlerr.Facade, "failed to commit transaction", err)
	}
	return nil
}

func queryInto(ctx context.Context, ex execer, db *DB, dest any, sqlPath string, params map[string]value.Value) error {
	compiled, err := db.compile(sqlPath, params)
	if err != nil {
		return err
	}
	args := bindArgs(compiled, db.dialect.PlaceholderStyle)

	rows, err := ex.QueryContext(ctx, compiled.SQL, args...)
	if err != nil {
		return sqlerr.Wrap(sqlerr.Facade, "query failed", err)
	}
	defer rows.Close()

	mapped, err := scanRows(rows)
	if err != nil {
		return err
	}
	return mapper.MapInto(dest, mapped, db.naming)
}

func queryOneInto(ctx context.Context, ex execer, db *DB, dest any, sqlPath string, params map[string]value.Value) error {
	compiled, err := db.compile(sqlPath, params)
	if err != nil {
		return err
	}
	args := bindArgs(compiled, db.dialect.PlaceholderStyle)

	rows, err := ex.QueryContext(ctx, compiled.SQL, args...)
	if err != nil {
		return sqlerr.Wrap(sqlerr.Facade, "query failed", err)
	}
	defer rows.Close()

	mapped, err := scanRows(rows)
	if err != nil {
		return err
	}
	if len(mapped) == 0 {
		return ErrNoRows
	}
	return mapper.MapInto(dest, mapped[:1], db.naming)
}

func execTemplate(ctx context.Context, ex execer, db *DB, sqlPath string, params map[string]value.Value) (sql.Result, error) {
	compiled, err := db.compile(sqlPath, params)
	if err != nil {
		return nil, err
	}
	args := bindArgs(compiled, db.dialect.PlaceholderStyle)
	res, err := ex.ExecContext(ctx, compiled.SQL, args...)
	if err != nil {
		return nil, sqlerr.Wrap(sqlerr.Facade, "exec failed", err)
	}
	return res, nil
}

// bindArgs renders a CompileResult's bound parameters as driver arguments.
// Oracle's named style is passed through sql.Named; every other dialect is
// positional.
func bindArgs(c *template.CompileResult, style dialect.PlaceholderStyle) []any {
	if style == dialect.Named {
		args := make([]any, 0, len(c.Named))
		for name, v := range c.Named {
			args = append(args, sql.Named(name, v.Any()))
		}
		return args
	}
	args := make([]any, len(c.Positional))
	for i, v := range c.Positional {
		args[i] = v.Any()
	}
	return args
}

// scanRows drains rows into a slice of generic column maps ready for
// pkg/mapper, using database/sql's own column-type reflection so each
// driver's native Go representation round-trips into a value.Value.
func scanRows(rows *sql.Rows) ([]map[string]value.Value, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, sqlerr.Wrap(sqlerr.Facade, "failed to read columns", err)
	}

	var out []map[string]value.Value
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, sqlerr.Wrap(sqlerr.Facade, "failed to scan row", err)
		}
		row := make(map[string]value.Value, len(cols))
		for i, c := range cols {
			row[c] = value.FromAny(raw[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlerr.Wrap(sqlerr.Facade, "row iteration failed", err)
	}
	return out, nil
}

// templateCache caches loaded (uncompiled) template text per (path,
// dialect), deduplicating concurrent fills for the same key with
// singleflight so N callers requesting an uncached template trigger exactly
// one disk read.
type templateCache struct {
	mu    sync.RWMutex
	texts map[string]string
	sf    singleflight.Group
}

func newTemplateCache() *templateCache {
	return &templateCache{texts: make(map[string]string)}
}

func cacheKey(path string, d dialect.Dialect) string {
	return string(d.ID) + ":" + path
}

func (c *templateCache) load(path string, d dialect.Dialect, l *loader.Loader) (string, error) {
	key := cacheKey(path, d)

	c.mu.RLock()
	text, ok := c.texts[key]
	c.mu.RUnlock()
	if ok {
		return text, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		return l.Load(path, &d)
	})
	if err != nil {
		return "", err
	}
	text = v.(string)

	c.mu.Lock()
	c.texts[key] = text
	c.mu.Unlock()
	return text, nil
}

func (c *templateCache) evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.texts {
		if strings.HasSuffix(key, ":"+path) {
			delete(c.texts, key)
		}
	}
}
