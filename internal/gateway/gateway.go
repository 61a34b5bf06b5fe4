package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/srms-edu/srms/internal/shared"
)

// RemoteError is a business-rule rejection raised inside a stored procedure.
// Handlers surface it as a 400 with the procedure's message.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// AsRemoteError unwraps a remote rejection, if err is one.
func AsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// Invoker is the uniform call-and-marshal contract. Handlers depend on this
// interface so tests can observe exactly which remote calls were made.
type Invoker interface {
	// Invoke executes the named stored procedure with positional,
	// parameter-bound arguments and returns its tagged result.
	Invoke(ctx context.Context, ident *shared.Identity, name string, args ...any) (Result, error)
	// View reads all rows of the named view.
	View(ctx context.Context, ident *shared.Identity, name string, opts ...ViewOption) (Result, error)
}

// Gateway invokes stored procedures and views over a pgx pool. Each call
// acquires one connection, runs inside one transaction with the session
// context bound, and commits or rolls back before the connection returns to
// the pool.
type Gateway struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New constructs a Gateway.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Gateway {
	return &Gateway{pool: pool, logger: logger}
}

// identPattern restricts procedure and view names to plain identifiers.
// Argument values are always parameter-bound; only the callable name is
// interpolated, and only after this check.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// oidVoid is the type OID of Postgres void; a call whose only column is void
// produced no tabular output.
const oidVoid = 2278

// Invoke executes `SELECT * FROM name($1..$n)` in its own transaction.
func (g *Gateway) Invoke(ctx context.Context, ident *shared.Identity, name string, args ...any) (Result, error) {
	if !identPattern.MatchString(name) {
		return Result{}, fmt.Errorf("gateway: invalid procedure name %q", name)
	}
	return g.run(ctx, ident, buildCall(name, len(args)), args, "")
}

type viewQuery struct {
	orderBy       string
	encryptionKey string
}

// ViewOption adjusts a view read.
type ViewOption func(*viewQuery)

// WithOrderBy sorts the view output by the named column.
func WithOrderBy(column string) ViewOption {
	return func(q *viewQuery) { q.orderBy = column }
}

// WithEncryptionKey exposes the symmetric key to pgcrypto-backed views for
// the duration of the transaction.
func WithEncryptionKey(key string) ViewOption {
	return func(q *viewQuery) { q.encryptionKey = key }
}

// View reads all rows of the named view.
func (g *Gateway) View(ctx context.Context, ident *shared.Identity, name string, opts ...ViewOption) (Result, error) {
	if !identPattern.MatchString(name) {
		return Result{}, fmt.Errorf("gateway: invalid view name %q", name)
	}
	var q viewQuery
	for _, opt := range opts {
		opt(&q)
	}
	sql := "SELECT * FROM " + name
	if q.orderBy != "" {
		if !identPattern.MatchString(q.orderBy) {
			return Result{}, fmt.Errorf("gateway: invalid order column %q", q.orderBy)
		}
		sql += " ORDER BY " + q.orderBy
	}
	return g.run(ctx, ident, sql, nil, q.encryptionKey)
}

// callTx is the slice of pgx.Tx the per-call transaction needs. Narrowed to
// an interface so the commit-or-rollback lifecycle is testable without a
// database, like contextBinder.
type callTx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

func (g *Gateway) run(ctx context.Context, ident *shared.Identity, sql string, args []any, encryptionKey string) (Result, error) {
	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("gateway: acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("gateway: begin: %w", err)
	}
	return g.runTx(ctx, tx, ident, sql, args, encryptionKey)
}

// runTx binds the session context, executes the call, and commits on success.
// Any early return leaves the deferred rollback to undo the transaction;
// rollback after a successful commit is a no-op error.
func (g *Gateway) runTx(ctx context.Context, tx callTx, ident *shared.Identity, sql string, args []any, encryptionKey string) (Result, error) {
	defer func() { _ = tx.Rollback(ctx) }()

	if err := bindSessionContext(ctx, tx, ident); err != nil {
		return Result{}, fmt.Errorf("gateway: bind session context: %w", err)
	}
	if encryptionKey != "" {
		if _, err := tx.Exec(ctx, "SELECT set_config('app.symmetric_key', $1, true)", encryptionKey); err != nil {
			return Result{}, fmt.Errorf("gateway: bind encryption key: %w", err)
		}
	}

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return Result{}, g.classify(err)
	}
	result, err := collect(rows)
	if err != nil {
		return Result{}, g.classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Result{}, fmt.Errorf("gateway: commit: %w", err)
	}
	return result, nil
}

// collect drains the row set into a tagged Result, preserving column and row
// order. It always closes rows.
func collect(rows pgx.Rows) (Result, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	if len(fields) == 0 || (len(fields) == 1 && fields[0].DataTypeOID == oidVoid) {
		for rows.Next() {
			// Drain the void row, if any.
		}
		if err := rows.Err(); err != nil {
			return Result{}, err
		}
		return NoResult(), nil
	}

	out := make([]Record, 0, 8)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return Result{}, err
		}
		record := NewRecord(len(fields))
		for i, field := range fields {
			record.Set(field.Name, values[i])
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}
	return RowsResult(out), nil
}

// classify converts procedure-raised and constraint errors into RemoteError
// so handlers can answer 400 with the database's message; everything else
// stays an operation failure.
func (g *Gateway) classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "P0") || strings.HasPrefix(pgErr.Code, "23") {
			if g.logger != nil {
				g.logger.Warn("remote rejection", slog.String("code", pgErr.Code), slog.String("message", pgErr.Message))
			}
			return &RemoteError{Message: pgErr.Message}
		}
	}
	return err
}

func buildCall(name string, argc int) string {
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(name)
	b.WriteByte('(')
	for i := 0; i < argc; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", i+1)
	}
	b.WriteByte(')')
	return b.String()
}

var _ Invoker = (*Gateway)(nil)
