package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// pgConflict marks lock and serialization failures as retryable conflicts.
func pgConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && (pqErr.Code == pgSerializationFailure || pqErr.Code == pgDeadlockDetected) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}

type pgTxKey struct{}

// PostgresCollection stores documents as JSONB rows keyed by id. The seq column
// preserves insertion order.
type PostgresCollection[T any] struct {
	db   *sqlx.DB
	spec CollectionSpec
}

// NewPostgresCollection constructs a JSONB-backed collection.
func NewPostgresCollection[T any](db *sqlx.DB, spec CollectionSpec) (*PostgresCollection[T], error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	return &PostgresCollection[T]{db: db, spec: spec}, nil
}

// EnsureSchema creates the backing table and unique indexes when missing.
func (c *PostgresCollection[T]) EnsureSchema(ctx context.Context) error {
	table := c.spec.Name
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (seq BIGSERIAL, id TEXT PRIMARY KEY, doc JSONB NOT NULL)`, table),
	}
	for _, field := range c.spec.Unique {
		stmts = append(stmts, fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s_%s_key ON %s ((doc->>'%s'))`, table, field, table, field))
	}
	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure %s schema: %w", table, err)
		}
	}
	return nil
}

func (c *PostgresCollection[T]) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(pgTxKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return c.db
}

// Put upserts the document under id.
func (c *PostgresCollection[T]) Put(ctx context.Context, id string, doc T) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s document: %w", c.spec.Name, err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`, c.spec.Name)
	if _, err := c.ext(ctx).ExecContext(ctx, query, id, payload); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return fmt.Errorf("put %s %s: %w", c.spec.Name, id, ErrDuplicate)
		}
		return fmt.Errorf("put %s %s: %w", c.spec.Name, id, pgConflict(err))
	}
	return nil
}

// Get loads the document stored under id. Inside a transaction the row stays
// locked until commit, so read-modify-write cycles cannot interleave.
func (c *PostgresCollection[T]) Get(ctx context.Context, id string) (T, error) {
	var (
		doc T
		raw []byte
	)
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, c.spec.Name)
	if _, ok := ctx.Value(pgTxKey{}).(*sqlx.Tx); ok {
		query += ` FOR UPDATE`
	}
	if err := sqlx.GetContext(ctx, c.ext(ctx), &raw, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return doc, ErrNotFound
		}
		return doc, fmt.Errorf("get %s %s: %w", c.spec.Name, id, pgConflict(err))
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("decode %s %s: %w", c.spec.Name, id, err)
	}
	return doc, nil
}

// All returns every document in insertion order.
func (c *PostgresCollection[T]) All(ctx context.Context) ([]T, error) {
	query := fmt.Sprintf(`SELECT doc FROM %s ORDER BY seq`, c.spec.Name)
	return c.selectDocs(ctx, query)
}

// Exists reports whether id is stored.
func (c *PostgresCollection[T]) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, c.spec.Name)
	if err := sqlx.GetContext(ctx, c.ext(ctx), &exists, query, id); err != nil {
		return false, fmt.Errorf("exists %s %s: %w", c.spec.Name, id, err)
	}
	return exists, nil
}

// Delete removes id. Deleting a missing id is not an error.
func (c *PostgresCollection[T]) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, c.spec.Name)
	if _, err := c.ext(ctx).ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", c.spec.Name, id, pgConflict(err))
	}
	return nil
}

// FindBy returns documents whose field equals value.
func (c *PostgresCollection[T]) FindBy(ctx context.Context, field, value string) ([]T, error) {
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE doc->>$1 = $2 ORDER BY seq`, c.spec.Name)
	return c.selectDocs(ctx, query, field, value)
}

// Match returns documents where any of fields contains term, ignoring case.
func (c *PostgresCollection[T]) Match(ctx context.Context, term string, fields ...string) ([]T, error) {
	if len(fields) == 0 {
		return []T{}, nil
	}
	args := []interface{}{"%" + escapeLike(term) + "%"}
	conditions := make([]string, 0, len(fields))
	for _, field := range fields {
		args = append(args, field)
		conditions = append(conditions, fmt.Sprintf(`(doc->>$%d) ILIKE $1`, len(args)))
	}
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE %s ORDER BY seq`, c.spec.Name, strings.Join(conditions, " OR "))
	return c.selectDocs(ctx, query, args...)
}

func (c *PostgresCollection[T]) selectDocs(ctx context.Context, query string, args ...interface{}) ([]T, error) {
	var rows [][]byte
	if err := sqlx.SelectContext(ctx, c.ext(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query %s: %w", c.spec.Name, err)
	}
	docs := make([]T, 0, len(rows))
	for _, raw := range rows {
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.spec.Name, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

// PostgresTransactor runs units of work in a single database transaction.
type PostgresTransactor struct {
	db *sqlx.DB
}

// NewPostgresTransactor constructs a PostgresTransactor.
func NewPostgresTransactor(db *sqlx.DB) *PostgresTransactor {
	return &PostgresTransactor{db: db}
}

// Run commits when fn succeeds and rolls back otherwise. Nested calls join the outer transaction.
func (t *PostgresTransactor) Run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(pgTxKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(context.WithValue(ctx, pgTxKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", pgConflict(err))
	}
	return nil
}
