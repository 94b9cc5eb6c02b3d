package mystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

var (
	poolOnce sync.Once
	pool     *pgxpool.Pool
	poolErr  error
)

// Documents of every kind share one table: the kind column partitions them.
const createDocumentsTable = `CREATE TABLE IF NOT EXISTS documents (
	kind text NOT NULL,
	uid text NOT NULL,
	doc jsonb NOT NULL,
	PRIMARY KEY (kind, uid)
)`

// lockMissingDocument is held until the transaction ends.
const lockMissingDocument = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

type postgresStore[T any] struct {
	pool *pgxpool.Pool
	kind string
}

func sharedPool(c context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolOnce.Do(func() {
		pool, poolErr = pgxpool.New(c, databaseURL)
		if poolErr != nil {
			return
		}
		_, poolErr = pool.Exec(c, createDocumentsTable)
	})
	return pool, poolErr
}

func newPostgresStore[T any](c context.Context, databaseURL string) (*postgresStore[T], func(), error) {
	p, err := sharedPool(c, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating postgres pool: %s", err)
	}

	// the pool is shared between stores and lives as long as the process
	return &postgresStore[T]{
		pool: p,
		kind: kindOf[T](),
	}, func() {}, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func pgTransactionFromContext(c context.Context) pgx.Tx {
	tx, _ := c.Value(ctxTransactionKey{}).(pgx.Tx)
	return tx
}

func (s *postgresStore[T]) db(c context.Context) querier {
	if tx := pgTransactionFromContext(c); tx != nil {
		return tx
	}
	return s.pool
}

func (s *postgresStore[T]) RunInTransaction(c context.Context, f func(c context.Context) error) error {
	if pgTransactionFromContext(c) != nil {
		return f(c)
	}

	var err error
	for attempt := 1; attempt <= maxTransactionAttempts; attempt++ {
		err = s.runInTransaction(c, f)
		if isRetryable(err) {
			log.Printf("Concurrent transaction on %s, retrying (%d of %d): %s", s.kind, attempt, maxTransactionAttempts, err)
			continue
		}
		return err
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == serializationFailure || pgErr.Code == deadlockDetected
	}
	return false
}

func (s *postgresStore[T]) runInTransaction(c context.Context, f func(c context.Context) error) error {
	tx, err := s.pool.BeginTx(c, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	err = f(context.WithValue(c, ctxTransactionKey{}, tx))
	if err != nil {
		rollbackErr := tx.Rollback(context.WithoutCancel(c))
		if rollbackErr != nil {
			log.Printf("error rolling-back transaction on %s: %s", s.kind, rollbackErr)
		}
		return err
	}

	err = tx.Commit(c)
	if err != nil {
		return fmt.Errorf("error committing transaction on %s: %w", s.kind, err)
	}

	return nil
}

func (s *postgresStore[T]) Put(c context.Context, uid string, value T) error {
	doc, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error marshalling entity %s with uid %s: %s", s.kind, uid, err)
	}

	_, err = s.db(c).Exec(c,
		`INSERT INTO documents (kind, uid, doc) VALUES ($1, $2, $3)
		 ON CONFLICT (kind, uid) DO UPDATE SET doc = EXCLUDED.doc`,
		s.kind, uid, doc)
	if err != nil {
		return fmt.Errorf("error storing entity %s with uid %s: %w", s.kind, uid, err)
	}

	return nil
}

// Get locks the row when called inside a transaction, so a read-check-write sequence
// cannot interleave with another transaction on the same document. A missing row
// cannot be locked, so the key is locked instead and the row read again: a concurrent
// transaction creating the same document then waits and sees the committed version.
func (s *postgresStore[T]) Get(c context.Context, uid string) (T, bool, error) {
	tx := pgTransactionFromContext(c)
	if tx == nil {
		return s.get(c, s.pool, uid, `SELECT doc FROM documents WHERE kind = $1 AND uid = $2`)
	}

	query := `SELECT doc FROM documents WHERE kind = $1 AND uid = $2 FOR UPDATE`
	value, found, err := s.get(c, tx, uid, query)
	if err != nil || found {
		return value, found, err
	}

	_, err = tx.Exec(c, lockMissingDocument, s.kind+"/"+uid)
	if err != nil {
		return value, false, fmt.Errorf("error locking missing entity %s with uid %s: %w", s.kind, uid, err)
	}
	return s.get(c, tx, uid, query)
}

func (s *postgresStore[T]) get(c context.Context, db querier, uid string, query string) (T, bool, error) {
	value := new(T)

	var doc []byte
	err := db.QueryRow(c, query, s.kind, uid).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return *value, false, nil
		}
		return *value, false, fmt.Errorf("error fetching entity %s with uid %s: %w", s.kind, uid, err)
	}

	err = json.Unmarshal(doc, value)
	if err != nil {
		return *value, false, fmt.Errorf("error unmarshalling entity %s with uid %s: %s", s.kind, uid, err)
	}

	return *value, true, nil
}

func (s *postgresStore[T]) List(c context.Context) ([]T, error) {
	return s.query(c, `SELECT doc FROM documents WHERE kind = $1 ORDER BY uid LIMIT 1000`, s.kind)
}

// Query filters on top-level JSON keys, which equal the Go field names of stored types.
func (s *postgresStore[T]) Query(c context.Context, filters []Filter, orderByField string) ([]T, error) {
	sql := strings.Builder{}
	sql.WriteString(`SELECT doc FROM documents WHERE kind = $1`)
	args := []any{s.kind}

	for _, f := range filters {
		if f.Compare != "=" && f.Compare != "!=" {
			return nil, fmt.Errorf("unsupported comparison %s", f.Compare)
		}
		args = append(args, f.Field, fmt.Sprint(f.Value))
		sql.WriteString(fmt.Sprintf(` AND doc->>$%d %s $%d`, len(args)-1, f.Compare, len(args)))
	}
	if orderByField != "" {
		args = append(args, orderByField)
		sql.WriteString(fmt.Sprintf(` ORDER BY doc->>$%d`, len(args)))
	}

	return s.query(c, sql.String(), args...)
}

func (s *postgresStore[T]) query(c context.Context, sql string, args ...any) ([]T, error) {
	rows, err := s.db(c).Query(c, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error fetching entities %s: %w", s.kind, err)
	}
	defer rows.Close()

	result := []T{}
	for rows.Next() {
		var doc []byte
		err = rows.Scan(&doc)
		if err != nil {
			return nil, fmt.Errorf("error scanning entity %s: %w", s.kind, err)
		}
		value := new(T)
		err = json.Unmarshal(doc, value)
		if err != nil {
			return nil, fmt.Errorf("error unmarshalling entity %s: %s", s.kind, err)
		}
		result = append(result, *value)
	}

	return result, rows.Err()
}
