package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"
)

// SQLExecutor is satisfied by both *sql.DB and *sql.Tx so repository calls
// can join a caller's transaction.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Transactor runs fn inside a single database transaction. fn's error, or a
// panic, rolls everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(exec SQLExecutor) error) error
}

type postgresTransactor struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresTransactor(db *sql.DB, logger *slog.Logger) Transactor {
	if logger == nil {
		logger = slog.Default()
	}
	return &postgresTransactor{db: db, logger: logger}
}

func (t *postgresTransactor) WithinTx(ctx context.Context, fn func(exec SQLExecutor) error) (txErr error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				t.logger.Error("transaction rollback failed", slog.Any("error", rbErr), slog.Any("cause", txErr))
				txErr = fmt.Errorf("transaction processing error: %w (rollback also failed: %v)", txErr, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	return fn(tx)
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

func pqConstraintError(err error, code pq.ErrorCode) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == code {
		return pqErr.Constraint, true
	}
	return "", false
}

const (
	pqUniqueViolation     pq.ErrorCode = "23505"
	pqForeignKeyViolation pq.ErrorCode = "23503"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// prefixColumns qualifies a comma separated column list with a table alias
// for use in joins.
func prefixColumns(alias, columns string) string {
	fields := strings.Split(columns, ",")
	for i, f := range fields {
		fields[i] = alias + "." + strings.TrimSpace(f)
	}
	return strings.Join(fields, ", ")
}
