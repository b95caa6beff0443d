package snapshots

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domain "github.com/yungbote/budgetvault-backend/internal/domain/snapshots"
)

// MapError classifies store failures into snapshot error codes. Nothing is retried here.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *domain.Error
	if errors.As(err, &se) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.Wrap(domain.CodeNotFound, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.Wrap(domain.CodeRetryable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return domain.Wrap(domain.CodeConflict, op, err) // unique_violation
		case "23001", "23503", "23514":
			return domain.Wrap(domain.CodeInvariantViolation, op, err) // restrict (immutability trigger) / foreign_key / check
		case "40001", "40P01", "55P03":
			return domain.Wrap(domain.CodeRetryable, op, err) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "unique constraint"):
		return domain.Wrap(domain.CodeConflict, op, err)
	case strings.Contains(msg, "snapshots are immutable"):
		return domain.Wrap(domain.CodeInvariantViolation, op, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "database is locked"):
		return domain.Wrap(domain.CodeRetryable, op, err)
	default:
		return domain.Wrap(domain.CodeInternal, op, err)
	}
}
