package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/verte-zerg/mantra/internal/model"
)

// SaveCounter persists next as the mantra state and, when reads changed, appends a
// reading event with the signed difference at time at. Both happen in one transaction.
// The update only applies while the row still holds prior's reads and goal;
// otherwise it returns ErrConflict and writes nothing.
func (s *Store) SaveCounter(ctx context.Context, id string, prior, next model.CounterState, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	query, args, err := s.builder.Update("mantras").
		Set("reads", next.Reads).
		Set("goal", next.Goal).
		Set("updated_at", at.UnixMilli()).
		Where(squirrel.Eq{"id": id, "reads": prior.Reads, "goal": prior.Goal}).
		ToSql()
	if err != nil {
		return err
	}
	var res sql.Result
	res, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	var n int64
	if n, err = res.RowsAffected(); err != nil {
		return err
	}
	if n == 0 {
		err = missingOrConflict(ctx, tx, s.builder, id)
		return err
	}

	if delta := int64(next.Reads) - int64(prior.Reads); delta != 0 {
		query, args, err = s.builder.Insert("readings").
			Columns("mantra_id", "period_ms", "readings").
			Values(id, at.UnixMilli(), delta).
			ToSql()
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	err = tx.Commit()
	return err
}

// ListReadings returns reading events ordered by time. Since is inclusive, Until
// exclusive, and an empty MantraID selects every mantra.
func (s *Store) ListReadings(ctx context.Context, filter model.ReadingFilter) ([]model.ReadingEvent, error) {
	q := s.builder.Select("period_ms", "readings").
		From("readings").
		OrderBy("period_ms ASC", "id ASC")
	if filter.MantraID != "" {
		q = q.Where(squirrel.Eq{"mantra_id": filter.MantraID})
	}
	if filter.Since != nil {
		q = q.Where(squirrel.GtOrEq{"period_ms": filter.Since.UnixMilli()})
	}
	if filter.Until != nil {
		q = q.Where(squirrel.Lt{"period_ms": filter.Until.UnixMilli()})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var events []model.ReadingEvent
	for rows.Next() {
		var periodMs int64
		var ev model.ReadingEvent
		if err := rows.Scan(&periodMs, &ev.Readings); err != nil {
			return nil, err
		}
		ev.Period = time.UnixMilli(periodMs)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func missingOrConflict(ctx context.Context, tx *sql.Tx, builder squirrel.StatementBuilderType, id string) error {
	query, args, err := builder.Select("COUNT(1)").
		From("mantras").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	var count int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return fmt.Errorf("%w: %s", ErrConflict, id)
}
