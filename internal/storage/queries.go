package storage

import (
	"context"
	"time"
)

type MutationLog struct {
	ID        int64
	Action    string
	Roll      string
	State     string
	Detail    string
	CreatedAt time.Time
}

type InsertMutationParams struct {
	Action    string
	Roll      string
	State     string
	Detail    string
	CreatedAt time.Time
}

const insertMutation = `
INSERT INTO mutation_log (action, roll, state, detail, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id, action, roll, state, detail, created_at
`

func (q *Queries) InsertMutation(ctx context.Context, arg InsertMutationParams) (MutationLog, error) {
	row := q.db.QueryRowContext(ctx, insertMutation,
		arg.Action,
		arg.Roll,
		arg.State,
		arg.Detail,
		arg.CreatedAt,
	)
	var i MutationLog
	err := row.Scan(
		&i.ID,
		&i.Action,
		&i.Roll,
		&i.State,
		&i.Detail,
		&i.CreatedAt,
	)
	return i, err
}

const listRecentMutations = `
SELECT id, action, roll, state, detail, created_at FROM mutation_log
ORDER BY id DESC
LIMIT ?
`

func (q *Queries) ListRecentMutations(ctx context.Context, limit int64) ([]MutationLog, error) {
	rows, err := q.db.QueryContext(ctx, listRecentMutations, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MutationLog
	for rows.Next() {
		var i MutationLog
		if err := rows.Scan(
			&i.ID,
			&i.Action,
			&i.Roll,
			&i.State,
			&i.Detail,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listMutationsByRoll = `
SELECT id, action, roll, state, detail, created_at FROM mutation_log
WHERE roll = ?
ORDER BY id DESC
LIMIT ?
`

func (q *Queries) ListMutationsByRoll(ctx context.Context, roll string, limit int64) ([]MutationLog, error) {
	rows, err := q.db.QueryContext(ctx, listMutationsByRoll, roll, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MutationLog
	for rows.Next() {
		var i MutationLog
		if err := rows.Scan(
			&i.ID,
			&i.Action,
			&i.Roll,
			&i.State,
			&i.Detail,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteMutationsBefore = `
DELETE FROM mutation_log WHERE created_at < ?
`

func (q *Queries) DeleteMutationsBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteMutationsBefore, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
