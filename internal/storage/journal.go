package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"feedesk/internal/core"
	applog "feedesk/internal/log"

	_ "modernc.org/sqlite"
)

// Journal is an append-only sqlite log of mutation transitions. It is an
// audit trail; ledger data never goes in it.
type Journal struct {
	db      *sql.DB
	queries *Queries
	logger  *applog.Logger
}

// NewJournal opens the journal at dbPath and applies pending migrations.
// Migrations run on their own connection, so dbPath must name a file.
func NewJournal(dbPath string, logger *applog.Logger) (*Journal, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger = logger.WithComponent(applog.ComponentJournal)
	logger.Debug("Journal ready", "path", dbPath, "schema_version", version)
	return &Journal{
		db:      db,
		queries: New(db),
		logger:  logger,
	}, nil
}

func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Record appends one transition.
func (j *Journal) Record(ctx context.Context, t core.Transition) error {
	at := t.At
	if at.IsZero() {
		at = time.Now()
	}
	entry, err := j.queries.InsertMutation(ctx, InsertMutationParams{
		Action:    t.Action,
		Roll:      t.Roll,
		State:     string(t.State),
		Detail:    t.Detail,
		CreatedAt: at.UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert mutation transition: %w", err)
	}
	j.logger.DebugContext(ctx, "Transition journaled",
		"id", entry.ID,
		applog.FieldAction, entry.Action,
		applog.FieldRoll, entry.Roll,
		applog.FieldState, entry.State)
	return nil
}

// Recent returns the newest transitions first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]core.Transition, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.queries.ListRecentMutations(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent mutations: %w", err)
	}
	return toTransitions(rows), nil
}

// ForRoll returns the newest transitions recorded for roll.
func (j *Journal) ForRoll(ctx context.Context, roll string, limit int) ([]core.Transition, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.queries.ListMutationsByRoll(ctx, roll, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list mutations for roll %s: %w", roll, err)
	}
	return toTransitions(rows), nil
}

// Prune deletes transitions older than age.
func (j *Journal) Prune(ctx context.Context, age time.Duration) (int64, error) {
	n, err := j.queries.DeleteMutationsBefore(ctx, time.Now().Add(-age).UTC())
	if err != nil {
		return 0, fmt.Errorf("prune mutation log: %w", err)
	}
	if n > 0 {
		j.logger.InfoContext(ctx, "Pruned mutation log", applog.FieldCount, n)
	}
	return n, nil
}

func toTransitions(rows []MutationLog) []core.Transition {
	out := make([]core.Transition, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.Transition{
			Action: r.Action,
			Roll:   r.Roll,
			State:  core.MutationState(r.State),
			Detail: r.Detail,
			At:     r.CreatedAt,
		})
	}
	return out
}
