package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"feedesk/internal/cache"
	"feedesk/internal/core"
	"feedesk/internal/ledger"
	applog "feedesk/internal/log"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/singleflight"
)

// Refresher loads the student register and dashboard stats into the cache.
// Every fetch takes a cache ticket before dispatch, so a response that
// arrives after a newer one has been applied is dropped instead of
// overwriting it.
type Refresher struct {
	students ledger.StudentLister
	stats    ledger.StatsReader
	cache    *cache.Ledger
	group    singleflight.Group
	logger   *applog.Logger
}

func NewRefresher(students ledger.StudentLister, stats ledger.StatsReader, c *cache.Ledger, logger *applog.Logger) *Refresher {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Refresher{
		students: students,
		stats:    stats,
		cache:    c,
		logger:   logger.WithComponent(applog.ComponentCache),
	}
}

// Students loads the register and returns the resulting snapshot. Calls
// that overlap share one fetch; a caller that gives up does not cancel it
// for the others.
func (r *Refresher) Students(ctx context.Context) ([]core.Student, error) {
	if err := r.shared(ctx, "students", r.fetchStudents); err != nil {
		return nil, err
	}
	return r.cache.Get(), nil
}

// Stats loads the dashboard aggregates. Overlapping calls share one fetch.
func (r *Refresher) Stats(ctx context.Context) (core.DashboardStats, error) {
	if err := r.shared(ctx, "stats", r.fetchStats); err != nil {
		return core.DashboardStats{}, err
	}
	stats, _ := r.cache.Stats()
	return stats, nil
}

func (r *Refresher) shared(ctx context.Context, key string, fetch func(context.Context) error) error {
	ch := r.group.DoChan(key, func() (any, error) {
		return nil, fetch(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

// AfterMutation reloads students and stats with fresh fetches. It never
// joins a fetch already in flight, since that one may have been dispatched
// before the mutation committed. The two fetches run independently; a
// failing one does not stop the other.
func (r *Refresher) AfterMutation(ctx context.Context) error {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result *multierror.Error
	)
	for _, fetch := range []func(context.Context) error{r.fetchStudents, r.fetchStats} {
		wg.Add(1)
		go func(fetch func(context.Context) error) {
			defer wg.Done()
			if err := fetch(ctx); err != nil {
				mu.Lock()
				result = multierror.Append(result, err)
				mu.Unlock()
			}
		}(fetch)
	}
	wg.Wait()
	if result != nil {
		result.ErrorFormat = joinErrors
	}
	return result.ErrorOrNil()
}

// joinErrors keeps refresh failures on one line for notifications.
func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (r *Refresher) fetchStudents(ctx context.Context) error {
	ticket := r.cache.Begin()
	students, err := r.students.Students(ctx)
	if err != nil {
		return fmt.Errorf("refresh students: %w", err)
	}
	if !r.cache.Apply(ticket, students) {
		r.logger.DebugContext(ctx, "Discarded stale student fetch",
			applog.FieldGeneration, uint64(ticket),
			"current", uint64(r.cache.Generation()))
		return nil
	}
	r.logger.DebugContext(ctx, "Student snapshot replaced",
		applog.FieldGeneration, uint64(ticket),
		applog.FieldCount, len(students))
	return nil
}

func (r *Refresher) fetchStats(ctx context.Context) error {
	ticket := r.cache.Begin()
	stats, err := r.stats.DashboardStats(ctx)
	if err != nil {
		return fmt.Errorf("refresh dashboard stats: %w", err)
	}
	if !r.cache.ApplyStats(ticket, stats) {
		r.logger.DebugContext(ctx, "Discarded stale stats fetch", applog.FieldGeneration, uint64(ticket))
	}
	return nil
}
