package services

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"feedesk/internal/cache"
	"feedesk/internal/core"
	"feedesk/internal/ledger"

	"golang.org/x/sync/singleflight"
)

// History serves per-student payment history.
//
// The ledger only offers the full transaction collection, so every miss
// scans all transactions. That is fine at school scale; a filtered
// server-side query would be needed beyond it.
type History struct {
	lister ledger.TransactionLister
	cache  *cache.LRUCache[[]core.Transaction]
	group  singleflight.Group

	// gens counts invalidations per roll. A fetch only fills the cache if
	// no invalidation happened while it was in flight.
	mu   sync.Mutex
	gens map[string]uint64
}

func NewHistory(lister ledger.TransactionLister, size int, ttl time.Duration) *History {
	return &History{
		lister: lister,
		cache:  cache.NewLRUCache[[]core.Transaction](size, ttl),
		gens:   make(map[string]uint64),
	}
}

// Cache exposes the underlying cache for registration with a cache.Manager.
func (h *History) Cache() *cache.LRUCache[[]core.Transaction] {
	return h.cache
}

// ForStudent returns the transactions of roll, newest first.
func (h *History) ForStudent(ctx context.Context, roll string) ([]core.Transaction, error) {
	key := strings.TrimSpace(roll)
	if txs, ok := h.cache.Get(key); ok {
		return append([]core.Transaction(nil), txs...), nil
	}

	h.mu.Lock()
	gen := h.gens[key]
	h.mu.Unlock()

	// Callers only share a fetch started within the same generation.
	flight := key + "#" + strconv.FormatUint(gen, 10)
	ch := h.group.DoChan(flight, func() (any, error) {
		all, err := h.lister.Transactions(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		var mine []core.Transaction
		for _, tx := range all {
			if core.SameRoll(tx.Roll, key) {
				mine = append(mine, tx)
			}
		}
		sort.SliceStable(mine, func(i, j int) bool { return mine[i].Date.After(mine[j].Date) })

		h.mu.Lock()
		if h.gens[key] == gen {
			h.cache.Set(key, mine)
		}
		h.mu.Unlock()
		return mine, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return append([]core.Transaction(nil), res.Val.([]core.Transaction)...), nil
	}
}

// Invalidate drops the cached history of roll. Fetches already in flight
// still answer their callers but no longer fill the cache.
func (h *History) Invalidate(roll string) {
	key := strings.TrimSpace(roll)
	h.mu.Lock()
	h.gens[key]++
	h.cache.Delete(key)
	h.mu.Unlock()
}
