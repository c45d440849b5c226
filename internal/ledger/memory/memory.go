// Package memory is an in-process stand-in for the ledger web app. It
// applies the same balance rules as the real backend and is used for local
// runs and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"feedesk/internal/core"
	"feedesk/internal/ledger"
	"feedesk/internal/normalize"

	"github.com/shopspring/decimal"
)

type Store struct {
	mu       sync.Mutex
	students []core.Student
	txs      []core.Transaction
	failures map[string]error
	calls    map[string]int
	now      func() time.Time
}

// Ensure interface conformance
var _ ledger.Ledger = (*Store)(nil)

func New(students ...core.Student) *Store {
	s := &Store{
		failures: map[string]error{},
		calls:    map[string]int{},
		now:      time.Now,
	}
	s.students = append(s.students, students...)
	return s
}

// NewFromFile seeds the store from a JSON array of student records in any
// casing the ledger produces. A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var records []normalize.Record
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	s := New()
	for _, rec := range records {
		st, err := normalize.Student(rec)
		if err != nil {
			return nil, fmt.Errorf("seed file %s: %w", path, err)
		}
		s.students = append(s.students, st)
	}
	return s, nil
}

// FailNext makes the next call of action fail with err.
func (s *Store) FailNext(action string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[action] = err
}

// Calls returns how many times action was invoked.
func (s *Store) Calls(action string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[action]
}

func (s *Store) enter(action string) error {
	s.calls[action]++
	if err, ok := s.failures[action]; ok {
		delete(s.failures, action)
		return err
	}
	return nil
}

func (s *Store) Students(_ context.Context) ([]core.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(core.ActionGetStudents); err != nil {
		return nil, err
	}
	return append([]core.Student(nil), s.students...), nil
}

func (s *Store) Transactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(core.ActionGetTransactions); err != nil {
		return nil, err
	}
	return append([]core.Transaction(nil), s.txs...), nil
}

func (s *Store) DashboardStats(_ context.Context) (core.DashboardStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(core.ActionGetDashboardStats); err != nil {
		return core.DashboardStats{}, err
	}
	stats := core.DashboardStats{TotalStudents: len(s.students)}
	for _, tx := range s.txs {
		stats.TotalCollected = stats.TotalCollected.Add(tx.Amount)
	}
	for _, st := range s.students {
		if st.Balance.IsPositive() {
			stats.TotalPending = stats.TotalPending.Add(st.Balance)
		}
	}
	stats.NetCash = stats.TotalCollected
	return stats, nil
}

// SaveStudent inserts or replaces a student. A new student starts with a
// balance equal to its fees plus previous balance; an existing student
// keeps the payments already made against it.
func (s *Store) SaveStudent(_ context.Context, form map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(core.ActionSaveStudent); err != nil {
		return err
	}
	rec := make(normalize.Record, len(form))
	for k, v := range form {
		rec[k] = v
	}
	st, err := normalize.Student(rec)
	if err != nil {
		return &core.RemoteLedgerError{Action: core.ActionSaveStudent, Message: "Roll is required"}
	}
	st.Balance = st.TuitionFee.Add(st.VanFee).Add(st.OtherFee).Add(st.PrevBalance).Sub(s.paidLocked(st.Roll))

	for i := range s.students {
		if core.SameRoll(s.students[i].Roll, st.Roll) {
			s.students[i] = st
			return nil
		}
	}
	s.students = append(s.students, st)
	return nil
}

func (s *Store) CollectFee(_ context.Context, p ledger.FeePayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(core.ActionCollectFee); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return &core.RemoteLedgerError{Action: core.ActionCollectFee, Message: "Invalid amount"}
	}
	s.txs = append(s.txs, core.Transaction{
		Date:    s.now().UTC(),
		Roll:    p.Roll,
		Name:    p.Name,
		Class:   p.Class,
		Amount:  amount,
		Mode:    p.Mode,
		Remarks: p.Remarks,
	})
	for i := range s.students {
		if core.SameRoll(s.students[i].Roll, p.Roll) {
			s.students[i].Balance = s.students[i].Balance.Sub(amount)
		}
	}
	return nil
}

func (s *Store) paidLocked(roll string) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range s.txs {
		if core.SameRoll(tx.Roll, roll) {
			total = total.Add(tx.Amount)
		}
	}
	return total
}
