package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"feedesk/internal/core"
	"feedesk/internal/ledger"

	"github.com/shopspring/decimal"
)

func TestSaveStudentAndCollectFee(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.SaveStudent(ctx, map[string]string{
		"Roll": "5", "Name": "Ravi", "Class": "7", "Tuition Fee": "800", "Prev Balance": "200",
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.CollectFee(ctx, ledger.FeePayload{Roll: "5", Amount: "400", Mode: "Cash", Name: "Ravi", Class: "7"}); err != nil {
		t.Fatalf("collect: %v", err)
	}

	students, _ := s.Students(ctx)
	if len(students) != 1 || !students[0].Balance.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("unexpected students: %+v", students)
	}

	// Re-saving keeps payments already made.
	if err := s.SaveStudent(ctx, map[string]string{"Roll": "5", "Name": "Ravi K", "Tuition Fee": "1000"}); err != nil {
		t.Fatalf("resave: %v", err)
	}
	students, _ = s.Students(ctx)
	if students[0].Name != "Ravi K" || !students[0].Balance.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("unexpected student after resave: %+v", students[0])
	}

	stats, _ := s.DashboardStats(ctx)
	if stats.TotalStudents != 1 || !stats.TotalCollected.Equal(decimal.NewFromInt(400)) || !stats.TotalPending.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	txs, _ := s.Transactions(ctx)
	if len(txs) != 1 || txs[0].Name != "Ravi" || txs[0].Date.IsZero() {
		t.Fatalf("unexpected transactions: %+v", txs)
	}
}

func TestSaveStudentWithoutRoll(t *testing.T) {
	err := New().SaveStudent(context.Background(), map[string]string{"Name": "x"})
	if !errors.Is(err, core.ErrRemoteLedger) {
		t.Fatalf("expected remote ledger error, got %v", err)
	}
}

func TestFailNext(t *testing.T) {
	s := New(core.Student{Roll: "1"})
	boom := errors.New("boom")
	s.FailNext(core.ActionGetStudents, boom)

	if _, err := s.Students(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if _, err := s.Students(context.Background()); err != nil {
		t.Fatalf("failure should apply once, got %v", err)
	}
	if got := s.Calls(core.ActionGetStudents); got != 2 {
		t.Fatalf("calls=%d want 2", got)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFromFile(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if got, _ := s.Students(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty store, got %v", got)
	}

	path := filepath.Join(dir, "students.json")
	content := `[{"Roll": 1, "Name": "Asha", "Balance": 300}, {"roll": "2", "name": "Ravi"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, _ := s.Students(context.Background())
	if len(got) != 2 || got[0].Roll != "1" || !got[0].Balance.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("unexpected seed: %+v", got)
	}

	if err := os.WriteFile(path, []byte(`[{"Name": "no roll"}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFromFile(path); !errors.Is(err, core.ErrMissingField) {
		t.Fatalf("expected missing roll error, got %v", err)
	}
}
