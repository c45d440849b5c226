package cache

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"feedesk/internal/core"

	"github.com/shopspring/decimal"
)

func students() []core.Student {
	return []core.Student{
		{Roll: "1", Name: "Asha Verma", Class: "5", Balance: decimal.NewFromInt(300)},
		{Roll: "12", Name: "Ravi", Class: "7", Balance: decimal.NewFromInt(1000)},
		{Roll: "21", Name: "Kiran", Class: "5A", Balance: decimal.Zero},
		{Roll: "A-7", Name: "zoya", Class: "7", Balance: decimal.NewFromInt(50)},
	}
}

func sameStudents(a, b []core.Student) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func TestReplaceThenGetReturnsSameSnapshot(t *testing.T) {
	l := NewLedger()
	if l.Loaded() {
		t.Fatal("new cache should not be loaded")
	}
	in := students()
	l.Replace(in)

	for i := 0; i < 3; i++ {
		if got := l.Get(); !sameStudents(got, in) {
			t.Fatalf("read %d: got %+v", i, got)
		}
	}
	if !l.Loaded() {
		t.Fatal("cache should be loaded after replace")
	}

	// Neither the input slice nor a returned slice aliases the snapshot.
	in[0].Name = "mutated"
	got := l.Get()
	got[1].Name = "mutated too"
	if again := l.Get(); again[0].Name != "Asha Verma" || again[1].Name != "Ravi" {
		t.Fatalf("snapshot was modified through a caller slice: %+v", again)
	}
}

func TestApplyDiscardsStaleTickets(t *testing.T) {
	l := NewLedger()
	older := l.Begin()
	newer := l.Begin()

	if !l.Apply(newer, students()[:1]) {
		t.Fatal("newer ticket should apply")
	}
	if l.Apply(older, students()) {
		t.Fatal("older ticket should be discarded")
	}
	if got := l.Get(); len(got) != 1 || l.Generation() != newer {
		t.Fatalf("stale fetch clobbered the cache: %+v gen=%d", got, l.Generation())
	}
	if l.Apply(newer, nil) {
		t.Fatal("same ticket should not apply twice")
	}
}

func TestApplyStats(t *testing.T) {
	l := NewLedger()
	if _, ok := l.Stats(); ok {
		t.Fatal("no stats expected before first apply")
	}
	a, b := l.Begin(), l.Begin()
	l.ApplyStats(b, core.DashboardStats{TotalStudents: 2})
	if l.ApplyStats(a, core.DashboardStats{TotalStudents: 1}) {
		t.Fatal("stale stats should be discarded")
	}
	if s, ok := l.Stats(); !ok || s.TotalStudents != 2 {
		t.Fatalf("unexpected stats: %+v", s)
	}
}

func TestLookup(t *testing.T) {
	l := NewLedger()
	l.Replace(students())
	if s, ok := l.Lookup("12"); !ok || s.Name != "Ravi" {
		t.Fatalf("lookup 12: %+v %v", s, ok)
	}
	if s, ok := l.Lookup(" 12.0 "); !ok || s.Name != "Ravi" {
		t.Fatalf("numeric roll forms should match: %+v %v", s, ok)
	}
	if _, ok := l.Lookup("99"); ok {
		t.Fatal("unexpected match for unknown roll")
	}
}

func TestFilterByNameOrRoll(t *testing.T) {
	l := NewLedger()
	l.Replace(students())

	cases := []struct {
		term string
		want []string
	}{
		{"", []string{"1", "12", "21", "A-7"}},
		{"asha", []string{"1"}},
		{"ZOYA", []string{"A-7"}},
		{"1", []string{"1", "12", "21"}},
		{"a-", []string{"A-7"}},
		{"verma", []string{"1"}},
		{"nobody", nil},
		{" ", []string{"1"}},
		{"a v", []string{"1"}},
	}
	for _, tc := range cases {
		got := l.Filter(ByNameOrRoll(tc.term))
		if rolls(got) != strings.Join(tc.want, ",") {
			t.Fatalf("term %q: got %s want %v", tc.term, rolls(got), tc.want)
		}
		// Cross-check against the definition.
		for _, s := range l.Get() {
			term := strings.ToLower(tc.term)
			match := strings.Contains(strings.ToLower(s.Name), term) || strings.Contains(strings.ToLower(s.Roll), term)
			if match != contains(got, s.Roll) {
				t.Fatalf("term %q: roll %s match=%v", tc.term, s.Roll, match)
			}
		}
	}
}

func TestFilterByClass(t *testing.T) {
	l := NewLedger()
	l.Replace(students())

	if got := rolls(l.Filter(ByClass("5"))); got != "1" {
		t.Fatalf("class 5: %s", got)
	}
	if got := rolls(l.Filter(ByClass("7"))); got != "12,A-7" {
		t.Fatalf("class 7: %s", got)
	}
	if got := rolls(l.Filter(ByClass(""))); got != "1,12,21,A-7" {
		t.Fatalf("empty class: %s", got)
	}
	if got := rolls(l.Filter(All(ByClass("7"), ByNameOrRoll("ravi")))); got != "12" {
		t.Fatalf("combined: %s", got)
	}
}

func TestConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	l := NewLedger()
	build := func(gen int) []core.Student {
		out := make([]core.Student, 50)
		for i := range out {
			out[i] = core.Student{Roll: fmt.Sprint(i), Name: fmt.Sprintf("gen-%d", gen)}
		}
		return out
	}
	l.Replace(build(0))

	var wg sync.WaitGroup
	for w := 1; w <= 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				l.Replace(build(w*1000 + i))
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap := l.Get()
				for _, s := range snap {
					if s.Name != snap[0].Name {
						t.Errorf("torn snapshot: %s vs %s", s.Name, snap[0].Name)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}

func rolls(in []core.Student) string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = s.Roll
	}
	return strings.Join(out, ",")
}

func contains(in []core.Student, roll string) bool {
	for _, s := range in {
		if s.Roll == roll {
			return true
		}
	}
	return false
}
