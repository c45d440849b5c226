package ledger

import "testing"

func TestLoaderTracksOverlappingCalls(t *testing.T) {
	var changes []bool
	l := &Loader{OnChange: func(on bool) { changes = append(changes, on) }}

	l.SetLoading(true)
	l.SetLoading(true)
	if !l.Loading() {
		t.Fatal("expected loading")
	}
	l.SetLoading(false)
	if !l.Loading() {
		t.Fatal("expected loading while one call is still in flight")
	}
	l.SetLoading(false)
	if l.Loading() {
		t.Fatal("expected idle")
	}
	// Extra settles never go negative.
	l.SetLoading(false)
	if l.Loading() {
		t.Fatal("expected idle after extra settle")
	}

	if len(changes) != 2 || !changes[0] || changes[1] {
		t.Fatalf("unexpected transitions: %v", changes)
	}
}
