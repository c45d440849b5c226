package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"feedesk/internal/cache"
	"feedesk/internal/core"
	"feedesk/internal/ledger/memory"
	"feedesk/internal/notify"
	"feedesk/internal/services"

	"github.com/shopspring/decimal"
)

type fakeJournal struct {
	entries []core.Transition
}

func (f *fakeJournal) Record(_ context.Context, t core.Transition) error {
	f.entries = append(f.entries, t)
	return nil
}

func (f *fakeJournal) Recent(_ context.Context, limit int) ([]core.Transition, error) {
	if limit > len(f.entries) {
		limit = len(f.entries)
	}
	return f.entries[len(f.entries)-limit:], nil
}

type testEnv struct {
	srv     *Server
	store   *memory.Store
	cache   *cache.Ledger
	notices *notify.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New(
		core.Student{Roll: "5", Name: "Asha Verma", Class: "5", Phone: "9876543210", TuitionFee: decimal.NewFromInt(1000), Balance: decimal.NewFromInt(1000)},
		core.Student{Roll: "6", Name: "Ravi Kumar", Class: "6", Balance: decimal.Zero},
		core.Student{Roll: "7", Name: "Meera Nair", Class: "5", Balance: decimal.NewFromInt(250)},
	)
	c := cache.NewLedger()
	notices := notify.NewRecorder(20)
	journal := &fakeJournal{}
	refresher := services.NewRefresher(store, store, c, nil)
	history := services.NewHistory(store, 10, time.Minute)
	coord := services.NewCoordinator(store, c, refresher, history,
		services.WithSink(notices),
		services.WithJournal(journal),
	)
	srv := NewServer(":0", Deps{
		Coordinator: coord,
		Refresher:   refresher,
		History:     history,
		Cache:       c,
		Journal:     journal,
		Notices:     notices,
	})
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: store, cache: c, notices: notices}
}

func (e *testEnv) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.RemoteAddr = "192.0.2.1:1234"
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)

	var env map[string]json.RawMessage
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, target, err, rr.Body.String())
		}
	}
	return rr, env
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	rr, _ := env.do(t, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
	rr, _ = env.do(t, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before load status=%d, want 503", rr.Code)
	}
	env.do(t, http.MethodGet, "/api/students", "")
	rr, _ = env.do(t, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz after load status=%d", rr.Code)
	}
}

func TestListStudentsFilters(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"5", "6", "7"}},
		{"?q=ravi", []string{"6"}},
		{"?q=7", []string{"7"}},
		{"?class=5", []string{"5", "7"}},
		{"?q=a&class=5", []string{"5", "7"}},
		{"?q=nobody", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr, body := env.do(t, http.MethodGet, "/api/students"+tt.query, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			var got []studentView
			if err := json.Unmarshal(body["data"], &got); err != nil {
				t.Fatalf("decode data: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d students, want %d", len(got), len(tt.want))
			}
			for i, roll := range tt.want {
				if got[i].Roll != roll {
					t.Errorf("student[%d].Roll = %q, want %q", i, got[i].Roll, roll)
				}
			}
		})
	}
}

func TestStudentView(t *testing.T) {
	env := newTestEnv(t)

	rr, body := env.do(t, http.MethodGet, "/api/students/5", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got studentView
	if err := json.Unmarshal(body["data"], &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.HasDues || !strings.HasPrefix(got.ReminderURL, "https://wa.me/919876543210") {
		t.Errorf("view = %+v", got)
	}

	rr, _ = env.do(t, http.MethodGet, "/api/students/404", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown student status=%d, want 404", rr.Code)
	}
}

func TestCollectFeeEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/students", "")

	rr, body := env.do(t, http.MethodPost, "/api/fees", `{"Roll":"5","Amount":400}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out outcomeView
	if err := json.Unmarshal(body["data"], &out); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if out.Reminder == nil || !out.Reminder.EstimatedDue.Equal(decimal.NewFromInt(600)) {
		t.Errorf("reminder = %+v", out.Reminder)
	}

	rr, body = env.do(t, http.MethodGet, "/api/students/5", "")
	var st studentView
	if err := json.Unmarshal(body["data"], &st); err != nil {
		t.Fatalf("decode student: %v", err)
	}
	if !st.Balance.Equal(decimal.NewFromInt(600)) {
		t.Errorf("balance after collect = %s, want 600", st.Balance)
	}

	rr, body = env.do(t, http.MethodGet, "/api/students/5/transactions", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("transactions status=%d", rr.Code)
	}
	var txs []transactionView
	if err := json.Unmarshal(body["data"], &txs); err != nil {
		t.Fatalf("decode transactions: %v", err)
	}
	if len(txs) != 1 || txs[0].Mode != core.DefaultPaymentMode {
		t.Errorf("transactions = %+v", txs)
	}

	rr, body = env.do(t, http.MethodGet, "/api/journal?limit=5", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("journal status=%d", rr.Code)
	}
	var entries []transitionView
	if err := json.Unmarshal(body["data"], &entries); err != nil {
		t.Fatalf("decode journal: %v", err)
	}
	if len(entries) != 5 {
		t.Errorf("journal has %d entries, want 5", len(entries))
	}
}

func TestCollectFeeFormEncoded(t *testing.T) {
	env := newTestEnv(t)

	rr, _ := env.do(t, http.MethodPost, "/api/fees", "roll=7&amount=250&mode=UPI&remarks=June")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	txs, _ := env.store.Transactions(context.Background())
	if len(txs) != 1 || txs[0].Mode != "UPI" || txs[0].Remarks != "June" {
		t.Errorf("transactions = %+v", txs)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*testEnv)
		body   string
		status int
	}{
		{"unknown student", nil, `{"Roll":"99","Amount":10}`, http.StatusNotFound},
		{"zero amount", nil, `{"Roll":"5","Amount":0}`, http.StatusUnprocessableEntity},
		{"missing amount", nil, `{"Roll":"5"}`, http.StatusUnprocessableEntity},
		{"garbage amount", nil, `{"Roll":"5","Amount":"abc"}`, http.StatusUnprocessableEntity},
		{"missing roll", nil, `{"Amount":10}`, http.StatusUnprocessableEntity},
		{"malformed json", nil, `{"Roll":`, http.StatusBadRequest},
		{
			"remote ledger error",
			func(e *testEnv) {
				e.store.FailNext(core.ActionCollectFee, &core.RemoteLedgerError{Action: core.ActionCollectFee, Message: "Sheet locked"})
			},
			`{"Roll":"5","Amount":10}`, http.StatusBadGateway,
		},
		{
			"transport error",
			func(e *testEnv) {
				e.store.FailNext(core.ActionCollectFee, &core.TransportError{Action: core.ActionCollectFee, Err: errors.New("timeout")})
			},
			`{"Roll":"5","Amount":10}`, http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.do(t, http.MethodGet, "/api/students", "")
			if tt.setup != nil {
				tt.setup(env)
			}
			before := env.cache.Snapshot()

			rr, body := env.do(t, http.MethodPost, "/api/fees", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status=%d, want %d (%s)", rr.Code, tt.status, rr.Body.String())
			}
			if _, ok := body["error"]; !ok {
				t.Error("error response should carry an error field")
			}
			if env.cache.Snapshot() != before {
				t.Error("cache changed after rejected request")
			}
		})
	}
}

func TestSaveStudent(t *testing.T) {
	env := newTestEnv(t)

	rr, _ := env.do(t, http.MethodPost, "/api/students", `{"Roll":"12","Name":"Kiran","Class":"2","TuitionFee":1200}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if _, ok := env.cache.Lookup("12"); !ok {
		t.Error("saved student missing from cache")
	}

	rr, _ = env.do(t, http.MethodPost, "/api/students", `{"Roll":"13"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing name status=%d, want 422", rr.Code)
	}
}

func TestDashboardAndRefresh(t *testing.T) {
	env := newTestEnv(t)

	rr, body := env.do(t, http.MethodGet, "/api/dashboard", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var stats statsView
	if err := json.Unmarshal(body["data"], &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalStudents != 3 {
		t.Errorf("total students = %d, want 3", stats.TotalStudents)
	}

	rr, _ = env.do(t, http.MethodPost, "/api/refresh", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh status=%d", rr.Code)
	}
	if !env.cache.Loaded() {
		t.Error("refresh should load the cache")
	}
}

func TestNotifications(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/fees", `{"Roll":"99","Amount":10}`)

	_, body := env.do(t, http.MethodGet, "/api/notifications", "")
	var got []notification
	if err := json.Unmarshal(body["data"], &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Type != string(notify.KindError) {
		t.Errorf("notifications = %+v", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)
	rr, _ := env.do(t, http.MethodGet, "/api/dashboard", "")
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Referrer-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
}

func TestRateLimitOnPost(t *testing.T) {
	env := newTestEnv(t)
	var last int
	for i := 0; i < 61; i++ {
		rr, _ := env.do(t, http.MethodPost, "/api/fees", `{"Roll":"99","Amount":1}`)
		last = rr.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("61st POST status=%d, want 429", last)
	}
}

func TestSuspiciousRequestRejected(t *testing.T) {
	env := newTestEnv(t)
	rr, body := env.do(t, http.MethodGet, "/api/students?q=../../etc/passwd", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if _, ok := body["error"]; !ok {
		t.Errorf("body without error: %s", rr.Body.String())
	}

	rr, _ = env.do(t, http.MethodGet, "/api/students?q=asha", "")
	if rr.Code != http.StatusOK {
		t.Errorf("plain search status = %d, want 200", rr.Code)
	}
}
