package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"feedesk/internal/core"

	"github.com/shopspring/decimal"
)

func newParser(t *testing.T, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return p
}

func TestRequestBodyParser_JSON(t *testing.T) {
	parser := newParser(t, `{"Roll": "123", "Name": "test", "Amount": 42.5, "Big": 12345678901234567890}`)

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if roll := parser.Get("Roll"); roll != "123" {
		t.Errorf("Get('Roll') = %q, want '123'", roll)
	}
	if amount := parser.Get("Amount"); amount != "42.5" {
		t.Errorf("Get('Amount') = %q, want '42.5'", amount)
	}
	if big := parser.Get("Big"); big != "12345678901234567890" {
		t.Errorf("Get('Big') = %q, numbers must keep their digits", big)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	parser := newParser(t, "roll=456&name=form+test&value=100")

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if name := parser.Get("name"); name != "form test" {
		t.Errorf("Get('name') = %q, want 'form test'", name)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	parser := newParser(t, "")

	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
	if len(parser.Values()) != 0 {
		t.Errorf("Values() = %v, want empty", parser.Values())
	}
}

func TestRequestBodyParser_Values(t *testing.T) {
	parser := newParser(t, `{"Roll":"12","Name":"  Kiran\u0007 ","Phone":"","TuitionFee":1500}`)

	got := parser.Values()
	want := map[string]string{"Roll": "12", "Name": "Kiran", "TuitionFee": "1500"}
	if len(got) != len(want) {
		t.Fatalf("Values() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("Values()[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestRequestBodyParser_FeeRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    core.FeeRequest
		wantErr error
	}{
		{
			name: "json title case",
			body: `{"Roll":"5","Amount":400,"Mode":"UPI"}`,
			want: core.FeeRequest{Roll: "5", Amount: decimal.NewFromInt(400), Mode: "UPI"},
		},
		{
			name: "form lower case with grouping",
			body: "roll=5&amount=1%2C200&remarks=June",
			want: core.FeeRequest{Roll: "5", Amount: decimal.NewFromInt(1200), Remarks: "June"},
		},
		{
			name: "rupee prefix with dot",
			body: `{"Roll":"5","Amount":"Rs. 400"}`,
			want: core.FeeRequest{Roll: "5", Amount: decimal.NewFromInt(400)},
		},
		{
			name:    "missing amount",
			body:    `{"Roll":"5"}`,
			wantErr: core.ErrValidation,
		},
		{
			name:    "unparseable amount",
			body:    `{"Roll":"5","Amount":"n/a"}`,
			wantErr: core.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newParser(t, tt.body).FeeRequest()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FeeRequest: %v", err)
			}
			if got.Roll != tt.want.Roll || got.Mode != tt.want.Mode || got.Remarks != tt.want.Remarks {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if !got.Amount.Equal(tt.want.Amount) {
				t.Errorf("amount = %s, want %s", got.Amount, tt.want.Amount)
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 50},
		{"abc", 50},
		{"-1", 50},
		{"10", 10},
		{"9999", 500},
	}
	for _, tt := range tests {
		if got := parseLimit(url.Values{"limit": {tt.raw}}, 50, 500); got != tt.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
