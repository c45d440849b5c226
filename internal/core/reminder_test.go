package core

import (
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestBuildReminderLinkPhoneNormalization(t *testing.T) {
	due := decimal.NewFromInt(500)
	cases := []struct {
		phone string
		want  string
	}{
		{"9876543210", "https://wa.me/919876543210?"},
		{"919876543210", "https://wa.me/919876543210?"},
		{"+91 98765-43210", "https://wa.me/919876543210?"},
		{"98765 43210", "https://wa.me/919876543210?"},
	}
	for _, tc := range cases {
		link := BuildReminderLink(tc.phone, "Asha", due)
		if !strings.HasPrefix(link, tc.want) {
			t.Fatalf("BuildReminderLink(%q)=%q want prefix %q", tc.phone, link, tc.want)
		}
	}

	if got := BuildReminderLink("", "Asha", due); got != NoLink {
		t.Fatalf("empty phone should give sentinel, got %q", got)
	}
	if got := BuildReminderLink("n/a", "Asha", due); got != NoLink {
		t.Fatalf("phone without digits should give sentinel, got %q", got)
	}
}

func TestBuildReminderLinkMessage(t *testing.T) {
	link := BuildReminderLink("9876543210", "Asha", decimal.NewFromInt(500))
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if strings.Contains(u.RawQuery, "+") {
		t.Fatalf("spaces should be percent-encoded: %q", u.RawQuery)
	}
	msg := u.Query().Get("text")
	want := "Dear Parent, This is a reminder that the fee balance for Asha is Rs. 500. Please pay at the earliest."
	if msg != want {
		t.Fatalf("message=%q want %q", msg, want)
	}
}
