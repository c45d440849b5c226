package core

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// NoLink is returned when no phone number is available.
const NoLink = "#"

const countryCode = "91"

// NormalizePhone keeps the digits of a phone number and adds the country
// code to bare 10-digit numbers.
func NormalizePhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
	if len(digits) == 10 {
		return countryCode + digits
	}
	return digits
}

// BuildReminderLink returns a wa.me deep link carrying a fee-due notice.
func BuildReminderLink(phone, name string, due decimal.Decimal) string {
	clean := NormalizePhone(phone)
	if clean == "" {
		return NoLink
	}
	msg := fmt.Sprintf("Dear Parent, This is a reminder that the fee balance for %s is Rs. %s. Please pay at the earliest.", name, due.String())
	// wa.me expects %20 rather than + for spaces.
	return "https://wa.me/" + clean + "?text=" + strings.ReplaceAll(url.QueryEscape(msg), "+", "%20")
}
