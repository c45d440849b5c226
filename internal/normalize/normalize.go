// Package normalize turns backend records into the canonical domain types.
//
// The ledger has changed its column naming across versions ("Roll" vs
// "roll", "Amount Paid" vs "amountPaid"). Every raw shape stops here: the
// rest of the module only sees core types.
package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"feedesk/internal/core"

	"github.com/shopspring/decimal"
)

// Record is a decoded backend object.
type Record map[string]any

// Canonical keys, used when writing records back.
const (
	KeyRoll        = "roll"
	KeyName        = "name"
	KeyClass       = "class"
	KeyFatherName  = "fatherName"
	KeyPhone       = "phone"
	KeyTuitionFee  = "tuitionFee"
	KeyVanFee      = "vanFee"
	KeyOtherFee    = "otherFee"
	KeyPrevBalance = "prevBalance"
	KeyBalance     = "balance"
	KeyDate        = "date"
	KeyAmount      = "amount"
	KeyMode        = "mode"
	KeyRemarks     = "remarks"

	KeyTotalStudents  = "totalStudents"
	KeyTotalCollected = "totalCollected"
	KeyTotalPending   = "totalPending"
	KeyNetCash        = "netCash"
)

// aliases lists, per canonical key, the spellings observed from the backend.
// The canonical key is always tried first.
var aliases = map[string][]string{
	KeyRoll:        {"Roll", "Roll No", "rollNo", "Roll Number"},
	KeyName:        {"Name", "Student Name", "studentName"},
	KeyClass:       {"Class"},
	KeyFatherName:  {"Father Name", "father", "Father"},
	KeyPhone:       {"Phone Number", "Phone", "phoneNumber", "mobile"},
	KeyTuitionFee:  {"Tuition Fee"},
	KeyVanFee:      {"Van Fee"},
	KeyOtherFee:    {"Other Fee"},
	KeyPrevBalance: {"Prev Balance", "Previous Balance"},
	KeyBalance:     {"Balance"},
	KeyDate:        {"Date", "timestamp", "Timestamp"},
	KeyAmount:      {"Amount Paid", "amountPaid", "Amount"},
	KeyMode:        {"Mode", "Payment Mode", "paymentMode"},
	KeyRemarks:     {"Remarks"},
}

// formColumns are the ledger's column names for admission form fields.
var formColumns = map[string]string{
	KeyRoll:        "Roll",
	KeyName:        "Name",
	KeyClass:       "Class",
	KeyFatherName:  "Father Name",
	KeyPhone:       "Phone Number",
	KeyTuitionFee:  "Tuition Fee",
	KeyVanFee:      "Van Fee",
	KeyOtherFee:    "Other Fee",
	KeyPrevBalance: "Prev Balance",
}

// dateLayouts are tried in order for string dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"1/2/2006 15:04:05",
}

// Student normalizes a raw student. Only a missing roll is an error.
func Student(raw Record) (core.Student, error) {
	roll := raw.text(KeyRoll)
	if roll == "" {
		return core.Student{}, &core.MissingFieldError{Field: KeyRoll}
	}
	return core.Student{
		Roll:        roll,
		Name:        raw.text(KeyName),
		Class:       raw.text(KeyClass),
		FatherName:  raw.text(KeyFatherName),
		Phone:       raw.text(KeyPhone),
		TuitionFee:  raw.number(KeyTuitionFee),
		VanFee:      raw.number(KeyVanFee),
		OtherFee:    raw.number(KeyOtherFee),
		PrevBalance: raw.number(KeyPrevBalance),
		Balance:     raw.number(KeyBalance),
	}, nil
}

// Transaction normalizes a raw transaction. It never fails: transactions
// may reference rolls unknown to the client.
func Transaction(raw Record) core.Transaction {
	return core.Transaction{
		Date:    raw.date(KeyDate),
		Roll:    raw.text(KeyRoll),
		Name:    raw.text(KeyName),
		Class:   raw.text(KeyClass),
		Amount:  raw.number(KeyAmount),
		Mode:    raw.text(KeyMode),
		Remarks: raw.text(KeyRemarks),
	}
}

func DashboardStats(raw Record) core.DashboardStats {
	return core.DashboardStats{
		TotalStudents:  int(raw.number(KeyTotalStudents).IntPart()),
		TotalCollected: raw.number(KeyTotalCollected),
		TotalPending:   raw.number(KeyTotalPending),
		NetCash:        raw.number(KeyNetCash),
	}
}

// StudentRecord is the inverse of Student, using canonical keys.
func StudentRecord(s core.Student) Record {
	return Record{
		KeyRoll:        s.Roll,
		KeyName:        s.Name,
		KeyClass:       s.Class,
		KeyFatherName:  s.FatherName,
		KeyPhone:       s.Phone,
		KeyTuitionFee:  s.TuitionFee.String(),
		KeyVanFee:      s.VanFee.String(),
		KeyOtherFee:    s.OtherFee.String(),
		KeyPrevBalance: s.PrevBalance.String(),
		KeyBalance:     s.Balance.String(),
	}
}

func TransactionRecord(t core.Transaction) Record {
	r := Record{
		KeyRoll:    t.Roll,
		KeyName:    t.Name,
		KeyClass:   t.Class,
		KeyAmount:  t.Amount.String(),
		KeyMode:    t.Mode,
		KeyRemarks: t.Remarks,
	}
	if !t.Date.IsZero() {
		r[KeyDate] = t.Date.UTC().Format(time.RFC3339Nano)
	}
	return r
}

// FormRecord renames admission form fields to the ledger's column names,
// whatever spelling they arrived in. Unknown fields pass through. When two
// spellings name the same column, the first non-empty one in key order wins.
func FormRecord(form map[string]string) map[string]string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(form))
	for _, k := range keys {
		v := strings.TrimSpace(form[k])
		col, ok := formColumn(k)
		if !ok {
			out[k] = v
			continue
		}
		if prev, taken := out[col]; taken && (prev != "" || v == "") {
			continue
		}
		out[col] = v
	}
	return out
}

func formColumn(key string) (string, bool) {
	f := fold(key)
	for canonical, col := range formColumns {
		if fold(canonical) == f {
			return col, true
		}
		for _, alias := range aliases[canonical] {
			if fold(alias) == f {
				return col, true
			}
		}
	}
	return "", false
}

// lookup returns the first non-nil value under the canonical key, its
// aliases, or a key matching one of them loosely.
func (r Record) lookup(key string) (any, bool) {
	if v, ok := r[key]; ok && v != nil {
		return v, true
	}
	for _, alias := range aliases[key] {
		if v, ok := r[alias]; ok && v != nil {
			return v, true
		}
	}
	wanted := map[string]struct{}{fold(key): {}}
	for _, alias := range aliases[key] {
		wanted[fold(alias)] = struct{}{}
	}
	for k, v := range r {
		if v == nil {
			continue
		}
		if _, ok := wanted[fold(k)]; ok {
			return v, true
		}
	}
	return nil, false
}

func (r Record) text(key string) string {
	v, ok := r.lookup(key)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func (r Record) number(key string) decimal.Decimal {
	v, ok := r.lookup(key)
	if !ok {
		return decimal.Zero
	}
	var s string
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t)
	case int:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	case json.Number:
		s = t.String()
	case string:
		s = core.CleanNumber(t)
	case decimal.Decimal:
		return t
	default:
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (r Record) date(key string) time.Time {
	v, ok := r.lookup(key)
	if !ok {
		return time.Time{}
	}
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case float64:
		// Epoch milliseconds, as produced by Apps Script Date.getTime().
		return time.UnixMilli(int64(t)).UTC()
	case json.Number:
		if ms, err := t.Int64(); err == nil {
			return time.UnixMilli(ms).UTC()
		}
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC()
			}
		}
	}
	return time.Time{}
}

func fold(k string) string {
	k = strings.ToLower(k)
	k = strings.ReplaceAll(k, " ", "")
	return strings.ReplaceAll(k, "_", "")
}
