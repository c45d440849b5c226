package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Action names understood by the remote ledger endpoint.
const (
	ActionGetDashboardStats = "getDashboardStats"
	ActionGetStudents       = "getStudents"
	ActionGetTransactions   = "getTransactions"
	ActionSaveStudent       = "saveStudent"
	ActionCollectFee        = "collectFee"
)

// DefaultPaymentMode is used when a fee is collected without a mode.
const DefaultPaymentMode = "Cash"

type (
	// Student is one row of the remote student register. Balance is always
	// the value reported by the ledger at the last sync.
	Student struct {
		Roll        string
		Name        string
		Class       string
		FatherName  string
		Phone       string
		TuitionFee  decimal.Decimal
		VanFee      decimal.Decimal
		OtherFee    decimal.Decimal
		PrevBalance decimal.Decimal
		Balance     decimal.Decimal
	}

	// Transaction is a fee payment recorded by the ledger.
	Transaction struct {
		Date    time.Time
		Roll    string
		Name    string
		Class   string
		Amount  decimal.Decimal
		Mode    string
		Remarks string
	}

	// DashboardStats mirrors the aggregates computed server-side.
	DashboardStats struct {
		TotalStudents  int
		TotalCollected decimal.Decimal
		TotalPending   decimal.Decimal
		NetCash        decimal.Decimal
	}

	// FeeRequest is the input of a fee collection.
	FeeRequest struct {
		Roll    string
		Amount  decimal.Decimal
		Mode    string
		Remarks string
	}

	// Reminder is offered after a successful fee collection when the
	// guardian can be reached. EstimatedDue is a local estimate only.
	Reminder struct {
		Phone        string
		Name         string
		EstimatedDue decimal.Decimal
		Link         string
	}

	// Outcome is the result of a completed mutation.
	Outcome struct {
		Action   string
		Roll     string
		Message  string
		Reminder *Reminder
	}
)

// SameRoll compares two roll identifiers the way the ledger does: numeric
// and string forms of the same roll are equal.
func SameRoll(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == b {
		return true
	}
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	return errA == nil && errB == nil && da.Equal(db)
}

// Equal reports whether two students carry the same values. Decimal fields
// are compared numerically.
func (s Student) Equal(o Student) bool {
	return s.Roll == o.Roll &&
		s.Name == o.Name &&
		s.Class == o.Class &&
		s.FatherName == o.FatherName &&
		s.Phone == o.Phone &&
		s.TuitionFee.Equal(o.TuitionFee) &&
		s.VanFee.Equal(o.VanFee) &&
		s.OtherFee.Equal(o.OtherFee) &&
		s.PrevBalance.Equal(o.PrevBalance) &&
		s.Balance.Equal(o.Balance)
}

// HasDues reports whether the student owes money.
func (s Student) HasDues() bool {
	return s.Balance.IsPositive()
}

// Validate checks the preconditions of a fee collection that can be
// verified without the cache.
func (r FeeRequest) Validate() error {
	if strings.TrimSpace(r.Roll) == "" {
		return &ValidationError{Field: "roll", Reason: "is required"}
	}
	if !r.Amount.IsPositive() {
		return &InvalidAmountError{Amount: r.Amount.String()}
	}
	return nil
}
