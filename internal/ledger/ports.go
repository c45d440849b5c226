package ledger

import (
	"context"

	"feedesk/internal/core"
)

// Ports for the remote ledger service.
type (
	StudentLister interface {
		Students(ctx context.Context) ([]core.Student, error)
	}

	// StatsReader returns the dashboard aggregates computed by the ledger.
	StatsReader interface {
		DashboardStats(ctx context.Context) (core.DashboardStats, error)
	}

	// TransactionLister returns the full transaction collection; the ledger
	// offers no per-student query.
	TransactionLister interface {
		Transactions(ctx context.Context) ([]core.Transaction, error)
	}

	// StudentWriter creates or updates a student from admission form fields.
	StudentWriter interface {
		SaveStudent(ctx context.Context, form map[string]string) error
	}

	// FeeCollector records a payment. The payload already carries the
	// denormalized student name and class.
	FeeCollector interface {
		CollectFee(ctx context.Context, payload FeePayload) error
	}

	// Ledger is everything the coordinator needs from the backend.
	Ledger interface {
		StudentLister
		StatsReader
		TransactionLister
		StudentWriter
		FeeCollector
	}
)

// FeePayload is the collectFee body. Field names follow the ledger's form
// inputs.
type FeePayload struct {
	Roll    string `json:"Roll"`
	Amount  string `json:"Amount"`
	Mode    string `json:"Mode"`
	Remarks string `json:"Remarks,omitempty"`
	Name    string `json:"Name"`
	Class   string `json:"Class"`
}
