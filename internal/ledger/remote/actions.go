package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"feedesk/internal/core"
	"feedesk/internal/ledger"
	"feedesk/internal/normalize"
)

// Students fetches the full student register. Rows without a roll are
// skipped; a repeated roll keeps its first occurrence.
func (c *Client) Students(ctx context.Context) ([]core.Student, error) {
	records, err := c.records(ctx, core.ActionGetStudents)
	if err != nil {
		return nil, err
	}
	out := make([]core.Student, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		s, err := normalize.Student(rec)
		if err != nil {
			c.logger.WarnContext(ctx, "Skipping student record", "index", i, "error", err)
			continue
		}
		if _, dup := seen[s.Roll]; dup {
			c.logger.WarnContext(ctx, "Duplicate roll in student register", "roll", s.Roll, "index", i)
			continue
		}
		seen[s.Roll] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// Transactions fetches every recorded payment.
func (c *Client) Transactions(ctx context.Context) ([]core.Transaction, error) {
	records, err := c.records(ctx, core.ActionGetTransactions)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(records))
	for _, rec := range records {
		out = append(out, normalize.Transaction(rec))
	}
	return out, nil
}

func (c *Client) DashboardStats(ctx context.Context) (core.DashboardStats, error) {
	raw, err := c.Call(ctx, core.ActionGetDashboardStats, nil)
	if err != nil {
		return core.DashboardStats{}, err
	}
	var rec normalize.Record
	if err := decode(raw, &rec); err != nil {
		return core.DashboardStats{}, &core.TransportError{Action: core.ActionGetDashboardStats, Err: err}
	}
	return normalize.DashboardStats(rec), nil
}

func (c *Client) SaveStudent(ctx context.Context, form map[string]string) error {
	return c.mutate(ctx, core.ActionSaveStudent, form)
}

func (c *Client) CollectFee(ctx context.Context, payload ledger.FeePayload) error {
	return c.mutate(ctx, core.ActionCollectFee, payload)
}

func (c *Client) records(ctx context.Context, action string) ([]normalize.Record, error) {
	raw, err := c.Call(ctx, action, nil)
	if err != nil {
		return nil, err
	}
	var records []normalize.Record
	if err := decode(raw, &records); err != nil {
		return nil, &core.TransportError{Action: action, Err: err}
	}
	return records, nil
}

type ack struct {
	Success bool `json:"success"`
}

func (c *Client) mutate(ctx context.Context, action string, payload any) error {
	if payload == nil {
		return &core.TransportError{Action: action, Err: fmt.Errorf("missing payload")}
	}
	raw, err := c.Call(ctx, action, payload)
	if err != nil {
		return err
	}
	var a ack
	if err := json.Unmarshal(raw, &a); err != nil {
		return &core.TransportError{Action: action, Err: fmt.Errorf("decode acknowledgement: %w", err)}
	}
	if !a.Success {
		return &core.RemoteLedgerError{Action: action, Message: action + " was not acknowledged"}
	}
	return nil
}

// decode keeps numbers as json.Number so amounts reach decimal untouched.
func decode(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("unexpected response shape: %w", err)
	}
	return nil
}
