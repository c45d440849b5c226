package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"feedesk/internal/cache"
	"feedesk/internal/core"
	"feedesk/internal/ledger"
	applog "feedesk/internal/log"
	"feedesk/internal/normalize"
	"feedesk/internal/notify"
)

// Journal receives every state transition of a mutation.
type Journal interface {
	Record(ctx context.Context, t core.Transition) error
}

// ReminderPublisher forwards a reminder offer to an outside channel.
type ReminderPublisher interface {
	PublishReminder(ctx context.Context, r core.Reminder) error
}

// Coordinator runs mutations against the ledger and keeps the cache in
// step with it: a mutation is submitted first, and only once the ledger
// has acknowledged it are students and stats reloaded.
type Coordinator struct {
	ledger    ledger.Ledger
	cache     *cache.Ledger
	refresher *Refresher
	history   *History
	sink      notify.Sink
	journal   Journal
	reminders ReminderPublisher
	logger    *applog.Logger
	now       func() time.Time
}

type CoordinatorOption func(*Coordinator)

func WithJournal(j Journal) CoordinatorOption {
	return func(c *Coordinator) { c.journal = j }
}

func WithReminderPublisher(p ReminderPublisher) CoordinatorOption {
	return func(c *Coordinator) { c.reminders = p }
}

func WithSink(s notify.Sink) CoordinatorOption {
	return func(c *Coordinator) { c.sink = s }
}

func WithCoordinatorLogger(l *applog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l.WithComponent(applog.ComponentCoordinator) }
}

func NewCoordinator(l ledger.Ledger, c *cache.Ledger, r *Refresher, h *History, opts ...CoordinatorOption) *Coordinator {
	co := &Coordinator{
		ledger:    l,
		cache:     c,
		refresher: r,
		history:   h,
		sink:      notify.Discard,
		logger:    applog.Discard(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(co)
	}
	return co
}

// SaveStudent creates or updates a student from admission form fields.
// Fields are sent under the ledger's column names whatever spelling the
// caller used.
func (c *Coordinator) SaveStudent(ctx context.Context, form map[string]string) (core.Outcome, error) {
	form = normalize.FormRecord(form)
	roll := form["Roll"]
	m := c.begin(ctx, core.ActionSaveStudent, roll)

	for _, field := range []struct{ name, value string }{
		{"roll", roll},
		{"name", form["Name"]},
	} {
		if field.value == "" {
			return core.Outcome{}, m.fail(&core.ValidationError{Field: field.name, Reason: "is required"})
		}
	}

	m.to(core.StateSubmitting, "")
	if err := c.ledger.SaveStudent(ctx, form); err != nil {
		return core.Outcome{}, m.fail(err)
	}
	m.to(core.StateSucceeded, "")

	c.settle(ctx, m)
	c.sink.Notify(ctx, "Student Saved!", notify.KindSuccess)
	return core.Outcome{Action: core.ActionSaveStudent, Roll: roll, Message: "Student Saved!"}, nil
}

// CollectFee records a payment for a student present in the cache. The
// returned reminder carries a local estimate of the remaining balance;
// the cache only ever holds balances reported by the ledger.
func (c *Coordinator) CollectFee(ctx context.Context, req core.FeeRequest) (core.Outcome, error) {
	roll := strings.TrimSpace(req.Roll)
	m := c.begin(ctx, core.ActionCollectFee, roll)

	if roll == "" {
		return core.Outcome{}, m.fail(&core.ValidationError{Field: "roll", Reason: "is required"})
	}
	if !c.cache.Loaded() {
		if _, err := c.refresher.Students(ctx); err != nil {
			return core.Outcome{}, m.fail(err)
		}
	}
	student, ok := c.cache.Lookup(roll)
	if !ok {
		return core.Outcome{}, m.fail(&core.UnknownStudentError{Roll: roll})
	}
	if !req.Amount.IsPositive() {
		return core.Outcome{}, m.fail(&core.InvalidAmountError{Amount: req.Amount.String()})
	}
	mode := strings.TrimSpace(req.Mode)
	if mode == "" {
		mode = core.DefaultPaymentMode
	}

	payload := ledger.FeePayload{
		Roll:    student.Roll,
		Amount:  req.Amount.String(),
		Mode:    mode,
		Remarks: req.Remarks,
		Name:    student.Name,
		Class:   student.Class,
	}

	m.to(core.StateSubmitting, payload.Amount)
	if err := c.ledger.CollectFee(ctx, payload); err != nil {
		return core.Outcome{}, m.fail(err)
	}
	m.to(core.StateSucceeded, payload.Amount)

	estimate := student.Balance.Sub(req.Amount)
	if c.history != nil {
		c.history.Invalidate(student.Roll)
	}
	c.settle(ctx, m)

	c.logger.InfoContext(ctx, "Fee collected",
		applog.NewFields().WithFee(student.Roll, payload.Amount, mode).ToSlice()...)
	c.sink.Notify(ctx, "Payment Recorded!", notify.KindSuccess)

	out := core.Outcome{Action: core.ActionCollectFee, Roll: student.Roll, Message: "Payment Recorded!"}
	if strings.TrimSpace(student.Phone) != "" {
		out.Reminder = &core.Reminder{
			Phone:        student.Phone,
			Name:         student.Name,
			EstimatedDue: estimate,
			Link:         core.BuildReminderLink(student.Phone, student.Name, estimate),
		}
		if c.reminders != nil {
			if err := c.reminders.PublishReminder(ctx, *out.Reminder); err != nil {
				c.logger.WarnContext(ctx, "Failed to publish reminder", applog.FieldRoll, student.Roll, "error", err)
			}
		}
	}
	return out, nil
}

// Refresh reloads students and stats on demand.
func (c *Coordinator) Refresh(ctx context.Context) error {
	return c.refresher.AfterMutation(ctx)
}

// settle reloads the cache after an acknowledged mutation. A failed reload
// does not undo the mutation; it is surfaced as a warning.
func (c *Coordinator) settle(ctx context.Context, m *mutation) {
	m.to(core.StateRefreshing, "")
	if err := c.refresher.AfterMutation(ctx); err != nil {
		c.logger.WarnContext(ctx, "Refresh after mutation failed",
			applog.FieldAction, m.action, applog.FieldRoll, m.roll, "error", err)
		c.sink.Notify(ctx, fmt.Sprintf("Saved, but refresh failed: %v", err), notify.KindWarning)
		m.to(core.StateSettled, err.Error())
	} else {
		m.to(core.StateSettled, "")
	}
	m.to(core.StateIdle, "")
}

type mutation struct {
	c      *Coordinator
	ctx    context.Context
	action string
	roll   string
	state  core.MutationState
}

func (c *Coordinator) begin(ctx context.Context, action, roll string) *mutation {
	return &mutation{c: c, ctx: ctx, action: action, roll: roll, state: core.StateIdle}
}

func (m *mutation) to(state core.MutationState, detail string) {
	if !core.CanTransition(m.state, state) {
		m.c.logger.ErrorContext(m.ctx, "Illegal mutation transition",
			applog.FieldAction, m.action, "from", string(m.state), "to", string(state))
		return
	}
	m.state = state
	if m.c.journal == nil {
		return
	}
	t := core.Transition{Action: m.action, Roll: m.roll, State: state, Detail: detail, At: m.c.now()}
	if err := m.c.journal.Record(m.ctx, t); err != nil {
		m.c.logger.WarnContext(m.ctx, "Failed to journal transition",
			applog.FieldAction, m.action, applog.FieldState, string(state), "error", err)
	}
}

func (m *mutation) fail(err error) error {
	m.to(core.StateFailed, err.Error())
	m.to(core.StateIdle, "")
	m.c.logger.WarnContext(m.ctx, "Mutation failed",
		applog.NewFields().WithAction(m.action).WithError(err).ToSlice()...)
	m.c.sink.Notify(m.ctx, "Error: "+err.Error(), notify.KindError)
	return err
}
