package http

import (
	"net/http"
	"time"

	"feedesk/internal/cache"
	"feedesk/internal/core"
	applog "feedesk/internal/log"
	"feedesk/internal/notify"

	"github.com/shopspring/decimal"
)

type studentView struct {
	Roll        string          `json:"roll"`
	Name        string          `json:"name"`
	Class       string          `json:"class"`
	FatherName  string          `json:"fatherName,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	TuitionFee  decimal.Decimal `json:"tuitionFee"`
	VanFee      decimal.Decimal `json:"vanFee"`
	OtherFee    decimal.Decimal `json:"otherFee"`
	PrevBalance decimal.Decimal `json:"prevBalance"`
	Balance     decimal.Decimal `json:"balance"`
	BalanceText string          `json:"balanceText"`
	HasDues     bool            `json:"hasDues"`
	ReminderURL string          `json:"reminderUrl,omitempty"`
}

type transactionView struct {
	Date       time.Time       `json:"date"`
	Roll       string          `json:"roll"`
	Name       string          `json:"name"`
	Class      string          `json:"class"`
	Amount     decimal.Decimal `json:"amount"`
	AmountText string          `json:"amountText"`
	Mode       string          `json:"mode"`
	Remarks    string          `json:"remarks,omitempty"`
}

type statsView struct {
	TotalStudents  int             `json:"totalStudents"`
	TotalCollected decimal.Decimal `json:"totalCollected"`
	TotalPending   decimal.Decimal `json:"totalPending"`
	NetCash        decimal.Decimal `json:"netCash"`
	CollectedText  string          `json:"collectedText"`
	PendingText    string          `json:"pendingText"`
}

type outcomeView struct {
	Action   string        `json:"action"`
	Roll     string        `json:"roll"`
	Message  string        `json:"message"`
	Reminder *reminderView `json:"reminder,omitempty"`
}

type reminderView struct {
	Phone        string          `json:"phone"`
	Name         string          `json:"name"`
	EstimatedDue decimal.Decimal `json:"estimatedDue"`
	Link         string          `json:"link"`
}

type transitionView struct {
	Action string    `json:"action"`
	Roll   string    `json:"roll"`
	State  string    `json:"state"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

func newStudentView(st core.Student) studentView {
	v := studentView{
		Roll:        st.Roll,
		Name:        st.Name,
		Class:       st.Class,
		FatherName:  st.FatherName,
		Phone:       st.Phone,
		TuitionFee:  st.TuitionFee,
		VanFee:      st.VanFee,
		OtherFee:    st.OtherFee,
		PrevBalance: st.PrevBalance,
		Balance:     st.Balance,
		BalanceText: core.FormatINR(st.Balance),
		HasDues:     st.HasDues(),
	}
	if link := core.BuildReminderLink(st.Phone, st.Name, st.Balance); link != core.NoLink && st.HasDues() {
		v.ReminderURL = link
	}
	return v
}

func newStatsView(st core.DashboardStats) statsView {
	return statsView{
		TotalStudents:  st.TotalStudents,
		TotalCollected: st.TotalCollected,
		TotalPending:   st.TotalPending,
		NetCash:        st.NetCash,
		CollectedText:  core.FormatINR(st.TotalCollected),
		PendingText:    core.FormatINR(st.TotalPending),
	}
}

func newOutcomeView(o core.Outcome) outcomeView {
	v := outcomeView{Action: o.Action, Roll: o.Roll, Message: o.Message}
	if r := o.Reminder; r != nil {
		v.Reminder = &reminderView{Phone: r.Phone, Name: r.Name, EstimatedDue: r.EstimatedDue, Link: r.Link}
	}
	return v
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the student register has been loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.cache.Loaded() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// ensureLoaded performs the first student load for a cold cache.
func (s *Server) ensureLoaded(r *http.Request) error {
	if s.cache.Loaded() {
		return nil
	}
	_, err := s.refresher.Students(r.Context())
	return err
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	if err := s.ensureLoaded(r); err != nil {
		s.logger.ErrorContext(r.Context(), "Student load failed", "error", err)
		FromError(err).Write(w)
		return
	}
	q := r.URL.Query()
	students := s.cache.Filter(cache.All(
		cache.ByNameOrRoll(sanitizeInput(q.Get("q"))),
		cache.ByClass(sanitizeInput(q.Get("class"))),
	))

	views := make([]studentView, 0, len(students))
	for _, st := range students {
		views = append(views, newStudentView(st))
	}
	NewJSONResponse().Data(views).Write(w)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	if err := s.ensureLoaded(r); err != nil {
		FromError(err).Write(w)
		return
	}
	roll := r.PathValue("roll")
	st, ok := s.cache.Lookup(roll)
	if !ok {
		FromError(&core.UnknownStudentError{Roll: roll}).Write(w)
		return
	}
	NewJSONResponse().Data(newStudentView(st)).Write(w)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	roll := r.PathValue("roll")
	txs, err := s.history.ForStudent(r.Context(), roll)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "History load failed", applog.FieldRoll, roll, "error", err)
		FromError(err).Write(w)
		return
	}
	views := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, transactionView{
			Date:       tx.Date,
			Roll:       tx.Roll,
			Name:       tx.Name,
			Class:      tx.Class,
			Amount:     tx.Amount,
			AmountText: core.FormatINR(tx.Amount),
			Mode:       tx.Mode,
			Remarks:    tx.Remarks,
		})
	}
	NewJSONResponse().Data(views).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, ok := s.cache.Stats()
	if !ok || r.URL.Query().Get("fresh") == "1" {
		var err error
		stats, err = s.refresher.Stats(r.Context())
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Stats load failed", "error", err)
			FromError(err).Write(w)
			return
		}
	}
	NewJSONResponse().Data(newStatsView(stats)).Write(w)
}

func (s *Server) handleSaveStudent(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}
	out, err := s.coord.SaveStudent(r.Context(), p.Values())
	if err != nil {
		FromError(err).Write(w)
		return
	}
	s.structured.LogMutation(r.Context(), out.Action, out.Roll)
	NewJSONResponse().
		Data(newOutcomeView(out)).
		Notify(notify.KindSuccess, out.Message).
		Write(w)
}

func (s *Server) handleCollectFee(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}
	req, err := p.FeeRequest()
	if err != nil {
		FromError(err).Write(w)
		return
	}
	out, err := s.coord.CollectFee(r.Context(), req)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	s.structured.LogMutation(r.Context(), out.Action, out.Roll)
	NewJSONResponse().
		Data(newOutcomeView(out)).
		Notify(notify.KindSuccess, out.Message).
		Write(w)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.Refresh(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "Manual refresh failed", "error", err)
		FromError(err).Write(w)
		return
	}
	snap := s.cache.Snapshot()
	NewJSONResponse().
		Data(map[string]any{"students": len(snap.Students), "generation": uint64(snap.Generation)}).
		Notify(notify.KindInfo, "Data refreshed").
		Write(w)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		NotFoundError("journal disabled").Write(w)
		return
	}
	entries, err := s.journal.Recent(r.Context(), parseLimit(r.URL.Query(), 50, 500))
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Journal read failed", "error", err)
		ErrorResponse(http.StatusInternalServerError, "journal unavailable").Write(w)
		return
	}
	views := make([]transitionView, 0, len(entries))
	for _, e := range entries {
		views = append(views, transitionView{Action: e.Action, Roll: e.Roll, State: string(e.State), Detail: e.Detail, At: e.At})
	}
	NewJSONResponse().Data(views).Write(w)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if s.notices == nil {
		NewJSONResponse().Data([]notification{}).Write(w)
		return
	}
	msgs := s.notices.Messages()
	views := make([]notification, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, notification{Type: string(m.Kind), Message: m.Text})
	}
	NewJSONResponse().Data(views).Write(w)
}
