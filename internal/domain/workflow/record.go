package workflow

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a workflow run.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusFailed
}

// ErrTerminal is returned when mutating a record that already reached a terminal status.
var ErrTerminal = errors.New("workflow record is terminal")

// Step is the outcome of one worker invocation within a run.
type Step struct {
	Agent      Agent          `json:"agent"`
	Success    bool           `json:"success"`
	Data       map[string]any `json:"data,omitempty"`
	Error      string         `json:"error,omitempty"`
	ErrorType  string         `json:"error_type,omitempty"`
	Attempts   int            `json:"attempts"`
	DurationMS int64          `json:"duration_ms"`
}

// Record aggregates one coordination run. Only the coordinator mutates it and
// it is immutable once its status is terminal.
type Record struct {
	ID                 string     `json:"id"`
	Request            Request    `json:"request"`
	Steps              []Step     `json:"steps"`
	Status             Status     `json:"status"`
	InitialCashBalance *float64   `json:"initial_cash_balance"`
	FinalCashBalance   *float64   `json:"final_cash_balance"`
	CashBalanceChanged bool       `json:"cash_balance_changed"`
	CashBalanceChange  float64    `json:"cash_balance_change"`
	Error              string     `json:"error,omitempty"`
	RejectionReason    string     `json:"rejection_reason,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
}

// NewRecord opens an in-progress record for req.
func NewRecord(id string, req Request, now time.Time) *Record {
	return &Record{
		ID:        id,
		Request:   req,
		Steps:     []Step{},
		Status:    StatusInProgress,
		StartedAt: now,
	}
}

// AppendStep records a step outcome in execution order.
func (r *Record) AppendStep(s Step) error {
	if r.Status.Terminal() {
		return fmt.Errorf("append step %s: %w", s.Agent, ErrTerminal)
	}
	r.Steps = append(r.Steps, s)
	return nil
}

// Complete transitions an in-progress record to completed.
func (r *Record) Complete(now time.Time) error {
	return r.finish(StatusCompleted, now)
}

// Reject transitions an in-progress record to rejected with reason.
func (r *Record) Reject(reason string, now time.Time) error {
	if err := r.finish(StatusRejected, now); err != nil {
		return err
	}
	r.RejectionReason = reason
	return nil
}

// Fail transitions an in-progress record to failed with msg.
func (r *Record) Fail(msg string, now time.Time) error {
	if err := r.finish(StatusFailed, now); err != nil {
		return err
	}
	r.Error = msg
	return nil
}

func (r *Record) finish(to Status, now time.Time) error {
	if r.Status.Terminal() {
		return fmt.Errorf("transition %s -> %s: %w", r.Status, to, ErrTerminal)
	}
	r.Status = to
	r.FinishedAt = &now
	return nil
}

// SetBalances stores the balance readings and derives the change fields.
// A nil reading leaves cash_balance_changed false.
func (r *Record) SetBalances(initial, final *float64) {
	r.InitialCashBalance = initial
	r.FinalCashBalance = final
	if initial == nil || final == nil {
		r.CashBalanceChanged = false
		r.CashBalanceChange = 0
		return
	}
	r.CashBalanceChange = *final - *initial
	r.CashBalanceChanged = *final != *initial
}

// StepFor returns the first step produced by agent, if any.
func (r *Record) StepFor(agent Agent) (Step, bool) {
	for _, s := range r.Steps {
		if s.Agent == agent {
			return s, true
		}
	}
	return Step{}, false
}
