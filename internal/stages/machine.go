package stages

import (
	"fmt"
	"math"
	"strings"
	"time"

	"op-pipeline-backend/internal/coerce"
	"op-pipeline-backend/internal/models"
)

// Policy decides which transitions are legal.
type Policy struct {
	// AllowArbitraryTransitions lets a job move from any stage to any other,
	// including back out of the terminal stage (rework, mis-click fixes).
	// When false only the next stage or the current one may be requested.
	AllowArbitraryTransitions bool
}

var (
	PermissivePolicy = Policy{AllowArbitraryTransitions: true}
	StrictPolicy     = Policy{AllowArbitraryTransitions: false}
)

// TransitionError describes a rejected transition.
type TransitionError struct {
	From string
	To   string
	Err  error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("stage %q -> %q: %v", e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }

type Machine struct {
	seq    Sequence
	policy Policy
	now    func() time.Time
	dates  coerce.Locale
}

type Option func(*Machine)

func WithPolicy(p Policy) Option {
	return func(m *Machine) { m.policy = p }
}

// WithClock overrides the time source used to stamp history entries.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithLocale sets the locale used to read due dates.
func WithLocale(l coerce.Locale) Option {
	return func(m *Machine) { m.dates = l }
}

func NewMachine(seq Sequence, opts ...Option) (*Machine, error) {
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	m := &Machine{
		seq:    seq,
		policy: PermissivePolicy,
		now:    time.Now,
		dates:  coerce.Default,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Machine) Sequence() Sequence { return m.seq }

func (m *Machine) Policy() Policy { return m.policy }

// Initialize puts a freshly created job into the intake stage with a single
// history entry.
func (m *Machine) Initialize(job *models.Job) {
	now := m.now().UTC()
	job.CurrentStage = m.seq.Intake()
	job.StageHistory = []models.StageEntry{{Stage: job.CurrentStage, EnteredAt: now}}
	job.CompletedAt = nil
}

// CanTransition reports whether from -> to is allowed under the policy.
func (m *Machine) CanTransition(from, to string) error {
	if !m.seq.Contains(to) {
		return &TransitionError{From: from, To: to, Err: ErrUnknownStage}
	}
	if m.policy.AllowArbitraryTransitions || from == to {
		return nil
	}
	if fi := m.seq.Index(from); fi >= 0 && m.seq.Index(to) == fi+1 {
		return nil
	}
	return &TransitionError{From: from, To: to, Err: ErrTransitionNotAllowed}
}

// Apply moves job to target and returns the updated copy. The history gets
// one new entry; CompletedAt is stamped only the first time the terminal
// stage is entered and is never cleared afterwards.
func (m *Machine) Apply(job models.Job, target string) (models.Job, error) {
	target = strings.TrimSpace(target)
	if err := m.CanTransition(job.CurrentStage, target); err != nil {
		return job, err
	}

	now := m.now().UTC()
	out := job.Clone()
	out.CurrentStage = target
	out.StageHistory = append(out.StageHistory, models.StageEntry{Stage: target, EnteredAt: now})
	if m.seq.IsTerminal(target) && out.CompletedAt == nil {
		out.CompletedAt = &now
	}
	return out, nil
}

// ElapsedHours is the time between the first entry into the measured stage
// and completion, in hours with one decimal. Nil when the job never reached
// the measured stage or is not completed.
func (m *Machine) ElapsedHours(job models.Job) *float64 {
	if job.CompletedAt == nil {
		return nil
	}
	from := m.seq.MeasureFrom
	if from == "" {
		from = m.seq.Intake()
	}
	for _, entry := range job.StageHistory {
		if entry.Stage != from {
			continue
		}
		d := job.CompletedAt.Sub(entry.EnteredAt)
		if d < 0 {
			return nil
		}
		h := math.Round(d.Hours()*10) / 10
		return &h
	}
	return nil
}

// IsOverdue is true for unfinished jobs whose due date is before now's
// calendar day. Time of day is ignored.
func (m *Machine) IsOverdue(job models.Job, now time.Time) bool {
	if m.seq.IsTerminal(job.CurrentStage) || job.DueDate == nil {
		return false
	}
	due, ok := m.dates.ParseDate(*job.DueDate, now.Location())
	if !ok {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return due.Before(today)
}
