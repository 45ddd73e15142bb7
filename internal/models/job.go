package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderType string

const (
	OrderTypeSale    OrderType = "SALE"
	OrderTypeRestock OrderType = "RESTOCK"
)

// Valid reports whether t is one of the known order types.
func (t OrderType) Valid() bool {
	return t == OrderTypeSale || t == OrderTypeRestock
}

// Label is the human-readable name used in reports.
func (t OrderType) Label() string {
	switch t {
	case OrderTypeRestock:
		return "Reposição de Estoque"
	default:
		return "Venda"
	}
}

// StageEntry records when a job entered a stage. Entries are append-only.
type StageEntry struct {
	Stage     string    `json:"stage"`
	EnteredAt time.Time `json:"entered_at"`
}

// Job is a work order (OP) tracked through the production stages.
// DueDate is kept in display format (d/m/yyyy); stores convert it to
// storage format on the way in and back on the way out.
type Job struct {
	ID                uuid.UUID    `json:"id"`
	OrderNumber       string       `json:"order_number"`
	Client            *string      `json:"client"`
	Product           *string      `json:"product"`
	Quantity          *int         `json:"quantity"`
	DueDate           *string      `json:"due_date"`
	IssueDate         *string      `json:"issue_date"`
	OrderType         OrderType    `json:"order_type"`
	CurrentStage      string       `json:"current_stage"`
	StageHistory      []StageEntry `json:"stage_history"`
	CompletedAt       *time.Time   `json:"completed_at"`
	SourceDocumentRef *string      `json:"source_document_ref"`
	DocumentName      *string      `json:"document_name"`
	CreatedBy         string       `json:"created_by"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (j Job) Clone() Job {
	out := j
	out.Client = clonePtr(j.Client)
	out.Product = clonePtr(j.Product)
	out.Quantity = clonePtr(j.Quantity)
	out.DueDate = clonePtr(j.DueDate)
	out.IssueDate = clonePtr(j.IssueDate)
	out.CompletedAt = clonePtr(j.CompletedAt)
	out.SourceDocumentRef = clonePtr(j.SourceDocumentRef)
	out.DocumentName = clonePtr(j.DocumentName)
	if j.StageHistory != nil {
		out.StageHistory = make([]StageEntry, len(j.StageHistory))
		copy(out.StageHistory, j.StageHistory)
	}
	return out
}

// StartedAt is the time the job entered its first stage.
func (j Job) StartedAt() *time.Time {
	if len(j.StageHistory) == 0 {
		return nil
	}
	t := j.StageHistory[0].EnteredAt
	return &t
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ChangeType mirrors the Postgres change kinds emitted by Supabase Realtime.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent is published after every successful write to the job store.
// Job is nil for deletes.
type ChangeEvent struct {
	Type  ChangeType `json:"type"`
	JobID uuid.UUID  `json:"job_id"`
	Job   *Job       `json:"job,omitempty"`
	At    time.Time  `json:"at"`
}
