package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
	"op-pipeline-backend/internal/coerce"
	"op-pipeline-backend/internal/models"
	"op-pipeline-backend/internal/repository"
)

const jobsTable = "jobs"

// jobRow is the PostgREST representation of a job; due_date travels in
// storage format (yyyy-mm-dd).
type jobRow struct {
	ID                uuid.UUID           `json:"id"`
	OrderNumber       string              `json:"order_number"`
	Client            *string             `json:"client"`
	Product           *string             `json:"product"`
	Quantity          *int                `json:"quantity"`
	DueDate           *string             `json:"due_date"`
	IssueDate         *string             `json:"issue_date"`
	OrderType         string              `json:"order_type"`
	CurrentStage      string              `json:"current_stage"`
	StageHistory      []models.StageEntry `json:"stage_history"`
	CompletedAt       *time.Time          `json:"completed_at"`
	SourceDocumentRef *string             `json:"source_document_ref"`
	DocumentName      *string             `json:"document_name"`
	CreatedBy         string              `json:"created_by"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func toRow(l coerce.Locale, job *models.Job) jobRow {
	history := job.StageHistory
	if history == nil {
		history = []models.StageEntry{}
	}
	return jobRow{
		ID:                job.ID,
		OrderNumber:       job.OrderNumber,
		Client:            job.Client,
		Product:           job.Product,
		Quantity:          job.Quantity,
		DueDate:           coerce.StorageDatePtr(l, job.DueDate),
		IssueDate:         job.IssueDate,
		OrderType:         string(job.OrderType),
		CurrentStage:      job.CurrentStage,
		StageHistory:      history,
		CompletedAt:       job.CompletedAt,
		SourceDocumentRef: job.SourceDocumentRef,
		DocumentName:      job.DocumentName,
		CreatedBy:         job.CreatedBy,
		CreatedAt:         job.CreatedAt,
		UpdatedAt:         job.UpdatedAt,
	}
}

func (r jobRow) toJob(l coerce.Locale) models.Job {
	return models.Job{
		ID:                r.ID,
		OrderNumber:       r.OrderNumber,
		Client:            r.Client,
		Product:           r.Product,
		Quantity:          r.Quantity,
		DueDate:           coerce.DisplayDatePtr(l, r.DueDate),
		IssueDate:         r.IssueDate,
		OrderType:         models.OrderType(r.OrderType),
		CurrentStage:      r.CurrentStage,
		StageHistory:      r.StageHistory,
		CompletedAt:       r.CompletedAt,
		SourceDocumentRef: r.SourceDocumentRef,
		DocumentName:      r.DocumentName,
		CreatedBy:         r.CreatedBy,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// RestClient is the job store backed by the Supabase REST API (PostgREST).
// Used when the service has no direct database connection.
type RestClient struct {
	client *Client
	locale coerce.Locale
}

func NewRestClient(client *Client) *RestClient {
	return &RestClient{client: client, locale: coerce.Default}
}

func (r *RestClient) Create(ctx context.Context, job *models.Job) error {
	var rows []jobRow
	_, err := r.client.Supabase.From(jobsTable).
		Insert(toRow(r.locale, job), false, "", "representation", "").
		ExecuteTo(&rows)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *RestClient) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var rows []jobRow
	_, err := r.client.Supabase.From(jobsTable).
		Select("*", "", false).
		Eq("id", id.String()).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	job := rows[0].toJob(r.locale)
	return &job, nil
}

func (r *RestClient) List(ctx context.Context) ([]models.Job, error) {
	var rows []jobRow
	_, err := r.client.Supabase.From(jobsTable).
		Select("*", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs := make([]models.Job, len(rows))
	for i, row := range rows {
		jobs[i] = row.toJob(r.locale)
	}
	return jobs, nil
}

func (r *RestClient) Update(ctx context.Context, job *models.Job) error {
	var rows []jobRow
	_, err := r.client.Supabase.From(jobsTable).
		Update(toRow(r.locale, job), "representation", "").
		Eq("id", job.ID.String()).
		ExecuteTo(&rows)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if len(rows) == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *RestClient) Delete(ctx context.Context, id uuid.UUID) error {
	var rows []jobRow
	_, err := r.client.Supabase.From(jobsTable).
		Delete("representation", "").
		Eq("id", id.String()).
		ExecuteTo(&rows)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if len(rows) == 0 {
		return repository.ErrNotFound
	}
	return nil
}
