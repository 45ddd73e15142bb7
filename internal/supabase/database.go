package supabase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"op-pipeline-backend/internal/coerce"
	"op-pipeline-backend/internal/models"
	"op-pipeline-backend/internal/repository"
)

const jobColumns = `id, order_number, client, product, quantity, due_date, issue_date, order_type,
	current_stage, stage_history, completed_at, source_document_ref, document_name,
	created_by, created_at, updated_at`

// DatabaseClient is the Postgres job store. due_date is a DATE column; the
// display form used by the API is converted on the way in and out.
type DatabaseClient struct {
	db     *sql.DB
	locale coerce.Locale
}

func NewDatabaseClient(connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db, locale: coerce.Default}, nil
}

func (d *DatabaseClient) Create(ctx context.Context, job *models.Job) error {
	history, err := encodeHistory(job.StageHistory)
	if err != nil {
		return err
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, job.ID, job.OrderNumber, job.Client, job.Product, job.Quantity,
		coerce.StorageDatePtr(d.locale, job.DueDate), job.IssueDate, string(job.OrderType),
		job.CurrentStage, history, job.CompletedAt, job.SourceDocumentRef, job.DocumentName,
		job.CreatedBy, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (d *DatabaseClient) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := d.scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (d *DatabaseClient) List(ctx context.Context) ([]models.Job, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		job, err := d.scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

func (d *DatabaseClient) Update(ctx context.Context, job *models.Job) error {
	history, err := encodeHistory(job.StageHistory)
	if err != nil {
		return err
	}

	res, err := d.db.ExecContext(ctx, `
		UPDATE jobs
		SET order_number = $2, client = $3, product = $4, quantity = $5, due_date = $6,
			issue_date = $7, order_type = $8, current_stage = $9, stage_history = $10,
			completed_at = $11, source_document_ref = $12, document_name = $13, updated_at = $14
		WHERE id = $1
	`, job.ID, job.OrderNumber, job.Client, job.Product, job.Quantity,
		coerce.StorageDatePtr(d.locale, job.DueDate), job.IssueDate, string(job.OrderType),
		job.CurrentStage, history, job.CompletedAt, job.SourceDocumentRef, job.DocumentName,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return expectOneRow(res)
}

func (d *DatabaseClient) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return expectOneRow(res)
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (d *DatabaseClient) scanJob(row rowScanner) (*models.Job, error) {
	var (
		job       models.Job
		dueDate   sql.NullTime
		orderType string
		history   []byte
	)
	err := row.Scan(
		&job.ID, &job.OrderNumber, &job.Client, &job.Product, &job.Quantity,
		&dueDate, &job.IssueDate, &orderType, &job.CurrentStage, &history,
		&job.CompletedAt, &job.SourceDocumentRef, &job.DocumentName,
		&job.CreatedBy, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.OrderType = models.OrderType(orderType)
	if dueDate.Valid {
		s := d.locale.ToDisplayDate(dueDate.Time.Format(time.DateOnly))
		job.DueDate = &s
	}
	if job.StageHistory, err = decodeHistory(history); err != nil {
		return nil, err
	}
	return &job, nil
}

func encodeHistory(history []models.StageEntry) ([]byte, error) {
	if history == nil {
		history = []models.StageEntry{}
	}
	b, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stage history: %w", err)
	}
	return b, nil
}

func decodeHistory(raw []byte) ([]models.StageEntry, error) {
	if len(raw) == 0 {
		return []models.StageEntry{}, nil
	}
	var history []models.StageEntry
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("failed to decode stage history: %w", err)
	}
	return history, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
