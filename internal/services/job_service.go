package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"op-pipeline-backend/internal/coerce"
	"op-pipeline-backend/internal/extraction"
	"op-pipeline-backend/internal/logging"
	"op-pipeline-backend/internal/models"
	"op-pipeline-backend/internal/pdftext"
	"op-pipeline-backend/internal/repository"
	"op-pipeline-backend/internal/stages"
	"op-pipeline-backend/internal/supabase"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrStorage      = errors.New("document storage failed")
	// ErrNoDocument means the job has no stored source document.
	ErrNoDocument = errors.New("job has no stored document")
)

// DocumentStorage keeps the uploaded OP documents.
type DocumentStorage interface {
	UploadDocument(ctx context.Context, userID string, jobID uuid.UUID, filename string, data []byte) (string, string, error)
	DownloadDocument(ctx context.Context, storagePath string) ([]byte, error)
	DeleteDocument(ctx context.Context, storagePath string) error
	DeleteJobDocuments(ctx context.Context, userID string, jobID uuid.UUID) error
}

type View string

const (
	ViewAll        View = "ALL"
	ViewProduction View = "PRODUCTION"
	ViewFinished   View = "FINISHED"
	ViewAlerts     View = "ALERTS"
)

// ParseView accepts the view names case-insensitively; empty means ALL.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToUpper(strings.TrimSpace(s))); v {
	case "":
		return ViewAll, nil
	case ViewAll, ViewProduction, ViewFinished, ViewAlerts:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown view %q", ErrInvalidInput, s)
	}
}

type ListFilter struct {
	View      View
	Stage     string
	OrderType models.OrderType
	Search    string
}

type IngestInput struct {
	UserID   string
	Filename string
	Data     []byte
}

type IngestResult struct {
	Job        *models.Job        `json:"job"`
	Extraction *extraction.Result `json:"extraction"`
}

type JobService struct {
	repo      *repository.Repository
	machine   *stages.Machine
	extractor *extraction.Extractor
	reader    pdftext.TextReader
	storage   DocumentStorage
	locale    coerce.Locale
	log       *logging.Logger
	now       func() time.Time
}

type JobServiceOption func(*JobService)

// WithDocumentStorage keeps uploaded documents; without it only the
// extracted fields are kept.
func WithDocumentStorage(ds DocumentStorage) JobServiceOption {
	return func(s *JobService) { s.storage = ds }
}

func WithClock(now func() time.Time) JobServiceOption {
	return func(s *JobService) { s.now = now }
}

func WithExtractor(e *extraction.Extractor) JobServiceOption {
	return func(s *JobService) { s.extractor = e }
}

func NewJobService(
	repo *repository.Repository,
	machine *stages.Machine,
	reader pdftext.TextReader,
	log *logging.Logger,
	opts ...JobServiceOption,
) *JobService {
	s := &JobService{
		repo:      repo,
		machine:   machine,
		extractor: extraction.New(),
		reader:    reader,
		locale:    coerce.Default,
		log:       log.With("component", "jobs"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *JobService) Machine() *stages.Machine { return s.machine }

// IngestDocument turns an uploaded OP document into a new job in the intake
// stage. Fields the extractor cannot find are left empty for manual entry.
func (s *JobService) IngestDocument(ctx context.Context, in IngestInput) (*IngestResult, error) {
	log := s.log.With("filename", in.Filename, "bytes", len(in.Data))
	log.Info("ingest.start")

	text, err := s.reader.ExtractText(ctx, in.Data)
	if err != nil {
		log.Warn("ingest.read_failed", "err", err)
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	fields, err := s.extractor.Extract(text)
	if err != nil {
		log.Warn("ingest.extract_failed", "err", err)
		return nil, err
	}

	job := s.jobFromFields(fields)
	job.ID = uuid.New()
	job.CreatedBy = in.UserID
	if in.Filename != "" {
		name := in.Filename
		job.DocumentName = &name
	}

	var storedPath string
	if s.storage != nil {
		path, url, err := s.storage.UploadDocument(ctx, in.UserID, job.ID, in.Filename, in.Data)
		if err != nil {
			log.Error("ingest.store_failed", "job_id", job.ID, "err", err)
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		storedPath = path
		job.SourceDocumentRef = &url
	}

	s.machine.Initialize(&job)
	if err := s.repo.Create(ctx, &job); err != nil {
		// no job points at the uploaded document; remove it
		if storedPath != "" {
			if cerr := s.storage.DeleteDocument(ctx, storedPath); cerr != nil {
				log.Warn("ingest.rollback_failed", "job_id", job.ID, "path", storedPath, "err", cerr)
			}
		}
		log.Error("ingest.create_failed", "job_id", job.ID, "err", err)
		return nil, err
	}

	log.Info("ingest.ok",
		"job_id", job.ID,
		"order_number", job.OrderNumber,
		"fields_found", len(fields.Rules),
	)
	return &IngestResult{Job: &job, Extraction: fields}, nil
}

func (s *JobService) jobFromFields(fields *extraction.Result) models.Job {
	job := models.Job{
		Client:    fields.Client,
		Product:   fields.Product,
		Quantity:  fields.Quantity,
		OrderType: models.OrderTypeSale,
	}
	if fields.OrderNumber != nil {
		job.OrderNumber = *fields.OrderNumber
	} else {
		job.OrderNumber = s.fallbackOrderNumber()
	}
	if fields.DueDate != nil {
		job.DueDate = s.normalizeDate(*fields.DueDate)
	}
	if fields.IssueDate != nil {
		if d := s.normalizeDate(*fields.IssueDate); d != nil {
			job.IssueDate = d
		} else {
			raw := *fields.IssueDate
			job.IssueDate = &raw
		}
	}
	return job
}

func (s *JobService) fallbackOrderNumber() string {
	return fmt.Sprintf("OP-%d", s.now().UnixMilli())
}

// normalizeDate accepts display, storage or document-printed dates and
// returns the display form, or nil when the input is not a date.
func (s *JobService) normalizeDate(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if storage, ok := s.locale.ToStorageDate(raw); ok {
		d := s.locale.ToDisplayDate(storage)
		return &d
	}
	if d, ok := s.locale.NormalizeDocumentDate(raw); ok {
		return &d
	}
	return nil
}

// CreateJob registers a work order typed in by hand.
func (s *JobService) CreateJob(ctx context.Context, userID string, req models.CreateJobRequest) (*models.Job, error) {
	if req.Quantity != nil && *req.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalidInput)
	}
	orderType := req.OrderType
	if orderType == "" {
		orderType = models.OrderTypeSale
	}
	if !orderType.Valid() {
		return nil, fmt.Errorf("%w: unknown order type %q", ErrInvalidInput, req.OrderType)
	}

	job := models.Job{
		ID:          uuid.New(),
		OrderNumber: strings.TrimSpace(req.OrderNumber),
		Client:      trimmed(req.Client),
		Product:     trimmed(req.Product),
		Quantity:    req.Quantity,
		OrderType:   orderType,
		CreatedBy:   userID,
	}
	if job.OrderNumber == "" {
		job.OrderNumber = s.fallbackOrderNumber()
	}
	if req.DueDate != nil {
		job.DueDate = s.normalizeDate(*req.DueDate)
	}
	if req.IssueDate != nil {
		job.IssueDate = s.normalizeDate(*req.IssueDate)
	}

	s.machine.Initialize(&job)
	if err := s.repo.Create(ctx, &job); err != nil {
		return nil, err
	}

	s.log.Info("job.created", "job_id", job.ID, "order_number", job.OrderNumber)
	return &job, nil
}

// UpdateJob applies field edits. Stage and history are only changed through
// TransitionJob.
func (s *JobService) UpdateJob(ctx context.Context, id uuid.UUID, req models.UpdateJobRequest) (*models.Job, error) {
	if req.OrderNumber.Set && (!req.OrderNumber.Valid || strings.TrimSpace(req.OrderNumber.Value) == "") {
		return nil, fmt.Errorf("%w: order_number cannot be empty", ErrInvalidInput)
	}
	if req.Quantity.Valid && req.Quantity.Value < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalidInput)
	}
	if req.OrderType.Set && (!req.OrderType.Valid || !req.OrderType.Value.Valid()) {
		return nil, fmt.Errorf("%w: unknown order type %q", ErrInvalidInput, req.OrderType.Value)
	}

	job, err := s.repo.Mutate(ctx, id, func(job *models.Job) error {
		if req.OrderNumber.Set {
			job.OrderNumber = strings.TrimSpace(req.OrderNumber.Value)
		}
		if req.Client.Set {
			job.Client = trimmed(req.Client.Ptr())
		}
		if req.Product.Set {
			job.Product = trimmed(req.Product.Ptr())
		}
		if req.Quantity.Set {
			job.Quantity = req.Quantity.Ptr()
		}
		if req.DueDate.Set {
			job.DueDate = nil
			if req.DueDate.Valid {
				job.DueDate = s.normalizeDate(req.DueDate.Value)
			}
		}
		if req.IssueDate.Set {
			job.IssueDate = nil
			if req.IssueDate.Valid {
				job.IssueDate = s.normalizeDate(req.IssueDate.Value)
			}
		}
		if req.OrderType.Set {
			job.OrderType = req.OrderType.Value
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("job.updated", "job_id", id)
	return job, nil
}

// TransitionJob moves a job to another stage under the configured policy.
func (s *JobService) TransitionJob(ctx context.Context, id uuid.UUID, stage string) (*models.Job, error) {
	var from string
	job, err := s.repo.Mutate(ctx, id, func(job *models.Job) error {
		from = job.CurrentStage
		next, err := s.machine.Apply(*job, stage)
		if err != nil {
			return err
		}
		*job = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("stage.changed",
		"job_id", id,
		"from", from,
		"to", job.CurrentStage,
		"completed", job.CompletedAt != nil,
	)
	return job, nil
}

func (s *JobService) DeleteJob(ctx context.Context, id uuid.UUID) error {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if s.storage != nil && job.SourceDocumentRef != nil {
		if err := s.storage.DeleteJobDocuments(ctx, job.CreatedBy, id); err != nil {
			s.log.Warn("job.document_cleanup_failed", "job_id", id, "err", err)
		}
	}

	s.log.Info("job.deleted", "job_id", id)
	return nil
}

func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return s.repo.Get(ctx, id)
}

// JobDocument returns the stored source document of a job and its file name.
func (s *JobService) JobDocument(ctx context.Context, id uuid.UUID) (string, []byte, error) {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if s.storage == nil || job.SourceDocumentRef == nil {
		return "", nil, ErrNoDocument
	}

	name := deref(job.DocumentName)
	data, err := s.storage.DownloadDocument(ctx, supabase.DocumentPath(job.CreatedBy, job.ID, name))
	if err != nil {
		s.log.Error("job.document_download_failed", "job_id", id, "err", err)
		return "", nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if name == "" {
		name = "document.pdf"
	}
	return name, data, nil
}

// ListJobs returns jobs newest first, narrowed by view, stage, order type and
// a case-insensitive search over order number, client and product.
func (s *JobService) ListJobs(ctx context.Context, f ListFilter) ([]models.Job, error) {
	if f.Stage != "" && !s.machine.Sequence().Contains(f.Stage) {
		return nil, fmt.Errorf("%w: %q", stages.ErrUnknownStage, f.Stage)
	}
	if f.OrderType != "" && !f.OrderType.Valid() {
		return nil, fmt.Errorf("%w: unknown order type %q", ErrInvalidInput, f.OrderType)
	}

	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	seq := s.machine.Sequence()
	query := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]models.Job, 0, len(all))
	for _, job := range all {
		switch f.View {
		case ViewProduction:
			if seq.IsTerminal(job.CurrentStage) {
				continue
			}
		case ViewFinished:
			if !seq.IsTerminal(job.CurrentStage) {
				continue
			}
		case ViewAlerts:
			if !s.machine.IsOverdue(job, now) {
				continue
			}
		}
		if f.Stage != "" && job.CurrentStage != f.Stage {
			continue
		}
		if f.OrderType != "" && job.OrderType != f.OrderType {
			continue
		}
		if query != "" && !matchesSearch(job, query) {
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

func matchesSearch(job models.Job, query string) bool {
	for _, field := range []string{job.OrderNumber, deref(job.Client), deref(job.Product)} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// FinishedJobs lists terminal jobs with their elapsed production hours.
func (s *JobService) FinishedJobs(ctx context.Context) ([]models.FinishedJob, error) {
	jobs, err := s.ListJobs(ctx, ListFilter{View: ViewFinished})
	if err != nil {
		return nil, err
	}

	out := make([]models.FinishedJob, len(jobs))
	for i, job := range jobs {
		out[i] = models.FinishedJob{Job: job, ElapsedHours: s.machine.ElapsedHours(job)}
	}
	return out, nil
}

// Calendar groups jobs by due date for one month. Every day of the month is
// present, in order, even when nothing is due.
func (s *JobService) Calendar(ctx context.Context, year int, month time.Month) (*models.CalendarResponse, error) {
	if month < time.January || month > time.December || year < 1 || year > 9999 {
		return nil, fmt.Errorf("%w: invalid month %d-%02d", ErrInvalidInput, year, month)
	}

	jobs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	loc := s.now().Location()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	days := first.AddDate(0, 1, -1).Day()

	byDay := make(map[int][]models.Job)
	total := 0
	for _, job := range jobs {
		if job.DueDate == nil {
			continue
		}
		due, ok := s.locale.ParseDate(*job.DueDate, loc)
		if !ok || due.Year() != year || due.Month() != month {
			continue
		}
		byDay[due.Day()] = append(byDay[due.Day()], job)
		total++
	}

	resp := &models.CalendarResponse{Year: year, Month: month, Days: make([]models.CalendarDay, days), Total: total}
	for d := 1; d <= days; d++ {
		dayJobs := byDay[d]
		sort.SliceStable(dayJobs, func(i, j int) bool { return dayJobs[i].OrderNumber < dayJobs[j].OrderNumber })
		if dayJobs == nil {
			dayJobs = []models.Job{}
		}
		resp.Days[d-1] = models.CalendarDay{
			Date: first.AddDate(0, 0, d-1).Format(time.DateOnly),
			Jobs: dayJobs,
		}
	}
	return resp, nil
}

// Summary counts jobs per stage plus the dashboard totals.
func (s *JobService) Summary(ctx context.Context) (*models.Summary, error) {
	jobs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	seq := s.machine.Sequence()
	now := s.now()
	sum := &models.Summary{Total: len(jobs), ByStage: make(map[string]int, len(seq.Stages))}
	for _, stage := range seq.Stages {
		sum.ByStage[stage] = 0
	}
	for _, job := range jobs {
		sum.ByStage[job.CurrentStage]++
		if job.CurrentStage == seq.Intake() {
			sum.NewOrders++
		}
		if seq.IsTerminal(job.CurrentStage) {
			sum.Finished++
		}
		if s.machine.IsOverdue(job, now) {
			sum.Overdue++
		}
	}
	return sum, nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
