package handlers_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"op-pipeline-backend/internal/config"
	"op-pipeline-backend/internal/handlers"
	"op-pipeline-backend/internal/logging"
	"op-pipeline-backend/internal/models"
	"op-pipeline-backend/internal/pdftext"
	"op-pipeline-backend/internal/repository"
	"op-pipeline-backend/internal/services"
	"op-pipeline-backend/internal/stages"
	"op-pipeline-backend/internal/supabase"
)

const sampleOP = `ORDEM DE PRODUÇÃO Nº 7788
CLIENTE: Metalúrgica Horizonte
PRODUTO: Chaveiro Abridor
QUANTIDADE: 250
DATA DE ENTREGA: 05/04/2025
`

type testServer struct {
	router *gin.Engine
	svc    *services.JobService
	events *supabase.RealtimeClient
}

func newTestServer(t *testing.T, reader pdftext.TextReader, opts ...services.JobServiceOption) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	machine, err := stages.NewMachine(stages.DefaultSequence())
	require.NoError(t, err)

	events := supabase.NewRealtimeClient()
	t.Cleanup(events.Close)
	repo := repository.New(repository.NewMemoryStore(), events)
	svc := services.NewJobService(repo, machine, reader, logging.Nop(), opts...)

	router := gin.New()
	handlers.RegisterRoutes(router, &config.Config{}, handlers.Handlers{
		Jobs:   handlers.NewJobsHandler(svc),
		Upload: handlers.NewUploadHandler(svc, 1<<20),
		Export: handlers.NewExportHandler(services.NewExportService(svc, logging.Nop())),
		Events: handlers.NewEventsHandler(repo, time.Hour),
		Stages: handlers.NewStagesHandler(machine),
	})
	return &testServer{router: router, svc: svc, events: events}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *testServer) createJob(t *testing.T, body map[string]any) models.Job {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/jobs", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Job](t, w)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, pdftext.Static(""))

	for _, path := range []string{"/health", "/api/v1/health"} {
		w := s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", decode[models.HealthResponse](t, w).Status)
	}
}

func TestStages(t *testing.T) {
	s := newTestServer(t, pdftext.Static(""))

	w := s.do(t, http.MethodGet, "/api/v1/stages", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[models.StagesResponse](t, w)
	assert.Equal(t, stages.DefaultSequence().Stages, resp.Stages)
	assert.Equal(t, stages.NewOrder, resp.Intake)
	assert.Equal(t, stages.Finished, resp.Terminal)
	assert.True(t, resp.AllowArbitraryTransitions)
}

func TestJobLifecycle(t *testing.T) {
	s := newTestServer(t, pdftext.Static(""))

	job := s.createJob(t, map[string]any{
		"order_number": "5001",
		"client":       "Loja Central",
		"quantity":     40,
		"due_date":     "2025-04-02",
	})
	assert.Equal(t, stages.NewOrder, job.CurrentStage)
	assert.Equal(t, "2/4/2025", *job.DueDate)

	w := s.do(t, http.MethodGet, "/api/v1/jobs/"+job.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5001", decode[models.Job](t, w).OrderNumber)

	w = s.do(t, http.MethodPut, "/api/v1/jobs/"+job.ID.String(), map[string]any{"client": nil, "quantity": 45})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Job](t, w)
	assert.Nil(t, updated.Client)
	assert.Equal(t, 45, *updated.Quantity)
	assert.Equal(t, "2/4/2025", *updated.DueDate)

	w = s.do(t, http.MethodPut, "/api/v1/jobs/"+job.ID.String()+"/stage", map[string]string{"stage": stages.Finished})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	finished := decode[models.Job](t, w)
	assert.Equal(t, stages.Finished, finished.CurrentStage)
	assert.NotNil(t, finished.CompletedAt)
	assert.Len(t, finished.StageHistory, 2)

	w = s.do(t, http.MethodGet, "/api/v1/jobs/finished", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[models.FinishedListResponse](t, w).Count)

	w = s.do(t, http.MethodDelete, "/api/v1/jobs/"+job.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/jobs/"+job.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobErrors(t *testing.T) {
	s := newTestServer(t, pdftext.Static(""))
	job := s.createJob(t, map[string]any{"order_number": "1"})
	id := job.ID.String()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"bad id", http.MethodGet, "/api/v1/jobs/not-a-uuid", nil, http.StatusBadRequest},
		{"missing job", http.MethodGet, "/api/v1/jobs/6f1c2b1e-3d7a-4c55-9a47-0d1f6f0c9b11", nil, http.StatusNotFound},
		{"unknown stage", http.MethodPut, "/api/v1/jobs/" + id + "/stage", map[string]string{"stage": "SHIPPED"}, http.StatusBadRequest},
		{"missing stage", http.MethodPut, "/api/v1/jobs/" + id + "/stage", map[string]string{}, http.StatusBadRequest},
		{"empty order number", http.MethodPut, "/api/v1/jobs/" + id, map[string]any{"order_number": ""}, http.StatusBadRequest},
		{"negative quantity", http.MethodPost, "/api/v1/jobs", map[string]any{"quantity": -3}, http.StatusBadRequest},
		{"bad order type", http.MethodPost, "/api/v1/jobs", map[string]any{"order_type": "GIFT"}, http.StatusBadRequest},
		{"bad view", http.MethodGet, "/api/v1/jobs?view=LATE", nil, http.StatusBadRequest},
		{"unknown stage filter", http.MethodGet, "/api/v1/jobs?stage=SHIPPED", nil, http.StatusBadRequest},
		{"bad month", http.MethodGet, "/api/v1/jobs/calendar?month=2025-13", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.NotEmpty(t, decode[models.ErrorResponse](t, w).Error)
		})
	}
}

func TestListJobs_Filters(t *testing.T) {
	s := newTestServer(t, pdftext.Static(""))
	s.createJob(t, map[string]any{"order_number": "100", "client": "Alfa Brindes"})
	s.createJob(t, map[string]any{"order_number": "200", "client": "Beta", "order_type": "RESTOCK"})
	done := s.createJob(t, map[string]any{"order_number": "300", "client": "Gama"})
	w := s.do(t, http.MethodPut, "/api/v1/jobs/"+done.ID.String()+"/stage", map[string]string{"stage": stages.Finished})
	require.Equal(t, http.StatusOK, w.Code)

	count := func(query string) int {
		w := s.do(t, http.MethodGet, "/api/v1/jobs"+query, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decode[models.JobListResponse](t, w).Count
	}

	assert.Equal(t, 3, count(""))
	assert.Equal(t, 3, count("?stage=ALL&order_type=ALL"))
	assert.Equal(t, 2, count("?view=production"))
	assert.Equal(t, 1, count("?view=FINISHED"))
	assert.Equal(t, 1, count("?order_type=restock"))
	assert.Equal(t, 1, count("?q=alfa"))
	assert.Equal(t, 2, count("?stage="+stages.NewOrder))

	w = s.do(t, http.MethodGet, "/api/v1/jobs/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sum := decode[models.Summary](t, w)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 2, sum.NewOrders)
	assert.Equal(t, 1, sum.Finished)
}

func TestCalendar(t *testing.T) {
	s := newTestServer(t, pdftext.Static(""))
	s.createJob(t, map[string]any{"order_number": "B", "due_date": "15/2/2025"})
	s.createJob(t, map[string]any{"order_number": "A", "due_date": "2025-02-15"})
	s.createJob(t, map[string]any{"order_number": "C", "due_date": "1/3/2025"})

	w := s.do(t, http.MethodGet, "/api/v1/jobs/calendar?month=2025-02", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	cal := decode[models.CalendarResponse](t, w)
	assert.Equal(t, 2025, cal.Year)
	assert.Equal(t, time.February, cal.Month)
	require.Len(t, cal.Days, 28)
	assert.Equal(t, 2, cal.Total)

	day := cal.Days[14]
	assert.Equal(t, "2025-02-15", day.Date)
	require.Len(t, day.Jobs, 2)
	assert.Equal(t, "A", day.Jobs[0].OrderNumber)
	assert.Equal(t, "B", day.Jobs[1].OrderNumber)
	assert.Empty(t, cal.Days[0].Jobs)
}

func uploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	s := newTestServer(t, pdftext.Static(sampleOP))

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, uploadRequest(t, "file", "op-7788.pdf", []byte("%PDF-1.4 test")))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	res := decode[services.IngestResult](t, w)
	require.NotNil(t, res.Job)
	assert.Equal(t, "7788", res.Job.OrderNumber)
	assert.Equal(t, "Metalúrgica Horizonte", *res.Job.Client)
	assert.Equal(t, 250, *res.Job.Quantity)
	assert.Equal(t, "5/4/2025", *res.Job.DueDate)
	assert.Equal(t, stages.NewOrder, res.Job.CurrentStage)
	assert.Equal(t, "op-7788.pdf", *res.Job.DocumentName)
	require.NotNil(t, res.Extraction)
}

// memStorage keeps uploaded documents in memory, keyed by storage path.
type memStorage struct {
	files map[string][]byte
}

func (m *memStorage) UploadDocument(_ context.Context, userID string, jobID uuid.UUID, filename string, data []byte) (string, string, error) {
	path := supabase.DocumentPath(userID, jobID, filename)
	m.files[path] = data
	return path, "https://example.supabase.co/storage/v1/object/public/op-documents/" + path, nil
}

func (m *memStorage) DownloadDocument(_ context.Context, storagePath string) ([]byte, error) {
	data, ok := m.files[storagePath]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (m *memStorage) DeleteDocument(_ context.Context, storagePath string) error {
	delete(m.files, storagePath)
	return nil
}

func (m *memStorage) DeleteJobDocuments(context.Context, string, uuid.UUID) error { return nil }

func TestJobDocument(t *testing.T) {
	storage := &memStorage{files: map[string][]byte{}}
	s := newTestServer(t, pdftext.Static(sampleOP), services.WithDocumentStorage(storage))

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, uploadRequest(t, "file", "op-7788.pdf", []byte("%PDF-1.4 test")))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[services.IngestResult](t, w)

	w = s.do(t, http.MethodGet, "/api/v1/jobs/"+res.Job.ID.String()+"/document", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="op-7788.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4 test", w.Body.String())

	manual := s.createJob(t, map[string]any{"order_number": "M-9"})
	w = s.do(t, http.MethodGet, "/api/v1/jobs/"+manual.ID.String()+"/document", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/jobs/"+uuid.NewString()+"/document", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/jobs/nope/document", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJobDocument_WithoutStorage(t *testing.T) {
	s := newTestServer(t, pdftext.Static(sampleOP))

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, uploadRequest(t, "file", "op-7788.pdf", []byte("%PDF-1.4 test")))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[services.IngestResult](t, w)

	w = s.do(t, http.MethodGet, "/api/v1/jobs/"+res.Job.ID.String()+"/document", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "job has no stored document", decode[models.ErrorResponse](t, w).Error)
}

func TestUpload_Errors(t *testing.T) {
	t.Run("missing file field", func(t *testing.T) {
		s := newTestServer(t, pdftext.Static(sampleOP))
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, uploadRequest(t, "document", "op.pdf", []byte("x")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("too large", func(t *testing.T) {
		s := newTestServer(t, pdftext.Static(sampleOP))
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, uploadRequest(t, "file", "op.pdf", bytes.Repeat([]byte("a"), 3<<20)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("no text layer", func(t *testing.T) {
		s := newTestServer(t, pdftext.Static(""))
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, uploadRequest(t, "file", "scan.pdf", []byte("%PDF-")))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestExport(t *testing.T) {
	s := newTestServer(t, pdftext.Static(""))
	s.createJob(t, map[string]any{"order_number": "900", "client": "Zeta", "due_date": "10/5/2025"})

	w := s.do(t, http.MethodGet, "/api/v1/jobs/export", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "relatorio_producao_")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Producao")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Número OP", rows[0][0])
	assert.Equal(t, "900", rows[1][0])
	assert.Equal(t, "Zeta", rows[1][1])
}

func TestEvents_StreamsChanges(t *testing.T) {
	s := newTestServer(t, pdftext.Static(""))
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/jobs/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := bufio.NewScanner(resp.Body)
	next := func(prefix string) string {
		for lines.Scan() {
			if line := lines.Text(); strings.HasPrefix(line, prefix) {
				return strings.TrimPrefix(line, prefix)
			}
		}
		t.Fatalf("stream ended before %q", prefix)
		return ""
	}

	assert.Equal(t, "ready", next("event:"))
	assert.Eventually(t, func() bool { return s.events.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)

	job, err := s.svc.CreateJob(ctx, "user-1", models.CreateJobRequest{OrderNumber: "4242"})
	require.NoError(t, err)

	event := next("event:")
	for event != "change" {
		event = next("event:")
	}
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(next("data:")), &payload))
	assert.Equal(t, "INSERT", payload["eventType"])
	assert.Equal(t, "jobs", payload["table"])
	assert.Equal(t, job.ID.String(), payload["job_id"])

	cancel()
	assert.Eventually(t, func() bool { return s.events.SubscriberCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
