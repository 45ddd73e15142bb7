package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
	"op-pipeline-backend/internal/logging"
)

const (
	exportSheet = "Producao"
	placeholder = "-"
)

var exportHeaders = []string{
	"Número OP",
	"Cliente",
	"Tipo do pedido",
	"Produto",
	"Quantidade",
	"Prazo",
	"Etapa Atual",
	"Data Início",
	"Status",
	"Data Finalização",
}

// ExportService renders the production report as an XLSX workbook.
type ExportService struct {
	jobs *JobService
	log  *logging.Logger
}

func NewExportService(jobs *JobService, log *logging.Logger) *ExportService {
	return &ExportService{jobs: jobs, log: log.With("component", "export")}
}

// ExportFilename is the download name for a report generated at now.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("relatorio_producao_%s.xlsx", now.Format(time.DateOnly))
}

// ExportXLSX writes one row per job matching filter. Missing values are
// rendered as "-".
func (s *ExportService) ExportXLSX(ctx context.Context, filter ListFilter) ([]byte, error) {
	start := time.Now()

	jobs, err := s.jobs.ListJobs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(exportSheet); err != nil {
		return nil, err
	}
	index, _ := f.GetSheetIndex(exportSheet)
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, h)
	}

	seq := s.jobs.Machine().Sequence()
	loc := s.jobs.now().Location()
	for i, job := range jobs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(exportSheet, cell, v)
		}

		status := "Em Andamento"
		if seq.IsTerminal(job.CurrentStage) {
			status = "Finalizado"
		}

		write(1, job.OrderNumber)
		write(2, orPlaceholder(job.Client))
		write(3, job.OrderType.Label())
		write(4, orPlaceholder(job.Product))
		if job.Quantity != nil {
			write(5, *job.Quantity)
		} else {
			write(5, placeholder)
		}
		write(6, orPlaceholder(job.DueDate))
		write(7, job.CurrentStage)
		write(8, formatDay(job.StartedAt(), loc))
		write(9, status)
		write(10, formatDay(job.CompletedAt, loc))
	}

	_ = f.SetColWidth(exportSheet, "A", "A", 14)
	_ = f.SetColWidth(exportSheet, "B", "B", 32)
	_ = f.SetColWidth(exportSheet, "C", "C", 22)
	_ = f.SetColWidth(exportSheet, "D", "D", 32)
	_ = f.SetColWidth(exportSheet, "E", "F", 12)
	_ = f.SetColWidth(exportSheet, "G", "G", 16)
	_ = f.SetColWidth(exportSheet, "H", "J", 16)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.log.Info("export.xlsx.ok",
		"rows", len(jobs),
		"view", string(filter.View),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func orPlaceholder(p *string) string {
	if p == nil || *p == "" {
		return placeholder
	}
	return *p
}

func formatDay(t *time.Time, loc *time.Location) string {
	if t == nil {
		return placeholder
	}
	lt := t.In(loc)
	return strconv.Itoa(lt.Day()) + "/" + strconv.Itoa(int(lt.Month())) + "/" + strconv.Itoa(lt.Year())
}
