package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dadok-care/survey-engine/internal/models"
	"github.com/dadok-care/survey-engine/internal/repositories"
	"github.com/xuri/excelize/v2"
)

// ExportFormat selects the answer-history export encoding.
type ExportFormat string

const (
	ExportXLSX ExportFormat = "xlsx"
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
)

// ParseExportFormat validates a raw format value.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(raw) {
	case ExportXLSX, ExportCSV, ExportJSON:
		return ExportFormat(raw), nil
	case "":
		return ExportXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// ContentType returns the MIME type for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportCSV:
		return "text/csv"
	case ExportJSON:
		return "application/json"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// ExportService renders a user's persisted answer history, the data behind
// the result/report surface.
type ExportService interface {
	ExportHistory(ctx context.Context, userID string, format ExportFormat) ([]byte, error)
}

type exportService struct {
	registry repositories.RegistryRepository
	logger   *slog.Logger
}

func NewExportService(registry repositories.RegistryRepository, logger *slog.Logger) ExportService {
	return &exportService{registry: registry, logger: logger}
}

func (s *exportService) ExportHistory(ctx context.Context, userID string, format ExportFormat) ([]byte, error) {
	records, err := s.registry.History(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("exporting answer history",
		"user_id", userID,
		"format", format,
		"records", len(records))

	switch format {
	case ExportCSV:
		return exportCSV(records)
	case ExportJSON:
		return json.MarshalIndent(records, "", "  ")
	default:
		return exportExcel(records)
	}
}

var historyHeaders = []string{"Question ID", "Response Type", "Answer", "Answered At"}

func historyRow(record *models.AnsweredQuestion) []string {
	return []string{
		strconv.FormatUint(uint64(record.QuestionID), 10),
		record.ResponseType,
		record.Answer,
		record.AnsweredAt.Format(time.RFC3339),
	}
}

func exportCSV(records []*models.AnsweredQuestion) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(historyHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, record := range records {
		if err := w.Write(historyRow(record)); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func exportExcel(records []*models.AnsweredQuestion) ([]byte, error) {
	f := excelize.NewFile()
	sheetName := "Answers"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	for i, header := range historyHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, record := range records {
		for colIndex, value := range historyRow(record) {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}
