package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/learnloop/assignment-engine/internal/models"
	"github.com/learnloop/assignment-engine/internal/repositories"
)

type historyService struct {
	source repositories.AttemptSource
	logger *slog.Logger
}

func NewHistoryService(source repositories.AttemptSource, logger *slog.Logger) HistoryService {
	return &historyService{source: source, logger: logger}
}

// List returns the remote attempt history, newest first. The remote
// store is the source of truth; locally graded attempts do not appear
// here.
func (s *historyService) List(ctx context.Context, assignmentID string, sess models.SessionContext) ([]models.AttemptRecord, error) {
	records, err := s.source.List(ctx, assignmentID, sess)
	if err != nil {
		return nil, fmt.Errorf("fetch attempt history: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].AttemptNumber > records[j].AttemptNumber
	})

	return records, nil
}

const (
	historySheet      = "Attempts"
	localAttemptSheet = "Local Attempts"
)

var exportHeaders = []string{"Attempt", "Score", "Total Questions", "Percentage", "Passed", "Time Spent (s)", "Date"}

// Export renders attempt records as an XLSX workbook. Locally graded
// attempts go on their own sheet; they exist only in the local journal
// and would otherwise be invisible next to the remote history.
func (s *historyService) Export(assignmentID string, records []models.AttemptRecord, local []models.LocalAttemptRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), historySheet)

	rows := make([][]interface{}, len(records))
	for i, rec := range records {
		rows[i] = []interface{}{
			rec.AttemptNumber,
			rec.Score,
			rec.TotalQuestions,
			rec.Percentage,
			rec.Passed,
			rec.TimeSpentSeconds,
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
		}
	}
	if err := writeSheet(f, historySheet, rows); err != nil {
		return nil, err
	}

	if len(local) > 0 {
		if _, err := f.NewSheet(localAttemptSheet); err != nil {
			return nil, fmt.Errorf("create local attempt sheet: %w", err)
		}
		rows = make([][]interface{}, len(local))
		for i, rec := range local {
			rows[i] = []interface{}{
				rec.AttemptNumber,
				rec.Score,
				rec.TotalQuestions,
				rec.Percentage,
				rec.Passed,
				rec.TimeSpentSeconds,
				rec.CreatedAt.Format("2006-01-02 15:04:05"),
			}
		}
		if err := writeSheet(f, localAttemptSheet, rows); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render history export for %s: %w", assignmentID, err)
	}

	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]interface{}) error {
	for col, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("build export header: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("write export header: %w", err)
		}
	}

	for row, values := range rows {
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return fmt.Errorf("build export cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("write export cell: %w", err)
			}
		}
	}
	return nil
}
