package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

const (
	ExportFormatJSON  = "json"
	ExportFormatExcel = "xlsx"

	summarySheet = "Summary"
	eventsSheet  = "Events"
)

// ExportFile is a rendered report ready to be downloaded
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ExportService interface {
	Export(ctx context.Context, sessionID, format string) (*ExportFile, error)
	ExportJSON(report *models.Report) (*ExportFile, error)
	ExportExcel(report *models.Report) (*ExportFile, error)
}

type exportService struct {
	sessions SessionService
	logger   *slog.Logger
}

func NewExportService(sessions SessionService, logger *slog.Logger) ExportService {
	return &exportService{
		sessions: sessions,
		logger:   logger,
	}
}

func (s *exportService) Export(ctx context.Context, sessionID, format string) (*ExportFile, error) {
	if format == "" {
		format = ExportFormatJSON
	}
	if format != ExportFormatJSON && format != ExportFormatExcel {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExportFmt, format)
	}

	report, err := s.sessions.Report(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Exporting proctoring report", "session_id", sessionID, "format", format)

	if format == ExportFormatExcel {
		return s.ExportExcel(report)
	}
	return s.ExportJSON(report)
}

func (s *exportService) ExportJSON(report *models.Report) (*ExportFile, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return &ExportFile{
		Filename:    reportFilename(report.SessionID, ExportFormatJSON),
		ContentType: "application/json",
		Data:        data,
	}, nil
}

func (s *exportService) ExportExcel(report *models.Report) (*ExportFile, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	if _, err := f.NewSheet(eventsSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	if err := writeRows(f, summarySheet, summaryRows(report)); err != nil {
		return nil, err
	}
	if err := writeRows(f, eventsSheet, eventRows(report.Events)); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	return &ExportFile{
		Filename:    reportFilename(report.SessionID, ExportFormatExcel),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        buf.Bytes(),
	}, nil
}

func reportFilename(sessionID, ext string) string {
	return fmt.Sprintf("proctoring-report-%s.%s", sessionID, ext)
}

func summaryRows(report *models.Report) [][]interface{} {
	endTime := ""
	if report.EndTime != nil {
		endTime = models.FormatTimestamp(*report.EndTime)
	}
	average := "0"
	if report.Summary.FocusLostEventCount > 0 {
		average = models.FormatOneDecimal(report.Summary.AverageFocusLostDuration)
	}

	return [][]interface{}{
		{"Field", "Value"},
		{"Candidate Name", report.CandidateName},
		{"Session ID", report.SessionID},
		{"Start Time", models.FormatTimestamp(report.StartTime)},
		{"End Time", endTime},
		{"Duration (minutes)", models.FormatOneDecimal(report.Duration)},
		{"Integrity Score", report.IntegrityScore},
		{"Total Events", report.TotalEvents},
		{"Focus Lost Events", report.FocusLostCount},
		{"Suspicious Events", report.SuspiciousEventCount},
		{"Total Focus Lost Time (seconds)", models.FormatOneDecimal(report.Summary.TotalFocusLostTime)},
		{"Average Focus Lost Duration (seconds)", average},
	}
}

func eventRows(events []models.ProctoringEvent) [][]interface{} {
	rows := [][]interface{}{
		{"ID", "Type", "Severity", "Timestamp", "Duration (seconds)", "Description"},
	}
	for _, event := range events {
		duration := ""
		if event.Duration != nil {
			duration = models.FormatOneDecimal(*event.Duration)
		}
		rows = append(rows, []interface{}{
			event.ID,
			string(event.Type),
			string(event.Severity),
			models.FormatTimestamp(event.Timestamp),
			duration,
			event.Description,
		})
	}
	return rows
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("invalid cell position: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write cell %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}
