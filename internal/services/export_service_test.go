package services

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

func endedReport(t *testing.T, f *fixture) string {
	t.Helper()
	id := f.start(t, "Ada Lovelace")
	f.ingest(t, id, models.DetectionSample{FaceCount: 1, ObjectLabels: []string{"book"}}, 1)
	f.ingest(t, id, models.DetectionSample{FaceCount: 1, IsLookingAway: true}, 14)
	f.ingest(t, id, models.DetectionSample{FaceCount: 1}, 1)
	f.clock.Advance(time.Minute)
	_, err := f.service.End(context.Background(), id)
	require.NoError(t, err)
	return id
}

func TestExportService_JSON(t *testing.T) {
	f := newFixture(t, false)
	id := endedReport(t, f)
	exporter := NewExportService(f.service, discardLogger())

	file, err := exporter.Export(context.Background(), id, "")
	require.NoError(t, err)

	assert.Equal(t, "proctoring-report-"+id+".json", file.Filename)
	assert.Equal(t, "application/json", file.ContentType)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(file.Data, &decoded))
	assert.Equal(t, "Ada Lovelace", decoded["candidateName"])
	assert.Equal(t, float64(2), decoded["totalEvents"])
	summary := decoded["summary"].(map[string]interface{})
	assert.Equal(t, "7.0", summary["averageFocusLostDuration"])
}

func TestExportService_Excel(t *testing.T) {
	f := newFixture(t, false)
	id := endedReport(t, f)
	exporter := NewExportService(f.service, discardLogger())

	file, err := exporter.Export(context.Background(), id, ExportFormatExcel)
	require.NoError(t, err)
	assert.Equal(t, "proctoring-report-"+id+".xlsx", file.Filename)

	workbook, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer workbook.Close()

	assert.Equal(t, []string{"Summary", "Events"}, workbook.GetSheetList())

	name, err := workbook.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", name)

	rows, err := workbook.GetRows("Events")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "book_detected", rows[1][1])
	assert.Equal(t, "focus_lost", rows[2][1])
	assert.Equal(t, "7.0", rows[2][4])
}

func TestExportService_UnsupportedFormat(t *testing.T) {
	f := newFixture(t, false)
	exporter := NewExportService(f.service, discardLogger())

	_, err := exporter.Export(context.Background(), "session_1", "csv")

	assert.ErrorIs(t, err, ErrUnsupportedExportFmt)
	assert.True(t, IsValidation(err))
}

func TestExportService_UnknownSession(t *testing.T) {
	f := newFixture(t, false)
	exporter := NewExportService(f.service, discardLogger())

	_, err := exporter.Export(context.Background(), "session_404", ExportFormatJSON)

	assert.ErrorIs(t, err, ErrSessionNotFound)
}
