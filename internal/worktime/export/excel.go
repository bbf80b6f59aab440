// Package export renders working-time summaries as XLSX workbooks for the
// HR-facing download endpoints.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	worktimedomain "github.com/pointagehq/pointage/internal/worktime/domain"
)

const (
	daysSheet      = "Jours"
	anomaliesSheet = "Anomalies"
)

// MonthlyWorkbook builds a two-sheet workbook: per-day totals and anomalies.
// The caller owns closing the file.
func MonthlyWorkbook(displayName string, monthly worktimedomain.MonthlySummary) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", daysSheet); err != nil {
		return nil, err
	}
	headers := []any{"Date", "Badges", "Minutes", "Heures"}
	if err := f.SetSheetRow(daysSheet, "A1", &headers); err != nil {
		return nil, err
	}
	for i, day := range monthly.Days {
		row := []any{day.Date, len(day.Entries), day.TotalMinutes, day.TotalHours}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(daysSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	summaryRow := []any{
		fmt.Sprintf("Total %s", displayName),
		"",
		monthly.TotalMinutes,
		monthly.TotalHours,
	}
	if err := f.SetSheetRow(daysSheet, fmt.Sprintf("A%d", len(monthly.Days)+3), &summaryRow); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(anomaliesSheet); err != nil {
		return nil, err
	}
	anomalyHeaders := []any{"Date", "Type", "Detail"}
	if err := f.SetSheetRow(anomaliesSheet, "A1", &anomalyHeaders); err != nil {
		return nil, err
	}
	for i, anomaly := range monthly.Anomalies {
		row := []any{anomaly.Date, string(anomaly.Kind), anomaly.Detail}
		if err := f.SetSheetRow(anomaliesSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
	}

	return f, nil
}
