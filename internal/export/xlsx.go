// Package export produces XLSX workbooks from session data for offline review.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/carevine/onboarding-backend/internal/domain"
)

const (
	turnsSheet = "Turns"
	statsSheet = "Stats"
)

// SessionWorkbook renders a session's turn log and statistics into an
// XLSX workbook and returns its bytes.
func SessionWorkbook(turns []*domain.Turn, stats *domain.SessionStats) ([]byte, error) {
	f := excelize.NewFile()

	if err := writeTurnsSheet(f, turns); err != nil {
		return nil, err
	}
	if err := writeStatsSheet(f, stats); err != nil {
		return nil, err
	}

	// excelize creates a default "Sheet1"; the workbook should only
	// carry the two named sheets.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	if index, err := f.GetSheetIndex(turnsSheet); err == nil {
		f.SetActiveSheet(index)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTurnsSheet(f *excelize.File, turns []*domain.Turn) error {
	if _, err := f.NewSheet(turnsSheet); err != nil {
		return err
	}

	headers := []string{"#", "Created At", "User Message", "Agent Reply", "Touched Fields", "Extracted JSON"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(turnsSheet, cell, h); err != nil {
			return err
		}
	}

	for i, turn := range turns {
		row := i + 2

		extracted := ""
		if len(turn.ExtractedJSON) > 0 {
			extracted = string(turn.ExtractedJSON)
		}

		values := []any{
			i + 1,
			turn.CreatedAt.Format("2006-01-02 15:04:05"),
			turn.UserMessage,
			turn.AgentReply,
			strings.Join(turn.TouchedFields, ", "),
			extracted,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(turnsSheet, cell, v); err != nil {
				return err
			}
		}
	}

	return nil
}

func writeStatsSheet(f *excelize.File, stats *domain.SessionStats) error {
	if _, err := f.NewSheet(statsSheet); err != nil {
		return err
	}

	rows := [][2]any{
		{"Session ID", stats.SessionID.String()},
		{"Turn Count", stats.TurnCount},
		{"Fields Extracted", strings.Join(stats.FieldsExtracted, ", ")},
		{"Fields Covered", stats.FieldsCovered},
		{"Total Fields", stats.TotalFields},
		{"Completion %", stats.CompletionPercentage},
		{"Duration", stats.Duration.String()},
		{"Avg Turn Latency", stats.AvgTurnLatency.String()},
	}

	for i, r := range rows {
		nameCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valueCell, _ := excelize.CoordinatesToCellName(2, i+1)
		if err := f.SetCellValue(statsSheet, nameCell, r[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(statsSheet, valueCell, r[1]); err != nil {
			return err
		}
	}

	return nil
}
