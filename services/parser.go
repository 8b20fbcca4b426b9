package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/formulai/formulai/models"
)

// The generated formula follows an output convention requested via the
// prompt, not a guarantee: lines like "Phase A:" introduce a phase and lines
// like "- Aqua (Water): 70.5%" are ingredient entries. Parsing is
// best-effort at the boundary; anything unparseable is skipped, never an
// error.
var (
	phasePattern = regexp.MustCompile(`^Phase\s+(\w+)`)
	entryPattern = regexp.MustCompile(`^-?\s*(.+?)\s*\((.+?)\):\s*([\d.]+)%`)
)

// ParseFormula extracts phase-grouped ingredient rows from generated
// formula text, skipping lines that don't match the expected shape.
func ParseFormula(text string) []models.FormulaRow {
	rows := []models.FormulaRow{}
	currentPhase := ""

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		if m := phasePattern.FindStringSubmatch(line); m != nil {
			currentPhase = m[1]
			continue
		}

		m := entryPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		percent, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			continue
		}

		rows = append(rows, models.FormulaRow{
			Phase:   currentPhase,
			INCI:    strings.TrimSpace(m[1]),
			Name:    strings.TrimSpace(m[2]),
			Percent: percent,
		})
	}

	return rows
}

// WriteFormulaCSV renders parsed rows as CSV for export.
func WriteFormulaCSV(w io.Writer, rows []models.FormulaRow) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"Phase", "INCI", "%w/w"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.Phase,
			row.INCI,
			strconv.FormatFloat(row.Percent, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
