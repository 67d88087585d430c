// Package export renders the leaderboard as an Excel workbook and publishes
// it to S3-compatible object storage.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/onnwee/talentboard/internal/candidate"
)

// ContentTypeXLSX is the MIME type of the generated workbook.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names.
const (
	SheetLeaderboard = "Leaderboard"
	SheetSummary     = "Summary"
)

// LeaderboardHeaders are the column headers of the leaderboard sheet.
var LeaderboardHeaders = []string{
	"Rank", "Candidate", "Experience (years)", "Skills", "Overall",
	"Crisis Management", "Sustainability", "Team Motivation", "Feedback",
}

// Score tiers share the feedback thresholds.
const (
	exceptionalFill = "C6EFCE"
	strongFill      = "FFEB9C"
	averageFill     = "FFC7CE"
	headerFill      = "4472C4"
)

// WriteLeaderboard writes a workbook with a ranked leaderboard sheet and a
// summary sheet to w. board is expected in rank order.
func WriteLeaderboard(w io.Writer, board []*candidate.Profile, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetLeaderboard); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	if err := writeLeaderboardSheet(f, board); err != nil {
		return fmt.Errorf("failed to write leaderboard sheet: %w", err)
	}
	if err := writeSummarySheet(f, board, generatedAt); err != nil {
		return fmt.Errorf("failed to write summary sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func border() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}

func fillStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Border: border(),
	})
}

// tierFill picks a row color using the same thresholds as the feedback text.
func tierFill(overall float64) string {
	switch {
	case overall > 90:
		return exceptionalFill
	case overall > 80:
		return strongFill
	default:
		return averageFill
	}
}

func writeLeaderboardSheet(f *excelize.File, board []*candidate.Profile) error {
	widths := []float64{8, 25, 18, 40, 10, 18, 15, 16, 60}
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetLeaderboard, col, col, width); err != nil {
			return err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border(),
	})
	if err != nil {
		return err
	}

	styles := make(map[string]int, 3)
	for _, color := range []string{exceptionalFill, strongFill, averageFill} {
		id, err := fillStyle(f, color)
		if err != nil {
			return err
		}
		styles[color] = id
	}

	if err := f.SetSheetRow(SheetLeaderboard, "A1", &LeaderboardHeaders); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(LeaderboardHeaders))
	if err := f.SetCellStyle(SheetLeaderboard, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, p := range board {
		row := i + 2
		values := []any{
			rankOf(p), p.Name, p.YearsExperience, strings.Join(p.Skills, ", "), overallOf(p),
		}
		if e := p.Evaluation; e != nil {
			values = append(values, e.CrisisScore, e.SustainabilityScore, e.MotivationScore, e.Feedback)
		} else {
			values = append(values, "", "", "", "")
		}

		start := fmt.Sprintf("A%d", row)
		if err := f.SetSheetRow(SheetLeaderboard, start, &values); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetLeaderboard, start, fmt.Sprintf("%s%d", lastCol, row), styles[tierFill(overallOf(p))]); err != nil {
			return err
		}
	}

	if len(board) > 0 {
		ref := fmt.Sprintf("A1:%s%d", lastCol, len(board)+1)
		if err := f.AutoFilter(SheetLeaderboard, ref, []excelize.AutoFilterOptions{}); err != nil {
			return err
		}
	}

	return f.SetPanes(SheetLeaderboard, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeSummarySheet(f *excelize.File, board []*candidate.Profile, generatedAt time.Time) error {
	if err := f.SetColWidth(SheetSummary, "A", "A", 25); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetSummary, "B", "B", 30); err != nil {
		return err
	}

	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	rows := [][]any{
		{"Report", "Shift Lead Leaderboard"},
		{"Generated", generatedAt.UTC().Format(time.RFC3339)},
		{"Ranked candidates", len(board)},
	}

	if len(board) > 0 {
		var exceptional, strong, average int
		var total float64
		high, low := overallOf(board[0]), overallOf(board[0])
		for _, p := range board {
			score := overallOf(p)
			total += score
			high = max(high, score)
			low = min(low, score)
			switch tierFill(score) {
			case exceptionalFill:
				exceptional++
			case strongFill:
				strong++
			default:
				average++
			}
		}
		rows = append(rows,
			[]any{"Highest score", high},
			[]any{"Lowest score", low},
			[]any{"Average score", fmt.Sprintf("%.1f", total/float64(len(board)))},
			[]any{"Exceptional (>90)", exceptional},
			[]any{"Strong (>80)", strong},
			[]any{"Developing (<=80)", average},
		)
	}

	for i, r := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(SheetSummary, cell, &r); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetSummary, cell, cell, labelStyle); err != nil {
			return err
		}
	}
	return nil
}

func rankOf(p *candidate.Profile) int {
	if p.Ranking == nil {
		return 0
	}
	return p.Ranking.Rank
}

func overallOf(p *candidate.Profile) float64 {
	if p.Ranking == nil {
		return 0
	}
	return p.Ranking.OverallScore
}
