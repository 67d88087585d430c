package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/onnwee/talentboard/internal/candidate"
)

const (
	barWidth  = 20
	notScored = "-"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	labelColor   = color.New(color.Faint)
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func renderCandidates(w io.Writer, profiles []candidate.Profile) {
	if len(profiles) == 0 {
		fmt.Fprintln(w, "no candidates")
		return
	}
	table := newTable(w, []string{"ID", "Name", "Experience", "Skills", "Overall", "Rank"})
	for _, p := range profiles {
		overall, rank := notScored, notScored
		if p.Ranking != nil {
			overall = scoreColor(p.Ranking.OverallScore).Sprint(formatScore(p.Ranking.OverallScore))
			if p.Ranking.Rank > 0 {
				rank = strconv.Itoa(p.Ranking.Rank)
			}
		}
		table.Append([]string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			fmt.Sprintf("%d yrs", p.YearsExperience),
			strings.Join(p.Skills, ", "),
			overall,
			rank,
		})
	}
	table.Render()
}

func renderLeaderboard(w io.Writer, board []candidate.Profile) {
	headingColor.Fprintln(w, "Leaderboard")
	if len(board) == 0 {
		fmt.Fprintln(w, "no ranked candidates yet")
		return
	}
	table := newTable(w, []string{"Rank", "Name", "Overall", "Crisis", "Sustainability", "Motivation"})
	for _, p := range board {
		row := []string{notScored, p.Name, notScored, notScored, notScored, notScored}
		if p.Ranking != nil {
			row[0] = strconv.Itoa(p.Ranking.Rank)
			row[2] = scoreColor(p.Ranking.OverallScore).Sprint(formatScore(p.Ranking.OverallScore))
		}
		if e := p.Evaluation; e != nil {
			row[3] = strconv.Itoa(e.CrisisScore)
			row[4] = strconv.Itoa(e.SustainabilityScore)
			row[5] = strconv.Itoa(e.MotivationScore)
		}
		table.Append(row)
	}
	table.Render()
}

func renderCandidate(w io.Writer, p *candidate.Profile) {
	headingColor.Fprintf(w, "%s (#%d)\n", p.Name, p.ID)
	fmt.Fprintf(w, "%s %d years\n", labelColor.Sprint("Experience:"), p.YearsExperience)
	fmt.Fprintf(w, "%s %s\n", labelColor.Sprint("Skills:    "), strings.Join(p.Skills, ", "))

	if p.Evaluation == nil {
		fmt.Fprintln(w, "\nnot evaluated yet")
		return
	}
	if p.Ranking != nil {
		fmt.Fprintf(w, "%s %s", labelColor.Sprint("Overall:   "),
			scoreColor(p.Ranking.OverallScore).Sprint(formatScore(p.Ranking.OverallScore)))
		if p.Ranking.Rank > 0 {
			fmt.Fprintf(w, "  rank %d", p.Ranking.Rank)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
	renderScoreBars(w, p.Evaluation)
	fmt.Fprintf(w, "\n%s\n", p.Evaluation.Feedback)
}

func renderEvaluation(w io.Writer, e *candidate.Evaluation) {
	headingColor.Fprintf(w, "Evaluation #%d for candidate %d\n", e.ID, e.CandidateID)
	renderScoreBars(w, e)
	fmt.Fprintf(w, "\n%s\n", e.Feedback)
}

func renderEvaluations(w io.Writer, evals []candidate.Evaluation) {
	fmt.Fprintln(w)
	headingColor.Fprintln(w, "History")
	table := newTable(w, []string{"ID", "Evaluated", "Crisis", "Sustainability", "Motivation"})
	for _, e := range evals {
		table.Append([]string{
			strconv.FormatInt(e.ID, 10),
			e.EvaluatedAt.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(e.CrisisScore),
			strconv.Itoa(e.SustainabilityScore),
			strconv.Itoa(e.MotivationScore),
		})
	}
	table.Render()
}

func renderScoreBars(w io.Writer, e *candidate.Evaluation) {
	for _, s := range []struct {
		label string
		score int
	}{
		{"Crisis management", e.CrisisScore},
		{"Sustainability", e.SustainabilityScore},
		{"Team motivation", e.MotivationScore},
	} {
		fmt.Fprintf(w, "%-18s %s %3d\n", s.label, scoreColor(float64(s.score)).Sprint(scoreBar(s.score, barWidth)), s.score)
	}
}

// scoreBar draws score (0-100) as a bar of width cells.
func scoreBar(score, width int) string {
	score = max(0, min(score, 100))
	filled := score * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// scoreColor uses the same bands as evaluation feedback.
func scoreColor(score float64) *color.Color {
	switch {
	case score > 90:
		return color.New(color.FgGreen)
	case score > 80:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 1, 64)
}
