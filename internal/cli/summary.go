package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"museumtopics/internal/domain"
	"museumtopics/internal/usecase"
)

// analysisReport is what analyze prints, as text or as JSON.
type analysisReport struct {
	RunID    string                 `json:"run_id"`
	Input    string                 `json:"input"`
	Rows     int                    `json:"rows"`
	Headers  map[string]string      `json:"headers"`
	Model    string                 `json:"model"`
	Result   *domain.PipelineResult `json:"result"`
	Failures []string               `json:"failures,omitempty"`
	TopWords []usecase.WordCount    `json:"top_words,omitempty"`
	Written  []string               `json:"written,omitempty"`
}

func printJSON(w io.Writer, report analysisReport) error {
	for _, f := range report.Result.Failures {
		report.Failures = append(report.Failures, f.Error())
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func printSummary(w io.Writer, report analysisReport) {
	p := message.NewPrinter(language.English)
	result := report.Result

	p.Fprintf(w, "Survey: %s (%d rows, model %s)\n", report.Input, report.Rows, report.Model)

	runs := make([]domain.RunResult, 0, len(result.Columns)+1)
	for _, col := range result.Columns {
		runs = append(runs, result.PerColumn[col])
	}
	if result.Combined.Column != "" {
		runs = append(runs, result.Combined)
	}
	for _, run := range runs {
		printRun(p, w, run, report.Headers[run.Column])
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Engagement")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	total := result.Engagement.Total()
	for _, c := range result.Engagement.Categories {
		share := 0.0
		if total > 0 {
			share = float64(c.Count) / float64(total) * 100
		}
		p.Fprintf(w, "  %-24s %6d  %5.1f%%\n", c.Category, c.Count, share)
	}

	if len(report.TopWords) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Most frequent words")
		fmt.Fprintln(w, strings.Repeat("-", 40))
		for _, wc := range report.TopWords {
			p.Fprintf(w, "  %-24s %6d\n", wc.Word, wc.Count)
		}
	}

	if len(report.Written) > 0 {
		fmt.Fprintln(w)
		for _, path := range report.Written {
			fmt.Fprintf(w, "Wrote %s\n", path)
		}
	}
	for _, f := range result.Failures {
		fmt.Fprintf(w, "FAILED %s\n", f.Error())
	}
}

func printRun(p *message.Printer, w io.Writer, run domain.RunResult, header string) {
	fmt.Fprintln(w)
	title := run.Column
	if header != "" {
		title = fmt.Sprintf("%s: %s", run.Column, header)
	}
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", min(len(title), 78)))

	if run.State == usecase.StateFailed.String() {
		fmt.Fprintf(w, "  failed: %v\n", run.Err)
		return
	}

	documents := len(run.Assignments)
	clustered := run.ClusteredTopics()
	p.Fprintf(w, "  %d answers, %d excluded, %d topics, %d outliers\n",
		documents, len(run.Excluded), len(clustered), run.OutlierCount())
	for _, warning := range run.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warning)
	}
	if len(clustered) == 0 && documents > 0 {
		fmt.Fprintln(w, "  no topics found")
	}

	for _, t := range clustered {
		flag := ""
		if t.LowConfidence {
			flag = "  (low confidence)"
		}
		p.Fprintf(w, "  [%d] %s  %d answers%s\n", t.ID, t.Label, t.DocumentCount, flag)
		if terms := t.KeywordTerms(); len(terms) > 0 {
			fmt.Fprintf(w, "      keywords: %s\n", strings.Join(terms, ", "))
		}
		if t.Representative != "" {
			fmt.Fprintf(w, "      e.g. %q\n", truncate(t.Representative, 100))
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
