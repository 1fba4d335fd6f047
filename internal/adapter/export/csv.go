// Package export writes pipeline results as CSV tables.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"museumtopics/internal/domain"
)

// KeywordSeparator joins top keywords inside one cell.
const KeywordSeparator = "|"

var (
	TopicHeader      = []string{"source_column", "topic_id", "label", "top_keywords", "document_count"}
	AssignmentHeader = []string{"source_column", "original_row_index", "topic_id"}
	EngagementHeader = []string{"category", "count"}
)

// WriteTopics writes one row per topic, including outlier buckets.
func WriteTopics(w io.Writer, topics []domain.Topic) error {
	rows := make([][]string, 0, len(topics))
	for _, t := range topics {
		rows = append(rows, []string{
			t.Column,
			strconv.Itoa(t.ID),
			t.Label,
			strings.Join(t.KeywordTerms(), KeywordSeparator),
			strconv.Itoa(t.DocumentCount),
		})
	}
	return writeTable(w, TopicHeader, rows)
}

// WriteAssignments writes one row per assigned document.
func WriteAssignments(w io.Writer, assignments []domain.TopicAssignment) error {
	rows := make([][]string, 0, len(assignments))
	for _, a := range assignments {
		rows = append(rows, []string{
			a.Column,
			strconv.Itoa(a.RowIndex),
			strconv.Itoa(a.TopicID),
		})
	}
	return writeTable(w, AssignmentHeader, rows)
}

// WriteEngagement writes the engagement tally in its reporting order.
func WriteEngagement(w io.Writer, freq domain.EngagementFrequency) error {
	rows := make([][]string, 0, len(freq.Categories))
	for _, c := range freq.Categories {
		rows = append(rows, []string{c.Category, strconv.Itoa(c.Count)})
	}
	return writeTable(w, EngagementHeader, rows)
}

func writeTable(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteFile writes a table to path through a temporary file in the same
// directory, so readers never observe a partial file.
func WriteFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpPath := f.Name()
	defer os.Remove(tmpPath)

	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s: %w", path, err)
	}
	return nil
}

// Tables names the files one analysis writes. Empty paths are skipped.
type Tables struct {
	TopicsPath      string
	AssignmentsPath string
	EngagementPath  string
}

// Write exports every configured table for result and returns the paths
// written.
func (t Tables) Write(result *domain.PipelineResult) ([]string, error) {
	var written []string
	jobs := []struct {
		path  string
		write func(io.Writer) error
	}{
		{t.TopicsPath, func(w io.Writer) error { return WriteTopics(w, result.Topics) }},
		{t.AssignmentsPath, func(w io.Writer) error { return WriteAssignments(w, result.Assignments) }},
		{t.EngagementPath, func(w io.Writer) error { return WriteEngagement(w, result.Engagement) }},
	}
	for _, job := range jobs {
		if job.path == "" {
			continue
		}
		if err := WriteFile(job.path, job.write); err != nil {
			return written, err
		}
		written = append(written, job.path)
	}
	return written, nil
}
