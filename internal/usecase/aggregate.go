package usecase

import (
	"errors"
	"sort"

	"museumtopics/internal/domain"
)

// Aggregate merges finished runs into one result. Topics and assignments are
// flattened in column order with the combined run last; within a run the
// outlier bucket comes first, then topics by id, and assignments follow the
// original row order.
func Aggregate(columns []string, runs map[string]domain.RunResult, combined *domain.RunResult, engagement domain.EngagementFrequency) *domain.PipelineResult {
	result := &domain.PipelineResult{
		PerColumn:  make(map[string]domain.RunResult, len(runs)),
		Columns:    append([]string(nil), columns...),
		Engagement: engagement,
	}

	ordered := make([]domain.RunResult, 0, len(columns)+1)
	for _, col := range columns {
		run, ok := runs[col]
		if !ok {
			continue
		}
		result.PerColumn[col] = run
		ordered = append(ordered, run)
	}
	if combined != nil {
		result.Combined = *combined
		ordered = append(ordered, *combined)
	}

	for _, run := range ordered {
		if run.Err != nil || run.State == StateFailed.String() {
			result.Failures = append(result.Failures, runFailure(run))
			continue
		}
		topics := append([]domain.Topic(nil), run.Topics...)
		sort.SliceStable(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
		result.Topics = append(result.Topics, topics...)

		assignments := append([]domain.TopicAssignment(nil), run.Assignments...)
		sort.SliceStable(assignments, func(i, j int) bool { return assignments[i].RowIndex < assignments[j].RowIndex })
		result.Assignments = append(result.Assignments, assignments...)
	}
	return result
}

func runFailure(run domain.RunResult) domain.RunFailure {
	f := domain.RunFailure{Column: run.Column, Err: run.Err}
	var se *domain.StageError
	if errors.As(run.Err, &se) {
		f.Stage = se.Stage
		f.Err = se.Err
	}
	return f
}
