package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"museumtopics/internal/domain"
)

func TestAggregate(t *testing.T) {
	runs := map[string]domain.RunResult{
		"takeaway": {
			Column: "takeaway",
			State:  StateDone.String(),
			Topics: []domain.Topic{
				{ID: 1, Column: "takeaway", DocumentCount: 1},
				{ID: domain.OutlierTopicID, Column: "takeaway", DocumentCount: 1},
				{ID: 0, Column: "takeaway", DocumentCount: 2},
			},
			Assignments: []domain.TopicAssignment{
				{RowIndex: 3, TopicID: 0, Column: "takeaway"},
				{RowIndex: 0, TopicID: 1, Column: "takeaway"},
				{RowIndex: 2, TopicID: 0, Column: "takeaway"},
				{RowIndex: 1, TopicID: -1, Column: "takeaway"},
			},
		},
		"emotions": {
			Column: "emotions",
			State:  StateFailed.String(),
			Err:    &domain.StageError{Stage: "embedding", Column: "emotions", Err: context.DeadlineExceeded},
		},
	}
	combined := domain.RunResult{Column: domain.CombinedColumn, State: StateDone.String(),
		Topics:      []domain.Topic{{ID: 0, Column: domain.CombinedColumn, DocumentCount: 1}},
		Assignments: []domain.TopicAssignment{{RowIndex: 0, TopicID: 0, Column: domain.CombinedColumn}},
	}

	got := Aggregate([]string{"emotions", "takeaway"}, runs, &combined, domain.EngagementFrequency{})

	var ids []int
	for _, topic := range got.Topics {
		ids = append(ids, topic.ID)
	}
	assert.Equal(t, []int{-1, 0, 1, 0}, ids)
	assert.Equal(t, domain.CombinedColumn, got.Topics[3].Column)

	var rows []int
	for _, a := range got.Assignments {
		rows = append(rows, a.RowIndex)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 0}, rows)

	require.Len(t, got.Failures, 1)
	assert.Equal(t, "emotions", got.Failures[0].Column)
	assert.Equal(t, "embedding", got.Failures[0].Stage)
	assert.ErrorIs(t, got.Failures[0].Err, context.DeadlineExceeded)
	assert.True(t, got.Failed())

	run, ok := got.Run(domain.CombinedColumn)
	assert.True(t, ok)
	assert.Equal(t, combined.Column, run.Column)

	// inputs are not reordered
	assert.Equal(t, 1, runs["takeaway"].Topics[0].ID)
}
