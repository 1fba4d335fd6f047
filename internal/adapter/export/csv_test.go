package export

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"museumtopics/internal/domain"
)

func TestWriteTopics(t *testing.T) {
	topics := []domain.Topic{
		{
			ID: 0, Label: "letters_soldiers", Column: "memorable", DocumentCount: 4,
			Keywords: []domain.Keyword{{Term: "letters", Weight: 0.4}, {Term: "soldiers", Weight: 0.4}},
		},
		{ID: domain.OutlierTopicID, Label: "outliers", Column: "memorable", DocumentCount: 2},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTopics(&buf, topics))
	assert.Equal(t,
		"source_column,topic_id,label,top_keywords,document_count\n"+
			"memorable,0,letters_soldiers,letters|soldiers,4\n"+
			"memorable,-1,outliers,,2\n",
		buf.String())
}

func TestWriteTables_HeaderOnlyWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTopics(&buf, nil))
	assert.Equal(t, "source_column,topic_id,label,top_keywords,document_count\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteAssignments(&buf, nil))
	assert.Equal(t, "source_column,original_row_index,topic_id\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteEngagement(&buf, domain.EngagementFrequency{}))
	assert.Equal(t, "category,count\n", buf.String())
}

func TestWriteAssignmentsAndEngagement(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAssignments(&buf, []domain.TopicAssignment{
		{RowIndex: 7, TopicID: 1, Column: "combined"},
		{RowIndex: 9, TopicID: -1, Column: "combined"},
	}))
	assert.Equal(t, "source_column,original_row_index,topic_id\ncombined,7,1\ncombined,9,-1\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteEngagement(&buf, domain.EngagementFrequency{Categories: []domain.CategoryCount{
		{Category: "A lot", Count: 2},
		{Category: "Somewhat, maybe", Count: 1},
		{Category: domain.MissingCategory, Count: 2},
	}}))
	assert.Equal(t, "category,count\nA lot,2\n\"Somewhat, maybe\",1\nmissing,2\n", buf.String())
}

func TestWriteFile_Atomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "topics.csv")

	require.NoError(t, WriteFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "first\n")
		return err
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(data))

	boom := errors.New("boom")
	err = WriteFile(path, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(data), "failed write must leave the previous file intact")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must be cleaned up")
}

func TestTables_Write(t *testing.T) {
	dir := t.TempDir()
	tables := Tables{
		TopicsPath:     filepath.Join(dir, "topics.csv"),
		EngagementPath: filepath.Join(dir, "engagement.csv"),
	}
	result := &domain.PipelineResult{
		Topics: []domain.Topic{{ID: 0, Label: "hope", Column: "takeaway", DocumentCount: 3}},
	}

	written, err := tables.Write(result)
	require.NoError(t, err)
	assert.Equal(t, []string{tables.TopicsPath, tables.EngagementPath}, written)
	assert.FileExists(t, tables.TopicsPath)
	assert.NoFileExists(t, filepath.Join(dir, "assignments.csv"))
}
