package survey

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"museumtopics/config"
	"museumtopics/internal/domain"
)

func testInput() config.InputConfig {
	return config.InputConfig{
		Delimiter:  ";",
		NullTokens: []string{"", "NaN", "nan", "NA"},
		Columns: config.ColumnsConfig{
			Emotions:   "Emotions",
			Memorable:  "Memorable",
			Takeaway:   "Takeaway",
			Engagement: "Moved",
		},
	}
}

func values(cells []*string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if c == nil {
			out[i] = "<nil>"
		} else {
			out[i] = *c
		}
	}
	return out
}

func TestReader_Read(t *testing.T) {
	r, err := NewReader(testInput())
	require.NoError(t, err)

	data := "Respondent;Emotions;Memorable;Takeaway;Moved\n" +
		"1;Sadness and anger;The letters;Never again;A lot\n" +
		"2;NaN;;Remember;A lot\n" +
		"3;\"Hope; a little\";The shoes;NA;\n"

	table, err := r.Read(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"Sadness and anger", "<nil>", "Hope; a little"}, values(table.Column("Emotions")))
	assert.Equal(t, []string{"The letters", "<nil>", "The shoes"}, values(table.Column("Memorable")))
	assert.Equal(t, []string{"Never again", "Remember", "<nil>"}, values(table.Column("Takeaway")))
	assert.Equal(t, []string{"A lot", "A lot", "<nil>"}, values(table.Column("Moved")))
}

func TestReader_ShortRowsAreMissing(t *testing.T) {
	r, err := NewReader(testInput())
	require.NoError(t, err)

	table, err := r.Read(strings.NewReader("Emotions;Memorable;Takeaway;Moved\nfear;the train\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"<nil>"}, values(table.Column("Takeaway")))
	assert.Equal(t, []string{"<nil>"}, values(table.Column("Moved")))
}

func TestReader_HeaderPattern(t *testing.T) {
	in := testInput()
	in.Columns.Emotions = "What kind of emotions*"
	r, err := NewReader(in)
	require.NoError(t, err)

	data := "\ufeffWhat kind of emotions did the exhibition trigger?;Memorable;Takeaway;Moved\nawe;x;y;z\n"
	table, err := r.Read(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "What kind of emotions did the exhibition trigger?", table.Header("What kind of emotions*"))
	assert.Equal(t, []string{"awe"}, values(table.Column("What kind of emotions*")))
}

func TestReader_MissingColumn(t *testing.T) {
	r, err := NewReader(testInput())
	require.NoError(t, err)

	_, err = r.Read(strings.NewReader("Emotions;Memorable;Moved\na;b;c\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	var cfgErr *domain.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "Takeaway", cfgErr.Column)
	assert.Contains(t, err.Error(), `"Takeaway"`)
}

func TestReader_EmptyFile(t *testing.T) {
	r, err := NewReader(testInput())
	require.NoError(t, err)
	_, err = r.Read(strings.NewReader(""))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestReader_ReadFile(t *testing.T) {
	r, err := NewReader(testInput())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "responses.csv")
	require.NoError(t, os.WriteFile(path, []byte("Emotions;Memorable;Takeaway;Moved\na;b;c;d\n"), 0644))

	table, err := r.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, table.Path)
	assert.Equal(t, 1, table.Len())

	_, err = r.ReadFile(filepath.Join(t.TempDir(), "absent.csv"))
	var cfgErr *domain.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.NotEmpty(t, cfgErr.Path)
}

func TestNewReader_BadDelimiter(t *testing.T) {
	in := testInput()
	in.Delimiter = ";;"
	_, err := NewReader(in)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestReader_SampleData(t *testing.T) {
	path := filepath.Join("..", "..", "..", "sample_data", "sample_responses.csv")
	if _, err := os.Stat(path); err != nil {
		t.Skip("sample data not present")
	}
	r, err := NewReader(config.DefaultConfig().Input)
	require.NoError(t, err)
	table, err := r.ReadFile(path)
	require.NoError(t, err)
	assert.Greater(t, table.Len(), 0)
}
