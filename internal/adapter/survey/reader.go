// Package survey loads survey exports into an explicit column schema.
package survey

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"museumtopics/config"
	"museumtopics/internal/domain"
)

// Table is a loaded survey with its required columns resolved. Cells are nil
// when the answer is missing.
type Table struct {
	Path    string
	Headers []string
	rows    int
	columns map[string][]*string
	matched map[string]string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return t.rows
}

// Column returns the cells for a configured column name. The name is the one
// from config, even when it matched a header as a pattern.
func (t *Table) Column(name string) []*string {
	return t.columns[name]
}

// Header returns the actual header a configured column resolved to.
func (t *Table) Header(name string) string {
	return t.matched[name]
}

// Reader parses survey CSV exports.
type Reader struct {
	delimiter  rune
	nullTokens map[string]struct{}
	columns    []string
}

// NewReader builds a reader from the input section of the config.
func NewReader(cfg config.InputConfig) (*Reader, error) {
	delim := []rune(cfg.Delimiter)
	if len(delim) != 1 {
		return nil, &domain.ConfigurationError{Err: fmt.Errorf("delimiter must be a single character, got %q", cfg.Delimiter)}
	}
	nulls := make(map[string]struct{}, len(cfg.NullTokens))
	for _, tok := range cfg.NullTokens {
		nulls[tok] = struct{}{}
	}
	return &Reader{
		delimiter:  delim[0],
		nullTokens: nulls,
		columns:    cfg.Columns.Required(),
	}, nil
}

// ReadFile loads the survey at path.
func (r *Reader) ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.ConfigurationError{Path: path, Err: err}
	}
	defer f.Close()

	t, err := r.Read(f)
	if err != nil {
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) && cfgErr.Path == "" {
			cfgErr.Path = path
		}
		return nil, err
	}
	t.Path = path
	return t, nil
}

// Read parses a survey from src. Every configured column must be present.
func (r *Reader) Read(src io.Reader) (*Table, error) {
	cr := csv.NewReader(src)
	cr.Comma = r.delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	headers, err := cr.Read()
	if err == io.EOF {
		return nil, &domain.ConfigurationError{Err: errors.New("survey file is empty")}
	}
	if err != nil {
		return nil, &domain.ConfigurationError{Err: fmt.Errorf("reading header: %w", err)}
	}
	for i, h := range headers {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		headers[i] = strings.TrimSpace(h)
	}

	positions := make(map[string]int, len(r.columns))
	matched := make(map[string]string, len(r.columns))
	for _, name := range r.columns {
		idx := matchHeader(headers, name)
		if idx < 0 {
			return nil, domain.NewMissingColumnError(name)
		}
		positions[name] = idx
		matched[name] = headers[idx]
	}

	columns := make(map[string][]*string, len(positions))
	rows := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &domain.ConfigurationError{Err: fmt.Errorf("reading row %d: %w", rows+1, err)}
		}
		for name, idx := range positions {
			columns[name] = append(columns[name], r.cell(record, idx))
		}
		rows++
	}

	return &Table{
		Headers: headers,
		rows:    rows,
		columns: columns,
		matched: matched,
	}, nil
}

func (r *Reader) cell(record []string, idx int) *string {
	if idx >= len(record) {
		return nil
	}
	v := record[idx]
	if _, ok := r.nullTokens[strings.TrimSpace(v)]; ok {
		return nil
	}
	return &v
}

// matchHeader finds name among headers, exactly first and then as a
// doublestar pattern such as "What kind of emotions*".
func matchHeader(headers []string, name string) int {
	name = strings.TrimSpace(name)
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	for i, h := range headers {
		ok, err := doublestar.Match(name, h)
		if err == nil && ok {
			return i
		}
	}
	return -1
}
