package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"museumtopics/internal/adapter/analyzer"
	"museumtopics/internal/adapter/labeler"
	"museumtopics/internal/domain"
	"museumtopics/internal/logger"
	"museumtopics/internal/observability"
	"museumtopics/internal/port"
)

// Column is one open-ended question with one optional answer per row.
type Column struct {
	Name   string
	Values []*string
}

// Input is everything one analysis needs from the survey.
type Input struct {
	TextColumns []Column
	Engagement  []*string
}

// Options tune how runs are executed.
type Options struct {
	BatchSize            int
	SeedWeight           float64
	Workers              int
	Combined             bool
	EngagementCategories []string
	// Progress, when set, is asked for a reporter at the start of each
	// run's embedding stage.
	Progress func(column string, total int) port.ProgressFunc
}

// Dependencies are the stage implementations. Seeds may be nil.
type Dependencies struct {
	Normalizer *analyzer.Normalizer
	Embedder   port.Embedder
	Reducer    port.Reducer
	Clusterer  port.Clusterer
	Labeler    *labeler.CTFIDF
	Seeds      *SeedTopicGuide
	Tracer     trace.Tracer
}

// Orchestrator runs the topic pipeline once per text column and once over
// all text columns joined per row.
type Orchestrator struct {
	deps Dependencies
	opts Options
}

func NewOrchestrator(deps Dependencies, opts Options) *Orchestrator {
	if deps.Normalizer == nil {
		deps.Normalizer = analyzer.NewNormalizer()
	}
	if deps.Labeler == nil {
		deps.Labeler = labeler.NewCTFIDF(nil, 0, 0, 0)
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer(observability.TracerName)
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 64
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Orchestrator{deps: deps, opts: opts}
}

type job struct {
	name   string
	values []*string
}

// Run analyses in. Only malformed input is returned as an error; failed
// runs are recorded in the result's Failures and completed runs are kept.
func (o *Orchestrator) Run(ctx context.Context, in Input) (*domain.PipelineResult, error) {
	if len(in.TextColumns) == 0 {
		return nil, &domain.ConfigurationError{Err: errors.New("no text columns selected")}
	}
	if o.deps.Embedder == nil || o.deps.Reducer == nil || o.deps.Clusterer == nil {
		return nil, domain.ModelUnavailable("pipeline stages are not configured")
	}
	rows := len(in.TextColumns[0].Values)
	seen := make(map[string]bool, len(in.TextColumns))
	for _, c := range in.TextColumns {
		if c.Name == "" || c.Name == domain.CombinedColumn || seen[c.Name] {
			return nil, &domain.ConfigurationError{Column: c.Name, Err: errors.New("column name must be unique and not reserved")}
		}
		seen[c.Name] = true
		if len(c.Values) != rows {
			return nil, &domain.ConfigurationError{Column: c.Name, Err: fmt.Errorf("has %d rows, expected %d", len(c.Values), rows)}
		}
	}

	jobs := make([]job, 0, len(in.TextColumns)+1)
	columns := make([]string, 0, len(in.TextColumns))
	for _, c := range in.TextColumns {
		jobs = append(jobs, job{name: c.Name, values: c.Values})
		columns = append(columns, c.Name)
	}
	if o.opts.Combined {
		jobs = append(jobs, job{name: domain.CombinedColumn, values: CombineColumns(in.TextColumns)})
	}

	log := logger.FromContext(ctx)
	log.Info("starting analysis", "columns", len(columns), "rows", rows, "combined", o.opts.Combined, "workers", o.opts.Workers)

	results := make([]domain.RunResult, len(jobs))
	if o.opts.Workers == 1 {
		for i, j := range jobs {
			results[i] = o.runOrSkip(ctx, j)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(o.opts.Workers)
		for i, j := range jobs {
			i, j := i, j
			g.Go(func() error {
				results[i] = o.runOrSkip(ctx, j)
				return nil
			})
		}
		g.Wait()
	}

	runs := make(map[string]domain.RunResult, len(columns))
	var combined *domain.RunResult
	for i, j := range jobs {
		if j.name == domain.CombinedColumn {
			combined = &results[i]
			continue
		}
		runs[j.name] = results[i]
	}

	engagement := TallyEngagement(in.Engagement, o.opts.EngagementCategories)
	result := Aggregate(columns, runs, combined, engagement)
	log.Info("analysis finished", "topics", len(result.Topics), "assignments", len(result.Assignments), "failed_runs", len(result.Failures))
	return result, nil
}

func (o *Orchestrator) runOrSkip(ctx context.Context, j job) domain.RunResult {
	if err := ctx.Err(); err != nil {
		logger.FromContext(ctx).Warn("run skipped", "column", j.name, "error", err)
		return domain.RunResult{
			Column: j.name,
			State:  StateFailed.String(),
			Err:    &domain.StageError{Stage: "skipped", Column: j.name, Err: err},
		}
	}
	return o.RunColumn(ctx, j.name, j.values)
}

// run tracks one column through the state machine.
type run struct {
	state  State
	result domain.RunResult
	span   trace.Span
	log    *slog.Logger
}

func (r *run) advance() {
	r.state = r.state.next()
	r.log.Debug("stage", "state", r.state.String())
}

func (r *run) fail(err error) domain.RunResult {
	stage := r.state.Stage()
	switch r.state {
	case StateEmbedding, StateReducing, StateClustering:
		if !errors.Is(err, domain.ErrModelUnavailable) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
		}
	}
	r.state = StateFailed
	r.result.State = r.state.String()
	r.result.Err = &domain.StageError{Stage: stage, Column: r.result.Column, Err: err}
	observability.RecordError(r.span, err)
	r.log.Error("run failed", "stage", stage, "error", err)
	return r.result
}

func (r *run) warn(msg string) {
	r.result.Warnings = append(r.result.Warnings, msg)
	r.log.Warn(msg, "column", r.result.Column)
}

func (r *run) done() domain.RunResult {
	r.state = StateDone
	r.result.State = r.state.String()
	return r.result
}

// RunColumn drives one column from Idle to Done or Failed.
func (o *Orchestrator) RunColumn(ctx context.Context, name string, values []*string) domain.RunResult {
	ctx, span := observability.StartRunSpan(ctx, o.deps.Tracer, name, len(values))
	defer span.End()

	r := &run{
		state:  StateIdle,
		result: domain.RunResult{Column: name},
		span:   span,
		log:    logger.FromContext(ctx).With("column", name),
	}

	r.advance() // Normalizing
	norm := o.deps.Normalizer.NormalizeColumn(values)
	r.result.Excluded = norm.Excluded
	if norm.Len() == 0 {
		r.warn(fmt.Sprintf("%v: no usable answers in column", domain.ErrEmptyInput))
		observability.RecordRunResult(span, StateDone.String(), 0, 0, 0)
		return r.done()
	}

	r.advance() // Embedding
	vectors, err := o.embed(ctx, name, norm.Texts)
	if err != nil {
		return r.fail(err)
	}
	if moved, err := o.deps.Seeds.Steer(ctx, o.deps.Embedder, norm.Texts, vectors, o.opts.SeedWeight); err != nil {
		return r.fail(err)
	} else if moved > 0 {
		r.log.Debug("seed guidance applied", "documents", moved)
	}

	r.advance() // Reducing
	reduced, err := traced(ctx, o.deps.Tracer, r, func(ctx context.Context) ([][]float64, error) {
		return o.deps.Reducer.Reduce(ctx, vectors)
	})
	if err != nil {
		return r.fail(err)
	}
	if len(reduced) != len(vectors) {
		return r.fail(domain.ModelUnavailable("reducer returned %d rows for %d documents", len(reduced), len(vectors)))
	}

	r.advance() // Clustering
	labels, err := traced(ctx, o.deps.Tracer, r, func(ctx context.Context) ([]int, error) {
		return o.deps.Clusterer.Cluster(ctx, reduced)
	})
	if err != nil {
		return r.fail(err)
	}
	if len(labels) != len(reduced) {
		return r.fail(domain.ModelUnavailable("clusterer returned %d labels for %d documents", len(labels), len(reduced)))
	}

	r.advance() // Labeling
	raw := make([]string, norm.Len())
	for i, row := range norm.Indices {
		raw[i] = strings.TrimSpace(*values[row])
	}
	topics, err := traced(ctx, o.deps.Tracer, r, func(ctx context.Context) ([]domain.Topic, error) {
		return o.deps.Labeler.Label(ctx, labeler.Input{
			Column:  name,
			Cleaned: norm.Texts,
			Raw:     raw,
			Points:  reduced,
			Labels:  labels,
		})
	})
	if err != nil {
		return r.fail(err)
	}

	outliers := 0
	r.result.Assignments = make([]domain.TopicAssignment, norm.Len())
	for i, row := range norm.Indices {
		if labels[i] == domain.OutlierTopicID {
			outliers++
		}
		r.result.Assignments[i] = domain.TopicAssignment{RowIndex: row, TopicID: labels[i], Column: name}
	}
	if outliers > 0 {
		topics = append([]domain.Topic{{
			ID:            domain.OutlierTopicID,
			Label:         "outliers",
			DocumentCount: outliers,
			Column:        name,
		}}, topics...)
	}
	r.result.Topics = topics
	if outliers == norm.Len() {
		r.warn(fmt.Sprintf("%v: every answer was an outlier", domain.ErrEmptyInput))
	}

	observability.RecordRunResult(span, StateDone.String(), norm.Len(), len(topics), outliers)
	r.log.Info("run complete", "documents", norm.Len(), "excluded", len(norm.Excluded), "topics", len(r.result.ClusteredTopics()), "outliers", outliers)
	return r.done()
}

// traced runs fn inside a span named after the run's current stage.
func traced[T any](ctx context.Context, tracer trace.Tracer, r *run, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := observability.StartStageSpan(ctx, tracer, r.state.Stage(), r.result.Column)
	defer span.End()
	out, err := fn(ctx)
	observability.RecordError(span, err)
	return out, err
}

// embed runs the embedder in batches and reports progress after each one.
func (o *Orchestrator) embed(ctx context.Context, column string, texts []string) ([][]float64, error) {
	ctx, span := observability.StartStageSpan(ctx, o.deps.Tracer, StateEmbedding.Stage(), column)
	defer span.End()

	var progress port.ProgressFunc
	if o.opts.Progress != nil {
		progress = o.opts.Progress(column, len(texts))
	}

	out := make([][]float64, 0, len(texts))
	dim := -1
	for start := 0; start < len(texts); start += o.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			observability.RecordError(span, err)
			return nil, err
		}
		end := min(start+o.opts.BatchSize, len(texts))
		batch, err := o.deps.Embedder.Embed(ctx, texts[start:end])
		if err != nil {
			observability.RecordError(span, err)
			return nil, err
		}
		if len(batch) != end-start {
			err := domain.ModelUnavailable("embedder returned %d vectors for %d texts", len(batch), end-start)
			observability.RecordError(span, err)
			return nil, err
		}
		for _, v := range toFloat64(batch) {
			if dim < 0 {
				dim = len(v)
			}
			if len(v) != dim || dim == 0 {
				err := domain.ModelUnavailable("embedder returned a %d-dimensional vector, expected %d", len(v), dim)
				observability.RecordError(span, err)
				return nil, err
			}
			out = append(out, v)
		}
		if progress != nil {
			progress(end, len(texts))
		}
	}
	return out, nil
}

// CombineColumns joins each row's non-blank answers with a space. Rows
// without any answer are nil.
func CombineColumns(columns []Column) []*string {
	if len(columns) == 0 {
		return nil
	}
	out := make([]*string, len(columns[0].Values))
	for row := range out {
		var parts []string
		for _, c := range columns {
			if row >= len(c.Values) || analyzer.IsNull(c.Values[row]) {
				continue
			}
			parts = append(parts, strings.TrimSpace(*c.Values[row]))
		}
		if len(parts) == 0 {
			continue
		}
		joined := strings.Join(parts, " ")
		out[row] = &joined
	}
	return out
}
