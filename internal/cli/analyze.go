package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"museumtopics/config"
	"museumtopics/internal/adapter/analyzer"
	"museumtopics/internal/adapter/clustering"
	"museumtopics/internal/adapter/embedding"
	"museumtopics/internal/adapter/export"
	"museumtopics/internal/adapter/labeler"
	"museumtopics/internal/adapter/reduction"
	"museumtopics/internal/adapter/survey"
	"museumtopics/internal/domain"
	"museumtopics/internal/logger"
	"museumtopics/internal/observability"
	"museumtopics/internal/port"
	"museumtopics/internal/usecase"
)

type analyzeFlags struct {
	output      string
	assignments string
	engagement  string
	seedsFile   string
	parallel    int
	topWords    int
	noSeeds     bool
	json        bool
	noProgress  bool
}

var analyzeOpts analyzeFlags

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Find topics in survey answers",
	Long: `Analyze a survey export. Each open-ended question is clustered on its own and
once more with all answers of a row joined together. Topics are written to the
topic summary CSV and summarised on the console.

Examples:
  museumtopics analyze                                   # Bundled sample survey
  museumtopics analyze export.csv -o topics.csv          # Analyze an export
  museumtopics analyze export.csv --assignments rows.csv # Also write row assignments
  museumtopics analyze --no-seeds --json                 # Unsteered, machine-readable`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeOpts.output, "output", "o", "", "topic summary CSV (default from config)")
	f.StringVar(&analyzeOpts.assignments, "assignments", "", "write per-row topic assignments to this CSV")
	f.StringVar(&analyzeOpts.engagement, "engagement", "", "write the engagement tally to this CSV")
	f.StringVar(&analyzeOpts.seedsFile, "seeds", "", "YAML file with seed keyword groups (replaces the configured ones)")
	f.IntVarP(&analyzeOpts.parallel, "parallel", "p", 0, "number of column runs to execute at once (default from config)")
	f.IntVar(&analyzeOpts.topWords, "top-words", 0, "also report the N most frequent words")
	f.BoolVar(&analyzeOpts.noSeeds, "no-seeds", false, "disable seed topic guidance")
	f.BoolVar(&analyzeOpts.json, "json", false, "output as JSON")
	f.BoolVar(&analyzeOpts.noProgress, "no-progress", false, "hide embedding progress bars")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	path := resolve(cfg.Input.Path)
	if len(args) > 0 {
		path = args[0]
	}
	return analyze(cmd.Context(), cfg, path, analyzeOpts, cmd.OutOrStdout())
}

// analyze runs one survey through the pipeline. Configuration problems are
// reported before anything is embedded or written.
func analyze(ctx context.Context, cfg *config.Config, path string, flags analyzeFlags, out io.Writer) error {
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx).With("component", "analyze")

	reader, err := survey.NewReader(cfg.Input)
	if err != nil {
		return err
	}
	table, err := reader.ReadFile(path)
	if err != nil {
		return err
	}
	log.Info("survey loaded", "path", path, "rows", table.Len())

	seeds, err := loadSeeds(cfg, flags)
	if err != nil {
		return err
	}
	in := surveyInput(table, cfg.Input.Columns)
	tokenizer := analyzer.NewTokenizer(analyzer.NewStopWordPolicy(cfg.StopWords.Extra...))

	tp, err := observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return domain.ModelUnavailable("tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	shared := embedding.NewShared(cfg)
	defer shared.Close()
	emb, err := shared.Get()
	if err != nil {
		return err
	}
	if p, ok := emb.(port.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}

	p := cfg.Pipeline
	workers := p.Workers
	if flags.parallel > 0 {
		workers = flags.parallel
	}
	var progress func(string, int) port.ProgressFunc
	if !flags.json && !flags.noProgress {
		progress = progressBars(os.Stderr)
	}

	orchestrator := usecase.NewOrchestrator(usecase.Dependencies{
		Embedder:  emb,
		Reducer:   reduction.NewPCA(p.ReductionDims, p.MinReductionDocs),
		Clusterer: clustering.NewDensity(p.MinClusterSize, p.MinSamples, p.DensityQuantile, p.Epsilon),
		Labeler:   labeler.NewCTFIDF(tokenizer, p.TopKeywords, p.LabelWords, p.LowConfidenceBelow),
		Seeds:     seeds,
		Tracer:    tp.Tracer(),
	}, usecase.Options{
		BatchSize:            cfg.Embedding.BatchSize,
		SeedWeight:           p.SeedWeight,
		Workers:              workers,
		Combined:             p.Combined,
		EngagementCategories: cfg.Engagement.Categories,
		Progress:             progress,
	})

	result, err := orchestrator.Run(ctx, in)
	if err != nil {
		return err
	}

	tables := export.Tables{
		TopicsPath:      firstNonEmpty(flags.output, resolve(cfg.Output.TopicsPath)),
		AssignmentsPath: firstNonEmpty(flags.assignments, resolve(cfg.Output.AssignmentsPath)),
		EngagementPath:  firstNonEmpty(flags.engagement, resolve(cfg.Output.EngagementPath)),
	}
	written, err := tables.Write(result)
	if err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	log.Info("results written", "files", written)

	report := analysisReport{
		RunID:   runID,
		Input:   path,
		Rows:    table.Len(),
		Headers: headerRoles(table, cfg.Input.Columns),
		Model:   emb.ModelName(),
		Result:  result,
		Written: written,
	}
	if flags.topWords > 0 {
		report.TopWords = usecase.TopWordFrequencies(usecase.CombineColumns(in.TextColumns), analyzer.NewNormalizer(), tokenizer, flags.topWords)
	}

	if flags.json {
		if err := printJSON(out, report); err != nil {
			return err
		}
	} else {
		printSummary(out, report)
	}

	if result.Failed() {
		errs := make([]error, len(result.Failures))
		for i, f := range result.Failures {
			errs[i] = f
		}
		return fmt.Errorf("%d of %d runs failed: %w", len(result.Failures), len(result.Columns)+boolCount(p.Combined), errors.Join(errs...))
	}
	return nil
}

// surveyInput maps the configured headers to their question roles. Roles,
// not header text, name the runs in every output.
func surveyInput(table *survey.Table, cols config.ColumnsConfig) usecase.Input {
	return usecase.Input{
		TextColumns: []usecase.Column{
			{Name: "emotions", Values: table.Column(cols.Emotions)},
			{Name: "memorable", Values: table.Column(cols.Memorable)},
			{Name: "takeaway", Values: table.Column(cols.Takeaway)},
		},
		Engagement: table.Column(cols.Engagement),
	}
}

func headerRoles(table *survey.Table, cols config.ColumnsConfig) map[string]string {
	return map[string]string{
		"emotions":   table.Header(cols.Emotions),
		"memorable":  table.Header(cols.Memorable),
		"takeaway":   table.Header(cols.Takeaway),
		"engagement": table.Header(cols.Engagement),
	}
}

// loadSeeds picks the seed groups: none with --no-seeds, a YAML list of
// groups with --seeds, the configured ones otherwise.
func loadSeeds(cfg *config.Config, flags analyzeFlags) (*usecase.SeedTopicGuide, error) {
	if flags.noSeeds {
		return nil, nil
	}
	groups := cfg.Seeds
	if flags.seedsFile != "" {
		data, err := os.ReadFile(flags.seedsFile)
		if err != nil {
			return nil, &domain.ConfigurationError{Path: flags.seedsFile, Err: err}
		}
		groups = nil
		if err := yaml.Unmarshal(data, &groups); err != nil {
			return nil, &domain.ConfigurationError{Path: flags.seedsFile, Err: fmt.Errorf("seed groups must be a list of keyword lists: %w", err)}
		}
	}
	return usecase.NewSeedTopicGuide(groups, nil), nil
}

// progressBars returns a factory of per-run embedding progress bars.
func progressBars(w io.Writer) func(column string, total int) port.ProgressFunc {
	return func(column string, total int) port.ProgressFunc {
		bar := progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription(fmt.Sprintf("[cyan]Embedding %-9s[reset]", column)),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(w)
			}),
		)
		return func(done, _ int) {
			bar.Set(done)
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}
