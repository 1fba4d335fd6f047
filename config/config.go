package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"museumtopics/internal/domain"
)

// Config holds all configuration for a museumtopics analysis.
type Config struct {
	Input      InputConfig      `yaml:"input"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Seeds      [][]string       `yaml:"seeds"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Engagement EngagementConfig `yaml:"engagement"`
	StopWords  StopWordsConfig  `yaml:"stopwords"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// InputConfig describes the survey export.
type InputConfig struct {
	Path       string        `yaml:"path"`
	Delimiter  string        `yaml:"delimiter"`
	NullTokens []string      `yaml:"null_tokens"`
	Columns    ColumnsConfig `yaml:"columns"`
}

// ColumnsConfig maps each survey question role to its CSV header. Headers may
// be doublestar patterns when exports vary the question text.
type ColumnsConfig struct {
	Emotions   string `yaml:"emotions"`
	Memorable  string `yaml:"memorable"`
	Takeaway   string `yaml:"takeaway"`
	Engagement string `yaml:"engagement"`
}

// TextColumns returns the open-ended question headers in survey order.
func (c ColumnsConfig) TextColumns() []string {
	return []string{c.Emotions, c.Memorable, c.Takeaway}
}

// Required returns every header the loader must find.
func (c ColumnsConfig) Required() []string {
	return []string{c.Emotions, c.Memorable, c.Takeaway, c.Engagement}
}

// PipelineConfig parameterizes reduction, clustering and labeling.
type PipelineConfig struct {
	ReductionDims      int     `yaml:"reduction_dims"`
	MinReductionDocs   int     `yaml:"min_reduction_docs"`
	MinClusterSize     int     `yaml:"min_cluster_size"`
	MinSamples         int     `yaml:"min_samples"`
	DensityQuantile    float64 `yaml:"density_quantile"`
	Epsilon            float64 `yaml:"epsilon"` // fixed neighbourhood radius (0 = adaptive)
	TopKeywords        int     `yaml:"top_keywords"`
	LabelWords         int     `yaml:"label_words"`
	LowConfidenceBelow int     `yaml:"low_confidence_below"`
	SeedWeight         float64 `yaml:"seed_weight"`
	RandomSeed         int64   `yaml:"random_seed"`
	Workers            int     `yaml:"workers"`
	Combined           bool    `yaml:"combined"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider     string        `yaml:"provider"` // "openai", "ollama", "jina", "hashing"
	Model        string        `yaml:"model"`
	BaseURL      string        `yaml:"base_url"`
	APIKeyEnv    string        `yaml:"api_key_env"`
	Dimension    int           `yaml:"dimension"`
	BatchSize    int           `yaml:"batch_size"`
	Timeout      time.Duration `yaml:"timeout"`
	CacheEnabled bool          `yaml:"cache_enabled"`
	CachePath    string        `yaml:"cache_path"`
}

// EngagementConfig lists the ordinal answers to report even when unseen.
type EngagementConfig struct {
	Categories []string `yaml:"categories"`
}

// StopWordsConfig extends the built-in stop-word policy.
type StopWordsConfig struct {
	Extra []string `yaml:"extra"`
}

// OutputConfig holds export paths. Empty paths are not written.
type OutputConfig struct {
	TopicsPath      string `yaml:"topics_path"`
	AssignmentsPath string `yaml:"assignments_path"`
	EngagementPath  string `yaml:"engagement_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig enables OTLP export of pipeline spans when an endpoint is set.
type TracingConfig struct {
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	ServiceName  string  `yaml:"service_name"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// DefaultSeeds are the keyword groups the exhibition team anticipated.
func DefaultSeeds() [][]string {
	return [][]string{
		{"children", "sad", "anger", "cry"},
		{"fear", "hope", "inspiration"},
		{"fear", "shock", "sadness", "u.s"},
		{"never again", "warning", "repeat", "history"},
		{"usa", "sobibor", "trump", "don't forget"},
		{"resist", "kind", "aware", "sadness"},
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Path:       filepath.Join("sample_data", "sample_responses.csv"),
			Delimiter:  ";",
			NullTokens: []string{"", "NaN", "nan", "-NaN", "NA", "N/A", "n/a", "<NA>", "null", "NULL", "None"},
			Columns: ColumnsConfig{
				Emotions:   "What kind of emotions did the exhibit trigger in you?",
				Memorable:  "Is there an item or story from the exhibit that stayed with you? If so, why?",
				Takeaway:   "What is your key takeaway from this exhibition?",
				Engagement: "To what extent did the exhibition move you?",
			},
		},
		Pipeline: PipelineConfig{
			ReductionDims:      5,
			MinReductionDocs:   15,
			MinClusterSize:     3,
			MinSamples:         3,
			DensityQuantile:    0.6,
			TopKeywords:        10,
			LabelWords:         4,
			LowConfidenceBelow: 2,
			SeedWeight:         3,
			RandomSeed:         42,
			Workers:            1,
			Combined:           true,
		},
		Seeds: DefaultSeeds(),
		Embedding: EmbeddingConfig{
			Provider:     "ollama",
			Model:        "all-minilm",
			APIKeyEnv:    "OPENAI_API_KEY",
			Dimension:    384,
			BatchSize:    64,
			Timeout:      60 * time.Second,
			CacheEnabled: true,
			CachePath:    filepath.Join(".museumtopics", "embeddings.db"),
		},
		Engagement: EngagementConfig{
			Categories: []string{"deeply moved", "very moved", "somewhat moved", "not at all"},
		},
		Output: OutputConfig{
			TopicsPath: filepath.Join("sample_data", "sample_topic_summary.csv"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			ServiceName: "museumtopics",
			SampleRate:  1.0,
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for museumtopics.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "museumtopics.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".museumtopics", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return &domain.ConfigurationError{Err: fmt.Errorf(format, args...)}
	}

	if len([]rune(c.Input.Delimiter)) != 1 {
		return invalid("input.delimiter must be a single character, got %q", c.Input.Delimiter)
	}
	for _, col := range c.Input.Columns.Required() {
		if col == "" {
			return invalid("input.columns: every question role needs a header")
		}
	}
	p := c.Pipeline
	switch {
	case p.ReductionDims < 1:
		return invalid("pipeline.reduction_dims must be positive")
	case p.MinClusterSize < 2:
		return invalid("pipeline.min_cluster_size must be at least 2")
	case p.MinSamples < 1:
		return invalid("pipeline.min_samples must be positive")
	case p.DensityQuantile <= 0 || p.DensityQuantile > 1:
		return invalid("pipeline.density_quantile must be in (0, 1]")
	case p.Epsilon < 0:
		return invalid("pipeline.epsilon must not be negative")
	case p.TopKeywords < 1:
		return invalid("pipeline.top_keywords must be positive")
	case p.LabelWords < 1:
		return invalid("pipeline.label_words must be positive")
	case p.SeedWeight < 0:
		return invalid("pipeline.seed_weight must not be negative")
	}
	if c.Embedding.BatchSize < 1 {
		return invalid("embedding.batch_size must be positive")
	}
	return nil
}

// CacheDir returns the directory holding the embedding cache.
func (c *Config) CacheDir() string {
	return filepath.Dir(c.Embedding.CachePath)
}

// EnsureCacheDir ensures the embedding cache directory exists.
func (c *Config) EnsureCacheDir() error {
	return os.MkdirAll(c.CacheDir(), 0755)
}
