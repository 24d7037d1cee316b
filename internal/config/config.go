package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/pocketomega/pocket-eli5/internal/llm/openai"
	"github.com/pocketomega/pocket-eli5/internal/pipeline"
)

//go:embed sample_config.toml
var sampleConfig string

// DefaultConfigFile is looked up in the working directory when no path is given.
const DefaultConfigFile = "eli5.toml"

// LLM configures the OpenAI-compatible endpoint.
type LLM struct {
	APIKey         string   `toml:"api_key"`
	BaseURL        string   `toml:"base_url"`
	Model          string   `toml:"model"`
	Temperature    *float64 `toml:"temperature"`
	MaxTokens      int      `toml:"max_tokens"`
	MaxRetries     int      `toml:"max_retries"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Pipeline tunes topic extraction and processing.
type Pipeline struct {
	MaxTopics         int    `toml:"max_topics"`
	QuestionsPerTopic int    `toml:"questions_per_topic"`
	Mode              string `toml:"mode"`
	StageRetries      int    `toml:"stage_retries"`
	RetryWaitMillis   int    `toml:"retry_wait_ms"`
	Language          string `toml:"language"`
	Output            string `toml:"output"`
	PromptsDir        string `toml:"prompts_dir"`
	RulesPath         string `toml:"rules_path"`
}

// Web configures the HTTP server.
type Web struct {
	Port string `toml:"port"`
}

// Telemetry configures trace export.
type Telemetry struct {
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
}

// Config is the full application configuration.
type Config struct {
	LLM       LLM       `toml:"llm"`
	Pipeline  Pipeline  `toml:"pipeline"`
	Web       Web       `toml:"web"`
	Telemetry Telemetry `toml:"telemetry"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM: LLM{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			MaxRetries:     1,
			TimeoutSeconds: 120,
		},
		Pipeline: Pipeline{
			MaxTopics:         5,
			QuestionsPerTopic: 3,
			Mode:              string(pipeline.ModeBatchNode),
			StageRetries:      2,
			RetryWaitMillis:   1000,
			Language:          "en",
			Output:            "youtube_eli5_summary.html",
		},
		Web:       Web{Port: "8080"},
		Telemetry: Telemetry{ServiceName: "pocket-eli5"},
	}
}

// Load reads the TOML file at path (or DefaultConfigFile when path is empty),
// then applies environment overrides. A missing file is not an error.
// It returns the config, the resolved path and whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = DefaultConfigFile
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false, fmt.Errorf("resolve config path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return abs, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %q is a directory", abs)
	}
	return abs, true, nil
}

// applyEnv lets environment variables (and .env) win over the file.
func (c *Config) applyEnv() {
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.LLM.Model, "LLM_MODEL")
	if v, ok := lookup("LLM_TEMPERATURE"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.LLM.Temperature = &f
		}
	}
	setInt(&c.LLM.MaxTokens, "LLM_MAX_TOKENS")
	setInt(&c.LLM.MaxRetries, "LLM_MAX_RETRIES")
	setInt(&c.LLM.TimeoutSeconds, "LLM_HTTP_TIMEOUT_SECONDS")

	setInt(&c.Pipeline.MaxTopics, "ELI5_MAX_TOPICS")
	setInt(&c.Pipeline.QuestionsPerTopic, "ELI5_QUESTIONS_PER_TOPIC")
	setString(&c.Pipeline.Mode, "ELI5_MODE")
	setInt(&c.Pipeline.StageRetries, "ELI5_STAGE_RETRIES")
	setString(&c.Pipeline.Language, "ELI5_LANGUAGE")
	setString(&c.Pipeline.Output, "ELI5_OUTPUT")
	setString(&c.Pipeline.PromptsDir, "PROMPTS_DIR")
	setString(&c.Pipeline.RulesPath, "RULES_PATH")

	setString(&c.Web.Port, "WEB_PORT")
	setString(&c.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&c.Telemetry.ServiceName, "OTEL_SERVICE_NAME")
}

func (c *Config) normalize() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.Pipeline.Mode = strings.ToLower(strings.TrimSpace(c.Pipeline.Mode))
	if c.Pipeline.Mode == "" {
		c.Pipeline.Mode = string(pipeline.ModeBatchNode)
	}
	if c.Pipeline.Output == "" {
		c.Pipeline.Output = Default().Pipeline.Output
	}
	if c.Web.Port == "" {
		c.Web.Port = Default().Web.Port
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := pipeline.ParseMode(c.Pipeline.Mode); err != nil {
		return err
	}
	if c.Pipeline.MaxTopics < 1 {
		return fmt.Errorf("pipeline.max_topics must be at least 1, got %d", c.Pipeline.MaxTopics)
	}
	if c.Pipeline.QuestionsPerTopic < 1 {
		return fmt.Errorf("pipeline.questions_per_topic must be at least 1, got %d", c.Pipeline.QuestionsPerTopic)
	}
	if c.Pipeline.StageRetries < 1 {
		return fmt.Errorf("pipeline.stage_retries must be at least 1, got %d", c.Pipeline.StageRetries)
	}
	if c.Pipeline.RetryWaitMillis < 0 {
		return fmt.Errorf("pipeline.retry_wait_ms cannot be negative")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries cannot be negative, got %d", c.LLM.MaxRetries)
	}
	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("llm.temperature must be between 0.0 and 2.0, got %f", *t)
	}
	return nil
}

// HasAPIKey reports whether a real model can be used.
func (c *Config) HasAPIKey() bool { return c.LLM.APIKey != "" }

// OpenAI converts the LLM section into a client config.
func (c *Config) OpenAI() *openai.Config {
	oc := &openai.Config{
		APIKey:      c.LLM.APIKey,
		BaseURL:     c.LLM.BaseURL,
		Model:       c.LLM.Model,
		MaxTokens:   c.LLM.MaxTokens,
		MaxRetries:  c.LLM.MaxRetries,
		HTTPTimeout: time.Duration(c.LLM.TimeoutSeconds) * time.Second,
	}
	if c.LLM.Temperature != nil {
		t := float32(*c.LLM.Temperature)
		oc.Temperature = &t
	}
	return oc
}

// PipelineOptions converts the pipeline section into run options.
func (c *Config) PipelineOptions() pipeline.Options {
	mode, _ := pipeline.ParseMode(c.Pipeline.Mode)
	return pipeline.Options{
		MaxTopics:         c.Pipeline.MaxTopics,
		QuestionsPerTopic: c.Pipeline.QuestionsPerTopic,
		Mode:              mode,
		MaxRetries:        c.Pipeline.StageRetries,
		RetryWait:         time.Duration(c.Pipeline.RetryWaitMillis) * time.Millisecond,
	}
}

// CreateSample writes a commented sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
