package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/pocketomega/pocket-eli5/internal/config"
	"github.com/pocketomega/pocket-eli5/internal/llm"
	"github.com/pocketomega/pocket-eli5/internal/llm/openai"
	"github.com/pocketomega/pocket-eli5/internal/pipeline"
	"github.com/pocketomega/pocket-eli5/internal/prompt"
	"github.com/pocketomega/pocket-eli5/internal/telemetry"
	"github.com/pocketomega/pocket-eli5/internal/youtube"
)

type commandContext struct {
	configFlag *string
	envFlag    *string
	modeFlag   *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, envFlag, modeFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, envFlag: envFlag, modeFlag: modeFlag}
}

// ensureConfig loads .env, then the TOML file with env overrides, then the
// --mode flag, once per process.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var envPaths []string
		if p := flagValue(c.envFlag); p != "" {
			envPaths = append(envPaths, p)
		}
		config.LoadEnv(envPaths...)

		cfg, path, exists, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if mode := flagValue(c.modeFlag); mode != "" {
			parsed, err := pipeline.ParseMode(mode)
			if err != nil {
				c.configErr = err
				return
			}
			cfg.Pipeline.Mode = string(parsed)
		}
		if exists {
			log.Printf("[Config] Loaded %s", path)
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

// app bundles what every pipeline-running command needs.
type app struct {
	cfg   *config.Config
	deps  pipeline.Deps
	model string // empty when the placeholder generator is in use
}

// buildApp wires the generator, fetcher and prompts from config. Without
// an API key the run completes on placeholder text.
func (c *commandContext) buildApp() (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	var (
		gen   llm.TextGenerator = llm.PlaceholderGenerator{}
		model string
	)
	if cfg.HasAPIKey() {
		client, err := openai.NewClient(cfg.OpenAI())
		if err != nil {
			return nil, fmt.Errorf("initialize LLM client: %w", err)
		}
		gen = llm.NewChatGenerator(client)
		model = cfg.LLM.Model
	}

	fetcher := youtube.NewFetcher(youtube.WithLanguage(cfg.Pipeline.Language))
	prompts := prompt.NewPromptLoader(cfg.Pipeline.PromptsDir, cfg.Pipeline.RulesPath)

	opts := cfg.PipelineOptions()
	if budget := llm.TranscriptBudget(model); budget > 0 {
		opts.MaxTranscriptRunes = budget
	}

	return &app{
		cfg: cfg,
		deps: pipeline.Deps{
			Generator: gen,
			Fetcher:   fetcher,
			Prompts:   prompts,
			Options:   opts,
		},
		model: model,
	}, nil
}

// run executes the pipeline for one URL.
func (a *app) run(ctx context.Context, url string) (*pipeline.State, error) {
	return pipeline.Run(ctx, a.deps, url)
}

// startTelemetry installs the OTLP exporter when configured. The returned
// func flushes pending spans.
func (a *app) startTelemetry(ctx context.Context) func() {
	shutdown, err := telemetry.Setup(ctx, telemetry.Settings{
		Endpoint:    a.cfg.Telemetry.OTLPEndpoint,
		ServiceName: a.cfg.Telemetry.ServiceName,
	})
	if err != nil {
		log.Printf("[Telemetry] Disabled: %v", err)
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("[Telemetry] Shutdown error: %v", err)
		}
	}
}

func (a *app) describeLLM() string {
	if a.model == "" {
		return "placeholder text (no LLM_API_KEY)"
	}
	return fmt.Sprintf("%s @ %s", a.model, a.cfg.LLM.BaseURL)
}

func flagValue(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
