// Package pipeline wires the YouTube ELI5 stages into a core.Flow:
// fetch the video, extract topics and questions, explain every topic
// simply, and render the HTML report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/pocketomega/pocket-eli5/internal/core"
	"github.com/pocketomega/pocket-eli5/internal/llm"
	"github.com/pocketomega/pocket-eli5/internal/prompt"
	"github.com/pocketomega/pocket-eli5/internal/report"
	"github.com/pocketomega/pocket-eli5/internal/youtube"
)

const tracerName = "github.com/pocketomega/pocket-eli5/internal/pipeline"

// ActionNoTranscript routes a video without captions straight to the report.
const ActionNoTranscript core.Action = "no_transcript"

// State is the shared store of one pipeline run.
type State struct {
	RunID     string
	VideoInfo youtube.VideoInfo
	Topics    []report.Topic
	HTML      string
}

// Mode selects how topics are processed.
type Mode string

const (
	// ModeBatchNode processes all topics in a single BatchNode.
	ModeBatchNode Mode = "batch-node"
	// ModeBatchFlow re-runs a per-topic sub-flow once per topic index.
	ModeBatchFlow Mode = "batch-flow"
)

// ParseMode validates a mode name. The empty string selects ModeBatchNode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeBatchNode:
		return ModeBatchNode, nil
	case ModeBatchFlow:
		return ModeBatchFlow, nil
	}
	return "", fmt.Errorf("unknown pipeline mode %q (want %q or %q)", s, ModeBatchNode, ModeBatchFlow)
}

const (
	defaultMaxTopics          = 5
	defaultQuestionsPerTopic  = 3
	defaultMaxTranscriptRunes = 12000
)

// Options tunes a run. Zero values select the defaults.
type Options struct {
	MaxTopics          int
	QuestionsPerTopic  int
	Mode               Mode
	MaxRetries         int           // Exec attempts per LLM stage
	RetryWait          time.Duration // pause between attempts
	MaxTranscriptRunes int           // transcript is cut to this length before prompting
}

func (o Options) normalize() Options {
	if o.MaxTopics <= 0 {
		o.MaxTopics = defaultMaxTopics
	}
	if o.QuestionsPerTopic <= 0 {
		o.QuestionsPerTopic = defaultQuestionsPerTopic
	}
	if o.Mode == "" {
		o.Mode = ModeBatchNode
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 1
	}
	if o.MaxTranscriptRunes <= 0 {
		o.MaxTranscriptRunes = defaultMaxTranscriptRunes
	}
	return o
}

// VideoFetcher resolves a URL into video metadata and a transcript.
// *youtube.Fetcher implements it.
type VideoFetcher interface {
	Fetch(ctx context.Context, url string) youtube.VideoInfo
}

// Deps are the collaborators a run needs. Nil fields get offline-safe
// defaults: the placeholder generator, the youtube.com fetcher and the
// embedded prompts.
type Deps struct {
	Generator llm.TextGenerator
	Fetcher   VideoFetcher
	Prompts   *prompt.PromptLoader
	Options   Options
	Tracer    trace.Tracer // parent of the flow spans; global provider when nil
}

func (d Deps) withDefaults() Deps {
	if d.Generator == nil {
		d.Generator = llm.PlaceholderGenerator{}
	}
	if d.Fetcher == nil {
		d.Fetcher = youtube.NewFetcher()
	}
	if d.Prompts == nil {
		d.Prompts = prompt.NewPromptLoader("", "")
	}
	if d.Tracer == nil {
		d.Tracer = otel.Tracer(tracerName)
	}
	d.Options = d.Options.normalize()
	return d
}
