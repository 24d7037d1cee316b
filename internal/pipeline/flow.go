package pipeline

import (
	"context"
	"log"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pocketomega/pocket-eli5/internal/core"
	"github.com/pocketomega/pocket-eli5/internal/report"
	"github.com/pocketomega/pocket-eli5/internal/youtube"
)

// Stage names, as reported in events and spans.
const (
	StageProcessVideo  = "process_video"
	StageExtractTopics = "extract_topics"
	StageProcessTopics = "process_topics"
	StageProcessTopic  = "process_single_topic"
	StageReport        = "generate_report"
)

// BuildFlow wires the stages:
//
//	process_video ─▶ extract_topics ─▶ process_topics ─▶ generate_report
//	      └──────────── no_transcript ──────────────────────────▲
func BuildFlow(deps Deps, opts ...core.FlowOption) *core.Flow[State] {
	deps = deps.withDefaults()
	o := deps.Options
	retry := core.WithRetry(o.MaxRetries, o.RetryWait)
	proc := &topicProcessor{gen: deps.Generator, prompts: deps.Prompts}

	video := core.NewNode[State, string, youtube.VideoInfo](&ProcessVideoNode{fetcher: deps.Fetcher}, core.WithName(StageProcessVideo))
	topics := core.NewNode[State, string, []report.Topic](&ExtractTopicsNode{gen: deps.Generator, prompts: deps.Prompts, opts: o},
		core.WithName(StageExtractTopics), retry)
	rep := core.NewNode[State, reportInput, string](&GenerateReportNode{}, core.WithName(StageReport))

	var process core.Workflow[State]
	switch o.Mode {
	case ModeBatchFlow:
		single := core.NewNode[State, topicJob, report.Topic](&ProcessSingleTopicNode{proc: proc}, core.WithName(StageProcessTopic), retry)
		process = core.NewBatchFlow[State](
			core.NewFlow[State](single, core.WithFlowName("topic")),
			TopicBatchFlow{},
			core.WithFlowName(StageProcessTopics),
		)
	default:
		process = core.NewBatchNode[State, report.Topic, report.Topic](&ProcessTopicNode{proc: proc}, core.WithName(StageProcessTopics), retry)
	}

	video.AddSuccessor(topics).AddSuccessor(process).AddSuccessor(rep)
	video.AddSuccessor(rep, ActionNoTranscript)

	return core.NewFlow[State](video, append([]core.FlowOption{core.WithFlowName("youtube_eli5")}, opts...)...)
}

// Run processes one video URL end to end and returns the final state.
// The returned state always carries the report unless a stage aborted.
func Run(ctx context.Context, deps Deps, url string, opts ...core.FlowOption) (*State, error) {
	deps = deps.withDefaults()
	state := &State{
		RunID:     uuid.NewString(),
		VideoInfo: youtube.VideoInfo{URL: url},
	}
	flow := BuildFlow(deps, opts...)

	ctx, span := deps.Tracer.Start(ctx, "eli5.run", trace.WithAttributes(
		attribute.String("eli5.run_id", state.RunID),
		attribute.String("eli5.url", url),
		attribute.String("eli5.mode", string(deps.Options.Mode)),
	))
	defer span.End()

	log.Printf("[Pipeline] Run %s started for %s (mode %s)", state.RunID, url, deps.Options.Mode)
	if _, err := flow.Run(ctx, state); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Printf("[Pipeline] Run %s failed: %v", state.RunID, err)
		return state, err
	}

	info := flow.LastRun()
	span.SetAttributes(attribute.Int("eli5.topics", len(state.Topics)))
	log.Printf("[Pipeline] Run %s finished in %d steps", state.RunID, info.Steps)
	return state, nil
}
