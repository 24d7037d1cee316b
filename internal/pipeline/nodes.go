package pipeline

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"unicode"

	"github.com/pocketomega/pocket-eli5/internal/core"
	"github.com/pocketomega/pocket-eli5/internal/llm"
	"github.com/pocketomega/pocket-eli5/internal/prompt"
	"github.com/pocketomega/pocket-eli5/internal/report"
	"github.com/pocketomega/pocket-eli5/internal/structured"
	"github.com/pocketomega/pocket-eli5/internal/youtube"
)

// ── ProcessVideoNode ──────────────────────────────────────────────────────────

// ProcessVideoNode fetches metadata and the transcript for State.VideoInfo.URL.
type ProcessVideoNode struct {
	core.FailFast[string, youtube.VideoInfo]
	fetcher VideoFetcher
}

func (n *ProcessVideoNode) Prep(state *State, _ core.Params) string {
	return state.VideoInfo.URL
}

func (n *ProcessVideoNode) Exec(ctx context.Context, url string) (youtube.VideoInfo, error) {
	log.Printf("[Pipeline] Fetching video %s", url)
	return n.fetcher.Fetch(ctx, url), nil
}

func (n *ProcessVideoNode) Post(state *State, _ core.Params, _ string, info youtube.VideoInfo) core.Action {
	state.VideoInfo = info
	if !info.HasTranscript() {
		log.Printf("[Pipeline] %q has no usable transcript (%s), skipping to report", info.Title, info.Error)
		return ActionNoTranscript
	}
	log.Printf("[Pipeline] Video %q: transcript %d chars", info.Title, len(info.Transcript))
	return core.ActionDefault
}

// ── ExtractTopicsNode ─────────────────────────────────────────────────────────

// ExtractTopicsNode asks the model for the video's topics and, per topic,
// for the questions to answer.
type ExtractTopicsNode struct {
	gen     llm.TextGenerator
	prompts *prompt.PromptLoader
	opts    Options
}

func (n *ExtractTopicsNode) Prep(state *State, _ core.Params) string {
	return clipTranscript(state.VideoInfo.Transcript, n.opts.MaxTranscriptRunes)
}

func (n *ExtractTopicsNode) Exec(ctx context.Context, transcript string) ([]report.Topic, error) {
	raw, err := n.gen.Generate(ctx,
		n.prompts.Render(prompt.ExtractTopics, map[string]string{
			"MAX_TOPICS": strconv.Itoa(n.opts.MaxTopics),
			"TRANSCRIPT": transcript,
		}),
		n.prompts.System(prompt.SystemTopics),
	)
	if err != nil {
		return nil, fmt.Errorf("extract topics: %w", err)
	}

	titles := structured.ParseList(raw, n.opts.MaxTopics)
	if len(titles) == 0 {
		log.Printf("[Pipeline] Could not parse topics from model output, using fallback topics")
		return fallbackTopics(), nil
	}

	topics := make([]report.Topic, 0, len(titles))
	for _, title := range titles {
		topics = append(topics, report.Topic{
			Title:     title,
			Questions: n.questionsFor(ctx, title),
		})
	}
	return topics, nil
}

// questionsFor degrades to default questions instead of failing the stage,
// so topics that were already extracted are kept.
func (n *ExtractTopicsNode) questionsFor(ctx context.Context, topic string) []report.QA {
	raw, err := n.gen.Generate(ctx,
		n.prompts.Render(prompt.GenerateQuestions, map[string]string{
			"COUNT": strconv.Itoa(n.opts.QuestionsPerTopic),
			"TOPIC": topic,
		}),
		n.prompts.System(prompt.SystemQuestions),
	)
	var questions []string
	if err != nil {
		log.Printf("[Pipeline] Questions for %q failed: %v", topic, err)
	} else {
		questions = structured.ParseList(raw, n.opts.QuestionsPerTopic)
	}
	if len(questions) == 0 {
		return defaultQuestions(topic)
	}

	qas := make([]report.QA, len(questions))
	for i, q := range questions {
		qas[i] = report.QA{Original: q}
	}
	return qas
}

func (n *ExtractTopicsNode) ExecFallback(_ string, err error) ([]report.Topic, error) {
	log.Printf("[Pipeline] Topic extraction failed, using fallback topics: %v", err)
	return fallbackTopics(), nil
}

func (n *ExtractTopicsNode) Post(state *State, _ core.Params, _ string, topics []report.Topic) core.Action {
	state.Topics = topics
	log.Printf("[Pipeline] Stored %d topics", len(topics))
	return core.ActionDefault
}

const fallbackTopicCount = 2

func fallbackTopics() []report.Topic {
	topics := make([]report.Topic, fallbackTopicCount)
	for i := range topics {
		title := fmt.Sprintf("Fallback Topic %d", i+1)
		topics[i] = report.Topic{Title: title, Questions: defaultQuestions(title)}
	}
	return topics
}

func defaultQuestions(topic string) []report.QA {
	return []report.QA{
		{Original: fmt.Sprintf("Default Question 1 for %s?", topic)},
		{Original: fmt.Sprintf("Default Question 2 for %s?", topic)},
	}
}

// ── ProcessTopicNode ──────────────────────────────────────────────────────────

// ProcessTopicNode rephrases and answers every topic, one item per topic.
// A topic that keeps failing is kept with "Answer not available" answers.
type ProcessTopicNode struct {
	proc *topicProcessor
}

func (n *ProcessTopicNode) Prep(state *State, _ core.Params) []report.Topic {
	log.Printf("[Pipeline] Processing %d topics", len(state.Topics))
	return append([]report.Topic(nil), state.Topics...)
}

func (n *ProcessTopicNode) Exec(ctx context.Context, topic report.Topic) (report.Topic, error) {
	return n.proc.process(ctx, topic)
}

func (n *ProcessTopicNode) ExecFallback(topic report.Topic, err error) (report.Topic, error) {
	log.Printf("[Pipeline] Topic %q failed, keeping it unanswered: %v", topic.Title, err)
	return degradeTopic(topic), nil
}

func (n *ProcessTopicNode) Post(state *State, _ core.Params, _ []report.Topic, results []report.Topic) core.Action {
	state.Topics = results
	return core.ActionDefault
}

// ── GenerateReportNode ────────────────────────────────────────────────────────

type reportInput struct {
	video  youtube.VideoInfo
	topics []report.Topic
}

// GenerateReportNode renders State into HTML.
type GenerateReportNode struct {
	core.FailFast[reportInput, string]
}

func (n *GenerateReportNode) Prep(state *State, _ core.Params) reportInput {
	return reportInput{video: state.VideoInfo, topics: state.Topics}
}

func (n *GenerateReportNode) Exec(_ context.Context, in reportInput) (string, error) {
	return report.Render(in.video, in.topics), nil
}

func (n *GenerateReportNode) Post(state *State, _ core.Params, _ reportInput, html string) core.Action {
	state.HTML = html
	log.Printf("[Pipeline] Report ready (%d bytes)", len(html))
	return core.ActionDefault
}

// ── shared topic processing ───────────────────────────────────────────────────

type topicProcessor struct {
	gen     llm.TextGenerator
	prompts *prompt.PromptLoader
}

// process rephrases the title and each question, then answers each question.
// Any model error fails the whole topic.
func (p *topicProcessor) process(ctx context.Context, topic report.Topic) (report.Topic, error) {
	out := report.Topic{Title: topic.Title}

	rephrased, err := p.ask(ctx, prompt.RephraseTopic, prompt.SystemRephrase, map[string]string{"TOPIC": topic.Title})
	if err != nil {
		return report.Topic{}, fmt.Errorf("rephrase topic %q: %w", topic.Title, err)
	}
	out.RephrasedTitle = oneLine(rephrased)

	subject := out.DisplayTitle()
	for _, q := range topic.Questions {
		rq, err := p.ask(ctx, prompt.RephraseQuestion, prompt.SystemRephrase, map[string]string{"QUESTION": q.Original})
		if err != nil {
			return report.Topic{}, fmt.Errorf("rephrase question %q: %w", q.Original, err)
		}
		qa := report.QA{Original: q.Original, Rephrased: oneLine(rq)}

		answer, err := p.ask(ctx, prompt.Answer, prompt.SystemAnswer, map[string]string{
			"TOPIC":    subject,
			"QUESTION": qa.Question(),
		})
		if err != nil {
			return report.Topic{}, fmt.Errorf("answer %q: %w", q.Original, err)
		}
		qa.Answer = strings.TrimSpace(answer)
		out.Questions = append(out.Questions, qa)
	}
	return out, nil
}

func (p *topicProcessor) ask(ctx context.Context, name, system string, vars map[string]string) (string, error) {
	return p.gen.Generate(ctx, p.prompts.Render(name, vars), p.prompts.System(system))
}

// degradeTopic keeps the original wording and marks every answer unavailable.
func degradeTopic(topic report.Topic) report.Topic {
	out := report.Topic{Title: topic.Title, Questions: make([]report.QA, len(topic.Questions))}
	for i, q := range topic.Questions {
		out.Questions[i] = report.QA{Original: q.Original, Answer: report.AnswerNotAvailable}
	}
	return out
}

// oneLine keeps the first non-empty line of s without surrounding quotes.
func oneLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Trim(strings.TrimSpace(line), `"'`); line != "" {
			return line
		}
	}
	return ""
}

// clipTranscript cuts a long transcript at the last word boundary within
// limit runes, so the model never sees half a word.
func clipTranscript(transcript string, limit int) string {
	runes := []rune(transcript)
	if limit <= 0 || len(runes) <= limit {
		return transcript
	}
	cut := string(runes[:limit])
	if !unicode.IsSpace(runes[limit]) {
		if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimSpace(cut) + " ..."
}
