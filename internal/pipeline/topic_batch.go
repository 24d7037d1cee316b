package pipeline

import (
	"context"
	"errors"
	"log"

	"github.com/pocketomega/pocket-eli5/internal/core"
	"github.com/pocketomega/pocket-eli5/internal/report"
)

// ParamTopicIndex is the param key TopicBatchFlow sets for each iteration.
const ParamTopicIndex = "topic_index"

var errNoTopicIndex = errors.New("topic_index param missing or out of range")

// TopicBatchFlow yields one {"topic_index": i} parameter set per topic.
type TopicBatchFlow struct{}

func (TopicBatchFlow) Prep(state *State, _ core.Params) []core.Params {
	sets := make([]core.Params, len(state.Topics))
	for i := range state.Topics {
		sets[i] = core.Params{ParamTopicIndex: i}
	}
	log.Printf("[Pipeline] Batch flow over %d topics", len(sets))
	return sets
}

func (TopicBatchFlow) Post(state *State, _ core.Params, sets []core.Params, _ []core.BatchRecord) core.Action {
	log.Printf("[Pipeline] Batch flow processed %d/%d topics", len(sets), len(state.Topics))
	return core.ActionDefault
}

type topicJob struct {
	index int // -1 when the params carry no valid index
	topic report.Topic
}

// ProcessSingleTopicNode processes the topic at params["topic_index"] and
// writes the result back to the same slot.
type ProcessSingleTopicNode struct {
	proc *topicProcessor
}

func (n *ProcessSingleTopicNode) Prep(state *State, params core.Params) topicJob {
	i, ok := params.Int(ParamTopicIndex)
	if !ok || i < 0 || i >= len(state.Topics) {
		return topicJob{index: -1}
	}
	return topicJob{index: i, topic: state.Topics[i]}
}

func (n *ProcessSingleTopicNode) Exec(ctx context.Context, job topicJob) (report.Topic, error) {
	if job.index < 0 {
		return report.Topic{}, errNoTopicIndex
	}
	return n.proc.process(ctx, job.topic)
}

// ExecFallback degrades the topic like ProcessTopicNode does; a missing
// index is a wiring bug and aborts the run.
func (n *ProcessSingleTopicNode) ExecFallback(job topicJob, err error) (report.Topic, error) {
	if job.index < 0 {
		return report.Topic{}, err
	}
	log.Printf("[Pipeline] Topic %d %q failed, keeping it unanswered: %v", job.index, job.topic.Title, err)
	return degradeTopic(job.topic), nil
}

func (n *ProcessSingleTopicNode) Post(state *State, _ core.Params, job topicJob, topic report.Topic) core.Action {
	state.Topics[job.index] = topic
	return core.ActionDefault
}
