// Package report renders the ELI5 summary of a video as a standalone HTML page.
package report

import (
	"bytes"
	"embed"
	"html/template"
	"log"
	"strings"

	"github.com/pocketomega/pocket-eli5/internal/youtube"
)

//go:embed templates/report.html
var content embed.FS

var page = template.Must(template.ParseFS(content, "templates/report.html"))

// Placeholders shown for fields the pipeline could not fill.
const (
	DefaultTitle         = "YouTube Video Summary"
	UnnamedTopic         = "Unnamed Topic"
	QuestionNotAvailable = "Question not available"
	AnswerNotAvailable   = "Answer not available"
	defaultFooterLink    = "https://www.youtube.com/"
)

// QA is one question about a topic and its simple answer.
type QA struct {
	Original  string `json:"original" yaml:"original"`
	Rephrased string `json:"rephrased,omitempty" yaml:"rephrased,omitempty"`
	Answer    string `json:"answer,omitempty" yaml:"answer,omitempty"`
}

// Question returns the best available wording of the question.
func (q QA) Question() string {
	if s := strings.TrimSpace(q.Rephrased); s != "" {
		return s
	}
	if s := strings.TrimSpace(q.Original); s != "" {
		return s
	}
	return QuestionNotAvailable
}

// Topic groups the questions extracted for one subject of the video.
type Topic struct {
	Title          string `json:"title" yaml:"title"`
	RephrasedTitle string `json:"rephrased_title,omitempty" yaml:"rephrased_title,omitempty"`
	Questions      []QA   `json:"questions" yaml:"questions"`
}

// DisplayTitle returns the rephrased title, falling back to the original.
func (t Topic) DisplayTitle() string {
	if s := strings.TrimSpace(t.RephrasedTitle); s != "" {
		return s
	}
	if s := strings.TrimSpace(t.Title); s != "" {
		return s
	}
	return UnnamedTopic
}

type view struct {
	Title     string
	Thumbnail string
	Notice    string
	VideoURL  string
	Topics    []topicView
}

type topicView struct {
	Title     string
	Questions []qaView
}

type qaView struct {
	Question string
	Answer   []string
}

// Render builds the HTML document. It is deterministic and never fails;
// missing fields are replaced with visible placeholder text.
func Render(video youtube.VideoInfo, topics []Topic) string {
	v := view{
		Title:     strings.TrimSpace(video.Title),
		Thumbnail: strings.TrimSpace(video.ThumbnailURL),
		Notice:    strings.TrimSpace(video.Error),
		VideoURL:  strings.TrimSpace(video.URL),
	}
	if v.Title == "" {
		v.Title = DefaultTitle
	}
	if v.VideoURL == "" {
		v.VideoURL = defaultFooterLink
	}

	for _, t := range topics {
		tv := topicView{Title: t.DisplayTitle()}
		for _, q := range t.Questions {
			tv.Questions = append(tv.Questions, qaView{
				Question: q.Question(),
				Answer:   paragraphs(q.Answer),
			})
		}
		v.Topics = append(v.Topics, tv)
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, v); err != nil {
		// only reachable through a broken template
		log.Printf("[Report] render failed: %v", err)
		return "<!DOCTYPE html><html><body><p>" + template.HTMLEscapeString(v.Title) + "</p></body></html>"
	}
	return buf.String()
}

// paragraphs splits an answer on blank lines.
func paragraphs(answer string) []string {
	answer = strings.ReplaceAll(answer, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(answer, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{AnswerNotAvailable}
	}
	return out
}
