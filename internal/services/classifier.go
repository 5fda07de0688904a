package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
)

const jobPostingClassificationPrompt = `You are a strict content classifier.
Decide whether the following web page text is a job posting: a description of one specific open position that a person could apply for.
Career pages that only list many jobs, news articles, company homepages and login walls are NOT job postings.

Answer with exactly one word: YES or NO.

### TEXT:
%s
`

const resumeClassificationPrompt = `You are a strict content classifier.
Decide whether the following text is a resume or CV describing one person's work history, skills and education.

Answer with exactly one word: YES or NO.

### TEXT:
%s
`

type Classifier struct {
	llm     LLMClient
	model   string
	maxText int
	log     *logger.Logger
}

func NewClassifier(llm LLMClient, model string, maxText int, log *logger.Logger) *Classifier {
	return &Classifier{
		llm:     llm,
		model:   model,
		maxText: maxText,
		log:     log.With("service", "Classifier"),
	}
}

func (c *Classifier) IsJobPosting(ctx context.Context, text string) bool {
	return c.ask(ctx, "job_posting", jobPostingClassificationPrompt, text)
}

func (c *Classifier) IsResume(ctx context.Context, text string) bool {
	return c.ask(ctx, "resume", resumeClassificationPrompt, text)
}

// ask fails open: any LLM failure or unreadable answer counts as YES and the
// analyzer downstream gets the final say.
func (c *Classifier) ask(ctx context.Context, kind, tmpl, text string) bool {
	prompt := fmt.Sprintf(tmpl, truncateRunes(text, c.maxText))
	answer, err := c.llm.Complete(ctx, CompletionRequest{
		Prompt:      prompt,
		Model:       c.model,
		Temperature: 0,
		MaxTokens:   5,
	})
	if err != nil {
		c.log.Warn("Classifier unavailable, failing open", "kind", kind, "error", err)
		return true
	}

	switch firstWord(answer) {
	case "YES":
		return true
	case "NO":
		return false
	default:
		c.log.Warn("Classifier gave an unexpected answer, failing open", "kind", kind, "answer", answer)
		return true
	}
}

// firstWord is the upper-cased leading run of letters, so "No, it's news"
// reads as NO while "NOTE:" and "NONE" do not.
func firstWord(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	if len(words) == 0 {
		return ""
	}
	return strings.ToUpper(words[0])
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
