package core

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/mikey/llm-mail-triage/internal/utils"
)

const (
	actionItemBodyLimit = 2000
	topicBodyLimit      = 1500

	actionItemSystemPrompt = "You are an assistant that extracts action items from emails."
	actionItemPrompt       = `Extract any action items, tasks, or requests from this email.
Return them as a list of concise bullet points.
If there are no action items, return an empty list.

Email: %s`

	topicSystemPrompt = "You are an assistant that extracts main topics from text."
	topicPrompt       = `Extract the main topics or themes from this email.
Return them as a list of 2-4 keywords or short phrases.

Email: %s`

	listItemCutset = "-*0123456789. "
)

// ParseListItems picks bullet or numbered lines out of free-form model
// output and strips their markers. Other lines are ignored.
func ParseListItems(content string) []string {
	items := []string{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !isListLine(line) {
			continue
		}
		if item := strings.TrimLeft(line, listItemCutset); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func isListLine(line string) bool {
	if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
		return true
	}
	for _, r := range utils.Head(line, 2) {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func (s *AnalysisService) extractActionItems(ctx context.Context, body string) []string {
	return s.extractList(ctx, "action_items", CompletionRequest{
		System:      actionItemSystemPrompt,
		Prompt:      fmt.Sprintf(actionItemPrompt, utils.Head(body, actionItemBodyLimit)),
		MaxTokens:   200,
		Temperature: 0.1,
	})
}

func (s *AnalysisService) extractTopics(ctx context.Context, body string) []string {
	return s.extractList(ctx, "topics", CompletionRequest{
		System:      topicSystemPrompt,
		Prompt:      fmt.Sprintf(topicPrompt, utils.Head(body, topicBodyLimit)),
		MaxTokens:   100,
		Temperature: 0.1,
	})
}

func (s *AnalysisService) extractList(ctx context.Context, step string, req CompletionRequest) (items []string) {
	defer s.recoverStep(step, func() { items = []string{} })

	ctx, cancel := s.stepContext(ctx)
	defer cancel()

	content, err := s.complete(ctx, req)
	if err != nil {
		s.stepFailed(step, err)
		return []string{}
	}
	return ParseListItems(content)
}
