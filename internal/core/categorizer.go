package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikey/llm-mail-triage/internal/utils"
	"github.com/samber/lo"
)

// Categories is the closed category taxonomy
var Categories = []string{
	"Urgent",
	"Action Required",
	"Meeting",
	"Information",
	"Project Update",
	"External Client",
	"Internal Team",
	"Personal",
	"Marketing",
	"Sales",
	"HR",
	"Finance",
	"Technical",
}

// CategoryFallback is reported when categorization fails
const CategoryFallback = "Uncategorized"

const (
	categoryBodyLimit = 1000

	categorySystemPrompt = "You are an email categorization assistant."
	categoryPrompt       = `Please categorize the following email into one or more of these categories:
%s

Return only the category names as a comma-separated list.

Subject: %s

Email: %s`
)

// ParseCategories splits a comma-separated model answer into taxonomy labels.
// Matching ignores case; unknown labels are dropped and duplicates removed.
func ParseCategories(content string) []string {
	categories := []string{}
	for _, part := range strings.Split(content, ",") {
		name := strings.Trim(strings.TrimSpace(part), `."'`)
		if name == "" {
			continue
		}
		canonical, ok := lo.Find(Categories, func(c string) bool {
			return strings.EqualFold(c, name)
		})
		if !ok {
			continue
		}
		categories = append(categories, canonical)
	}
	return lo.Uniq(categories)
}

func (s *AnalysisService) categorize(ctx context.Context, subject, body string) (categories []string) {
	defer s.recoverStep("categories", func() { categories = []string{CategoryFallback} })

	ctx, cancel := s.stepContext(ctx)
	defer cancel()

	taxonomy := lo.Map(Categories, func(c string, _ int) string { return "- " + c })
	content, err := s.complete(ctx, CompletionRequest{
		System:      categorySystemPrompt,
		Prompt:      fmt.Sprintf(categoryPrompt, strings.Join(taxonomy, "\n"), subject, utils.Head(body, categoryBodyLimit)),
		MaxTokens:   50,
		Temperature: 0.1,
	})
	if err != nil {
		s.stepFailed("categories", err)
		return []string{CategoryFallback}
	}

	return ParseCategories(content)
}
