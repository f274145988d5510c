package core

import (
	"math"
	"strings"

	"github.com/mikey/llm-mail-triage/internal/utils"
	"github.com/samber/lo"
)

const importanceFallback = 0.5

var (
	urgentKeywords = []string{"urgent", "asap", "immediately", "deadline", "important", "critical"}
	actionKeywords = []string{"please", "request", "action", "review", "approve", "confirm"}
)

// ScoreImportance rates an email in [0,1] from keyword hits and the number
// of people and organizations it mentions.
func ScoreImportance(subject, body string, entities []Entity) float64 {
	score := 0.0

	if containsAny(strings.ToLower(subject), urgentKeywords) {
		score += 0.4
	}

	lowered := strings.ToLower(body)
	if containsAny(utils.Head(lowered, 500), urgentKeywords) {
		score += 0.2
	}
	if containsAny(utils.Head(lowered, 1000), actionKeywords) {
		score += 0.2
	}

	named := lo.CountBy(entities, func(e Entity) bool {
		return e.Label == "PERSON" || e.Label == "ORG"
	})
	score += math.Min(float64(named)*0.05, 0.2)

	return math.Min(math.Max(score, 0.0), 1.0)
}

func (s *AnalysisService) scoreImportance(subject, body string, entities []Entity) (score float64) {
	defer s.recoverStep("importance", func() { score = importanceFallback })
	return ScoreImportance(subject, body, entities)
}

func containsAny(text string, keywords []string) bool {
	return lo.SomeBy(keywords, func(k string) bool {
		return strings.Contains(text, k)
	})
}
