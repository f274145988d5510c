package core

import (
	"context"

	"github.com/mikey/llm-mail-triage/internal/utils"
	"github.com/samber/lo"
)

const entityInputLimit = 10000

func (s *AnalysisService) extractEntities(ctx context.Context, text string) (entities []Entity) {
	defer s.recoverStep("entities", func() { entities = []Entity{} })

	ctx, cancel := s.stepContext(ctx)
	defer cancel()

	found, err := s.recognizer.Recognize(ctx, utils.Head(text, entityInputLimit))
	if err != nil {
		s.stepFailed("entities", err)
		return []Entity{}
	}

	return lo.Filter(found, func(e Entity, _ int) bool {
		return e.Start < e.End
	})
}
