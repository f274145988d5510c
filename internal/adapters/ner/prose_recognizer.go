package ner

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

// ProseRecognizer finds named entities with the prose averaged-perceptron model
type ProseRecognizer struct {
	logger *zap.Logger
}

// NewProseRecognizer creates a recognizer using the model bundled with prose
func NewProseRecognizer(logger *zap.Logger) *ProseRecognizer {
	return &ProseRecognizer{logger: logger}
}

// Recognize tags text and reports entities with character offsets into text
func (r *ProseRecognizer) Recognize(ctx context.Context, text string) ([]core.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return nil, fmt.Errorf("failed to tag document: %w", err)
	}

	entities := locate(text, doc.Entities())
	r.logger.Debug("Entities recognized",
		zap.Int("found", len(doc.Entities())),
		zap.Int("located", len(entities)))

	return entities, nil
}

// locate maps tagged entities back onto text in order. prose joins the tokens
// of an entity with single spaces, so any whitespace run between tokens
// matches and the reported text is the span as it appears in text. Entities
// that cannot be found after the previous match are dropped.
func locate(text string, tagged []prose.Entity) []core.Entity {
	entities := make([]core.Entity, 0, len(tagged))
	byteCursor, runeCursor := 0, 0

	for _, ent := range tagged {
		pattern := entityPattern(ent.Text)
		if pattern == nil {
			continue
		}
		loc := pattern.FindStringIndex(text[byteCursor:])
		if loc == nil {
			continue
		}

		matchStart, matchEnd := byteCursor+loc[0], byteCursor+loc[1]
		span := text[matchStart:matchEnd]
		start := runeCursor + utf8.RuneCountInString(text[byteCursor:matchStart])
		end := start + utf8.RuneCountInString(span)
		entities = append(entities, core.Entity{
			Text:  span,
			Label: ent.Label,
			Start: start,
			End:   end,
		})

		byteCursor = matchEnd
		runeCursor = end
	}

	return entities
}

func entityPattern(entity string) *regexp.Regexp {
	tokens := strings.Fields(entity)
	if len(tokens) == 0 {
		return nil
	}
	for i, token := range tokens {
		tokens[i] = regexp.QuoteMeta(token)
	}
	return regexp.MustCompile(strings.Join(tokens, `\s+`))
}
