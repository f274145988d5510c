package filter

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func sampleResult() *core.AnalysisResult {
	score := 0.91
	return &core.AnalysisResult{
		Summary:         "Team offsite next week.",
		Sentiment:       core.SentimentPositive,
		SentimentScore:  &score,
		Entities:        []core.Entity{{Text: "Alice", Label: "PERSON", Start: 0, End: 5}},
		Categories:      []string{"Meeting"},
		ImportanceScore: 0.4,
		ActionItems:     []string{"RSVP by Friday"},
		Topics:          []string{"Offsite"},
	}
}

func TestCliFilterReport(t *testing.T) {
	var out bytes.Buffer
	f := NewCliFilter(&stubAnalyzer{result: sampleResult()}, zaptest.NewLogger(t), &out, false, false)

	_, err := f.ProcessEmail(context.Background(), &core.Email{From: "alice@example.com", Subject: "Offsite", Body: "Alice here."})
	require.NoError(t, err)

	report := out.String()
	assert.Contains(t, report, "Subject: Offsite")
	assert.Contains(t, report, "Sentiment: positive (0.91)")
	assert.Contains(t, report, "  - RSVP by Friday")
	assert.Contains(t, report, "  - Alice [PERSON]")
	assert.NotContains(t, report, "Body preview")
}

func TestCliFilterJSON(t *testing.T) {
	var out bytes.Buffer
	f := NewCliFilter(&stubAnalyzer{result: sampleResult()}, zaptest.NewLogger(t), &out, false, true)

	_, err := f.ProcessEmail(context.Background(), &core.Email{ID: "m1", Subject: "Offsite", Body: "Alice here."})
	require.NoError(t, err)

	var decoded struct {
		Email    core.Email          `json:"email"`
		Analysis core.AnalysisResult `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "m1", decoded.Email.ID)
	assert.Equal(t, []string{"Meeting"}, decoded.Analysis.Categories)
}

func TestCliFilterError(t *testing.T) {
	var out bytes.Buffer
	f := NewCliFilter(&stubAnalyzer{err: core.ErrInvalidEmail}, zaptest.NewLogger(t), &out, true, false)

	_, err := f.ProcessEmail(context.Background(), &core.Email{})
	assert.True(t, errors.Is(err, core.ErrInvalidEmail))
	assert.Empty(t, out.String())
}
