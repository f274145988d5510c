package filter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/whitelist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubAnalyzer struct {
	result *core.AnalysisResult
	err    error
	seen   *core.Email
}

func (s *stubAnalyzer) Analyze(_ context.Context, email *core.Email) (*core.AnalysisResult, error) {
	s.seen = email
	return s.result, s.err
}

type delivery struct {
	sender     string
	recipients []string
	data       string
}

func newTestSMTPFilter(t *testing.T, analyzer core.Analyzer, deliverErr error) (*SMTPFilter, *[]delivery) {
	logger := zaptest.NewLogger(t)
	f := NewSMTPFilter(analyzer, whitelist.NewChecker([]string{"trusted.org"}, logger), logger,
		"127.0.0.1:0", "127.0.0.1:10026", "X-Triage-", time.Second)

	var delivered []delivery
	f.deliver = func(sender string, recipients []string, data []byte) error {
		delivered = append(delivered, delivery{sender, recipients, string(data)})
		return deliverErr
	}
	return f, &delivered
}

const testMessage = "From: alice@example.com\r\nSubject: Urgent: budget\r\n\r\nPlease review.\r\n"

func runSession(t *testing.T, f *SMTPFilter, sender string, raw string) error {
	session, err := (&smtpBackend{filter: f}).NewSession(nil)
	require.NoError(t, err)
	require.NoError(t, session.Mail(sender, nil))
	require.NoError(t, session.Rcpt("bob@example.com", nil))
	return session.Data(strings.NewReader(raw))
}

func TestSMTPFilterAnnotates(t *testing.T) {
	analyzer := &stubAnalyzer{result: &core.AnalysisResult{
		Summary:         "Budget review requested.",
		Sentiment:       core.SentimentNeutral,
		Categories:      []string{"Finance"},
		ImportanceScore: 0.6,
		ActionItems:     []string{"Review budget"},
		Topics:          []string{"Budget"},
	}}
	f, delivered := newTestSMTPFilter(t, analyzer, nil)

	require.NoError(t, runSession(t, f, "alice@example.com", testMessage))

	require.Len(t, *delivered, 1)
	d := (*delivered)[0]
	assert.Equal(t, "alice@example.com", d.sender)
	assert.Equal(t, []string{"bob@example.com"}, d.recipients)
	assert.True(t, strings.HasPrefix(d.data, "X-Triage-Summary: Budget review requested.\r\n"))
	assert.Contains(t, d.data, "X-Triage-Importance: 0.60\r\n")
	assert.True(t, strings.HasSuffix(d.data, testMessage))

	assert.Equal(t, "Urgent: budget", analyzer.seen.Subject)
	assert.Equal(t, []string{"bob@example.com"}, analyzer.seen.To)
}

func TestSMTPFilterSkipsTrustedDomains(t *testing.T) {
	analyzer := &stubAnalyzer{}
	f, delivered := newTestSMTPFilter(t, analyzer, nil)

	require.NoError(t, runSession(t, f, "ops@mail.trusted.org", testMessage))

	assert.Nil(t, analyzer.seen)
	require.Len(t, *delivered, 1)
	assert.Equal(t, testMessage, (*delivered)[0].data)
}

func TestSMTPFilterAnalysisError(t *testing.T) {
	f, delivered := newTestSMTPFilter(t, &stubAnalyzer{err: errors.New("backend down")}, nil)

	require.NoError(t, runSession(t, f, "alice@example.com", testMessage))

	require.Len(t, *delivered, 1)
	assert.True(t, strings.HasPrefix((*delivered)[0].data, "X-Triage-Error: backend down\r\n"))
}

func TestSMTPFilterUnparseableRelayedUnchanged(t *testing.T) {
	analyzer := &stubAnalyzer{}
	f, delivered := newTestSMTPFilter(t, analyzer, nil)

	require.NoError(t, runSession(t, f, "alice@example.com", "garbage without headers"))

	assert.Nil(t, analyzer.seen)
	require.Len(t, *delivered, 1)
	assert.Equal(t, "garbage without headers", (*delivered)[0].data)
}

func TestSMTPFilterReinjectFailureIsTemporary(t *testing.T) {
	f, _ := newTestSMTPFilter(t, &stubAnalyzer{result: core.EmptyAnalysisResult()}, errors.New("connection refused"))

	err := runSession(t, f, "alice@example.com", testMessage)

	var smtpErr *smtp.SMTPError
	require.ErrorAs(t, err, &smtpErr)
	assert.Equal(t, 451, smtpErr.Code)
}
