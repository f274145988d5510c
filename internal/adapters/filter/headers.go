package filter

import (
	"bytes"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/utils"
)

// maxHeaderValueChars bounds free-text header values
const maxHeaderValueChars = 300

// Header is a single name/value pair added to a relayed message
type Header struct {
	Name  string
	Value string
}

// TriageHeaders renders an analysis result as message headers named with prefix
func TriageHeaders(prefix string, result *core.AnalysisResult) []Header {
	return []Header{
		{Name: prefix + "Summary", Value: headerValue(result.Summary)},
		{Name: prefix + "Sentiment", Value: string(result.Sentiment)},
		{Name: prefix + "Importance", Value: fmt.Sprintf("%.2f", result.ImportanceScore)},
		{Name: prefix + "Categories", Value: headerValue(strings.Join(result.Categories, ", "))},
		{Name: prefix + "Topics", Value: headerValue(strings.Join(result.Topics, ", "))},
		{Name: prefix + "Action-Items", Value: fmt.Sprintf("%d", len(result.ActionItems))},
	}
}

// headerValue folds text onto one line and encodes non-ASCII as an RFC 2047 word
func headerValue(text string) string {
	text = utils.Head(utils.SingleLine(text), maxHeaderValueChars)
	for _, r := range text {
		if r >= utf8.RuneSelf {
			return mime.QEncoding.Encode("utf-8", text)
		}
	}
	return text
}

// prependHeaders writes headers ahead of the untouched original message
func prependHeaders(headers []Header, raw []byte) []byte {
	var buf bytes.Buffer
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.Name, h.Value)
	}
	buf.Write(raw)
	return buf.Bytes()
}
