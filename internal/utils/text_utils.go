package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// TruncationMarker is appended to text cut by TruncateText
const TruncationMarker = "\n[... Content truncated due to size limits ...]"

// Head returns the first n characters of text. Counting is done in runes so
// multi-byte characters are never split.
func Head(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(text) <= n {
		// byte length bounds rune count
		return text
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}

// CharLen returns the number of characters (runes) in text
func CharLen(text string) int {
	return utf8.RuneCountInString(text)
}

// SingleLine collapses all whitespace runs, including newlines, into single spaces
func SingleLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// TextProcessor provides utilities for processing text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateText truncates text to at most maxSize characters and marks the cut
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || CharLen(text) <= maxSize {
		return text
	}

	truncated := Head(text, maxSize)

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + TruncationMarker
}

// SanitizeUTF8 drops invalid UTF-8 bytes and normalizes the result to NFC
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if !utf8.ValidString(text) {
		cleaned := strings.ToValidUTF8(text, "")
		tp.logger.Debug("Text sanitized",
			zap.Int("original_size", len(text)),
			zap.Int("sanitized_size", len(cleaned)))
		text = cleaned
	}

	return norm.NFC.String(text)
}

// ProcessText sanitizes and truncates text in one operation
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.TruncateText(tp.SanitizeUTF8(text), maxSize)
}
