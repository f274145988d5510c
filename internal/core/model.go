package core

// Email represents an email message handed to the analysis pipeline.
// Body is expected to be decoded plain text.
type Email struct {
	ID      string              `json:"id"`
	Subject string              `json:"subject"`
	Body    string              `json:"body"`
	From    string              `json:"from,omitempty"`
	To      []string            `json:"to,omitempty"`
	Headers map[string][]string `json:"-"`
}

// Sentiment is the standardized polarity label
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Entity is a named span found in the email body. Start and End are
// character offsets into the scanned prefix of the body.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// AnalysisResult holds every signal derived from one email
type AnalysisResult struct {
	Summary         string    `json:"summary"`
	Sentiment       Sentiment `json:"sentiment"`
	SentimentScore  *float64  `json:"sentiment_score,omitempty"`
	Entities        []Entity  `json:"entities"`
	Categories      []string  `json:"categories"`
	ImportanceScore float64   `json:"importance_score"`
	ActionItems     []string  `json:"action_items"`
	Topics          []string  `json:"topics"`
}

// NoContentSummary is the summary reported for emails without a body
const NoContentSummary = "No content to analyze"

// EmptyAnalysisResult returns the result reported for an email with an empty body
func EmptyAnalysisResult() *AnalysisResult {
	return &AnalysisResult{
		Summary:         NoContentSummary,
		Sentiment:       SentimentNeutral,
		Entities:        []Entity{},
		Categories:      []string{},
		ImportanceScore: 0.0,
		ActionItems:     []string{},
		Topics:          []string{},
	}
}

// CacheStats reports the state of the cache backing store
type CacheStats struct {
	TotalKeys  int    `json:"total_keys"`
	MemoryUsed string `json:"memory_used"`
	Hits       int64  `json:"hits"`
	Misses     int64  `json:"misses"`
	Uptime     int64  `json:"uptime"`
}
