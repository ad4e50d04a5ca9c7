package domain

// AnswerStatus describes the outcome of an assistant question.
type AnswerStatus string

const (
	// AnswerStatusSuccess means the answer is grounded in retrieved sources.
	AnswerStatusSuccess AnswerStatus = "success"

	// AnswerStatusNoSources means no relevant chunk was found; the answer
	// is an explicit refusal, never fabricated.
	AnswerStatusNoSources AnswerStatus = "no_sources"

	// AnswerStatusError means the question could not be processed at all.
	AnswerStatusError AnswerStatus = "error"
)

// Source is a retrieved chunk cited by an answer. Content is truncated
// for transport; the full chunk stays in the retrieval index.
type Source struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
}

// Answer is the result of a retrieval-augmented question.
type Answer struct {
	// Text is the generated or rule-based answer.
	Text string `json:"answer"`

	// Sources lists the chunks the answer is grounded in, best first.
	Sources []Source `json:"sources"`

	// TraceID is a fresh identifier for correlating logs per question.
	TraceID string `json:"trace_id"`

	// Confidence equals the top retrieved score, 0 when no source matched.
	Confidence float64 `json:"confidence"`

	// Status reports how the answer was produced.
	Status AnswerStatus `json:"status"`
}
