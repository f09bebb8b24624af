package domain

// GenerateRequest is the input to the generative-reply capability: an
// ordered message history plus the new user utterance.
type GenerateRequest struct {
	System      string
	History     []ChatMessage
	UserMessage string
}

// GenerateResult is the terminal output of one streamed generation.
// ReplyText is the full assistant reply (the concatenation of all
// emitted fragments). ExtractedJSON is the structured payload the model
// produced, if any — either via a structured tool call or inline in the
// reply. RawOutput preserves the unparsed model output for audit.
type GenerateResult struct {
	ReplyText     string
	RawOutput     string
	ExtractedJSON []byte
}
