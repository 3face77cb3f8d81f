package markov

const (
	// UnknownToken is the reserved vocabulary sentinel. It is appended as the
	// final vocabulary entry and never appears in a tokenized sequence.
	UnknownToken = "<unknown>"
	// UnknownState is the reserved state sentinel appended to the state index.
	// It is never produced by the n-gram window over the training text.
	UnknownState = "<unknown>"
)

// SequenceTokenizer is the contract between a tokenizer and a StateSpace.
// Implementations must expose an immutable token sequence and a bijective
// token-to-index vocabulary whose final entry is UnknownToken.
type SequenceTokenizer interface {
	// Tokens returns the full token sequence, repeats included.
	Tokens() []string
	// Vocabulary returns the token-to-index mapping over the distinct tokens
	// plus the sentinel. Callers must not modify the returned map.
	Vocabulary() map[string]int
	// TotalTokens returns the number of tokens, with repeats.
	TotalTokens() int
	// TotalUniqueTokens returns the number of distinct tokens, sentinel excluded.
	TotalUniqueTokens() int
}

// TokenStats is a summary of a tokenized text, exposed as a query rather
// than printed.
type TokenStats struct {
	RawBytes     int // Size of the original text in bytes
	TotalTokens  int // Number of tokens, with repeats
	UniqueTokens int // Number of distinct tokens, sentinel excluded
}
