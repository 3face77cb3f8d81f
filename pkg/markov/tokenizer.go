package markov

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// ErrNotText is returned by NewTextTokens when the input is not valid text.
var ErrNotText = errors.New("markov: content is not valid text")

// ErrReservedToken is returned by NewTextTokens when the input contains the
// sentinel as a literal token. Admitting it would collide with the reserved
// final vocabulary entry and break the index bijection.
var ErrReservedToken = errors.New("markov: content contains the reserved token")

var (
	// Matches a hard line break flanked by non-space characters on both sides.
	lineBreakRegex = regexp.MustCompile(`(\S)(\n)(\S)`)
	spaceRunRegex  = regexp.MustCompile(` +`)
)

const (
	punctuationPad    = "!?.,:-;"
	punctuationRemove = "\"()_\n"
)

// TextTokens tokenizes natural language text into a normalized token
// sequence and a vocabulary. All fields are built once at construction and
// never mutated.
type TextTokens struct {
	raw     string
	content string
	tokens  []string
	vocab   map[string]int
}

var _ SequenceTokenizer = (*TextTokens)(nil)

// NewTextTokens preprocesses and tokenizes the given text. It returns
// ErrNotText if content is not valid UTF-8 and ErrReservedToken if the
// tokenized text contains UnknownToken literally.
func NewTextTokens(content string) (*TextTokens, error) {
	if !utf8.ValidString(content) {
		return nil, fmt.Errorf("%w: invalid UTF-8 input", ErrNotText)
	}

	t := &TextTokens{raw: content}
	t.content = preprocess(content)
	t.tokens, t.vocab = tokenize(t.content)
	for _, tok := range t.tokens {
		if tok == UnknownToken {
			return nil, fmt.Errorf("%w: %q", ErrReservedToken, UnknownToken)
		}
	}
	return t, nil
}

// preprocess normalizes raw text so that punctuation becomes its own token:
// hard line breaks flanked by non-space characters are spaced out, a fixed
// character set is stripped, sentence punctuation is padded with spaces, and
// space runs are collapsed.
func preprocess(raw string) string {
	content := lineBreakRegex.ReplaceAllString(raw, "$1 $2 $3")

	var removals []string
	for _, r := range punctuationRemove {
		removals = append(removals, string(r), "")
	}
	content = strings.NewReplacer(removals...).Replace(content)

	var pads []string
	for _, r := range punctuationPad {
		pads = append(pads, string(r), " "+string(r)+" ")
	}
	content = strings.NewReplacer(pads...).Replace(content)

	content = spaceRunRegex.ReplaceAllString(content, " ")
	return strings.TrimSpace(content)
}

// tokenize splits normalized content on single spaces and builds the
// vocabulary: distinct tokens in sorted order, then the sentinel as the
// final entry. Empty splits are legitimate tokens and are preserved.
func tokenize(content string) ([]string, map[string]int) {
	tokens := strings.Split(content, " ")

	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		seen[tok] = struct{}{}
	}
	distinct := make([]string, 0, len(seen)+1)
	for tok := range seen {
		distinct = append(distinct, tok)
	}
	sort.Strings(distinct)
	distinct = append(distinct, UnknownToken)

	vocab := make(map[string]int, len(distinct))
	for i, tok := range distinct {
		vocab[tok] = i
	}
	return tokens, vocab
}

// Raw returns the original, unmodified text.
func (t *TextTokens) Raw() string {
	return t.raw
}

// Content returns the preprocessed text.
func (t *TextTokens) Content() string {
	return t.content
}

// Tokens returns the token sequence, repeats included. Callers must not
// modify the returned slice.
func (t *TextTokens) Tokens() []string {
	return t.tokens
}

// Vocabulary returns the token-to-index mapping, including the sentinel at
// the final index. Callers must not modify the returned map.
func (t *TextTokens) Vocabulary() map[string]int {
	return t.vocab
}

// TotalTokens returns the total number of tokens, with repeats.
func (t *TextTokens) TotalTokens() int {
	return len(t.tokens)
}

// TotalUniqueTokens returns the number of distinct tokens. The sentinel is
// excluded since it never appears in the token sequence.
func (t *TextTokens) TotalUniqueTokens() int {
	return len(t.vocab) - 1
}

// Stats returns a size and count summary of the tokenized text.
func (t *TextTokens) Stats() TokenStats {
	return TokenStats{
		RawBytes:     len(t.raw),
		TotalTokens:  t.TotalTokens(),
		UniqueTokens: t.TotalUniqueTokens(),
	}
}
