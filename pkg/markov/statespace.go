package markov

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/james-bowman/sparse"
)

const (
	// MinOrder is the smallest supported n-gram order.
	MinOrder = 2
	// MaxOrder is the largest supported n-gram order.
	MaxOrder = 5
)

var (
	// ErrNilTokenizer is returned by NewStateSpace when no tokenizer is given.
	ErrNilTokenizer = errors.New("markov: tokenizer is nil")
	// ErrInvalidOrder is returned by NewStateSpace when the n-gram order is
	// outside [MinOrder, MaxOrder].
	ErrInvalidOrder = errors.New("markov: order must be between 2 and 5, inclusive")
)

// StateModel is the contract between a state space and a Chain. It exposes
// the n-gram state space and the sparse transition matrices built from a
// training text.
type StateModel interface {
	// Order returns the n-gram order of the state space.
	Order() int
	// Ngrams returns the ordered n-gram sequence, duplicates included.
	Ngrams() []string
	// ContainsNgram reports whether the given n-gram occurs anywhere in the
	// ordered n-gram sequence.
	ContainsNgram(ngram string) bool
	// StateIndex returns the distinct-n-gram-to-index mapping, including the
	// sentinel state at the final index.
	StateIndex() map[string]int
	// Vocabulary returns the underlying tokenizer's vocabulary.
	Vocabulary() map[string]int
	// TransitionMatrix returns the sparse (states x vocabulary) count matrix.
	TransitionMatrix() *sparse.CSR
	// TransitionProbabilityMatrix returns the L1-row-normalized count matrix.
	TransitionProbabilityMatrix() *sparse.CSR
}

// StateStats is a summary of a built state space.
type StateStats struct {
	States       int // Distinct n-grams plus the sentinel state
	Ngrams       int // N-grams in the ordered sequence, with repeats
	Transitions  int // Distinct (state, next-token) pairs observed
	Observations int // Total transition observations, with repeats
}

// StateSpace holds the n-gram state space of a tokenized text along with the
// sparse transition count and probability matrices. Everything is computed
// eagerly at construction; accessors return the same structures on every
// call and the structures must be treated as read-only.
type StateSpace struct {
	n            int
	tok          SequenceTokenizer
	ngrams       []string
	ngramSet     map[string]struct{}
	stateIndex   map[string]int
	counts       *sparse.CSR
	probs        *sparse.CSR
	observations int
}

var _ StateModel = (*StateSpace)(nil)

// NewStateSpace builds the state space of order n over the given tokenizer's
// token sequence. It returns ErrNilTokenizer if tok is nil and
// ErrInvalidOrder if n is outside [MinOrder, MaxOrder].
func NewStateSpace(tok SequenceTokenizer, n int) (*StateSpace, error) {
	if tok == nil {
		return nil, ErrNilTokenizer
	}
	if n < MinOrder || n > MaxOrder {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, n)
	}

	s := &StateSpace{n: n, tok: tok}
	s.ngrams = generateNgrams(tok.Tokens(), n)
	s.ngramSet = make(map[string]struct{}, len(s.ngrams))
	for _, g := range s.ngrams {
		s.ngramSet[g] = struct{}{}
	}
	s.stateIndex = generateStateIndex(s.ngrams)
	s.counts, s.observations = generateTransitionMatrix(tok, s.stateIndex, n)
	s.probs = normalizeRows(s.counts)
	return s, nil
}

// NewStateSpaceFromText is a convenience composition that tokenizes text and
// builds a state space of order n over it.
func NewStateSpaceFromText(text string, n int) (*StateSpace, error) {
	tok, err := NewTextTokens(text)
	if err != nil {
		return nil, fmt.Errorf("markov: create state space from text: %w", err)
	}
	return NewStateSpace(tok, n)
}

// generateNgrams slides a window of width n with stride 1 over the token
// sequence, joining each window with single spaces. Duplicates and original
// order are preserved.
func generateNgrams(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	ngrams := make([]string, 0, len(tokens)-n+1)
	for p := 0; p+n <= len(tokens); p++ {
		ngrams = append(ngrams, strings.Join(tokens[p:p+n], " "))
	}
	return ngrams
}

// generateStateIndex maps each distinct n-gram, in sorted order, to a dense
// index and appends the sentinel state as the final entry. Sorting keeps the
// index assignment reproducible across runs.
func generateStateIndex(ngrams []string) map[string]int {
	seen := make(map[string]struct{}, len(ngrams))
	for _, g := range ngrams {
		seen[g] = struct{}{}
	}
	distinct := make([]string, 0, len(seen)+1)
	for g := range seen {
		distinct = append(distinct, g)
	}
	sort.Strings(distinct)
	distinct = append(distinct, UnknownState)

	index := make(map[string]int, len(distinct))
	for i, g := range distinct {
		index[g] = i
	}
	return index
}

// generateTransitionMatrix scans the token sequence once, counting how often
// each state was immediately followed by each vocabulary token. Repeated
// observations of the same (state, next-token) pair accumulate. The counts
// are assembled as COO triplets and compressed to CSR.
func generateTransitionMatrix(tok SequenceTokenizer, stateIndex map[string]int, n int) (*sparse.CSR, int) {
	tokens := tok.Tokens()
	vocab := tok.Vocabulary()
	rows, cols := len(stateIndex), len(vocab)

	counts := make(map[int]float64)
	observations := 0
	for p := 0; p+n < len(tokens); p++ {
		state := strings.Join(tokens[p:p+n], " ")
		i := stateIndex[state]
		j := vocab[tokens[p+n]]
		counts[i*cols+j]++
		observations++
	}

	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	rowInd := make([]int, 0, len(keys))
	colInd := make([]int, 0, len(keys))
	data := make([]float64, 0, len(keys))
	for _, k := range keys {
		rowInd = append(rowInd, k/cols)
		colInd = append(colInd, k%cols)
		data = append(data, counts[k])
	}

	return sparse.NewCOO(rows, cols, rowInd, colInd, data).ToCSR(), observations
}

// normalizeRows divides every row of the count matrix by its L1 sum. Rows
// with a zero total, such as the sentinel state's row, are left all-zero.
func normalizeRows(counts *sparse.CSR) *sparse.CSR {
	rows, cols := counts.Dims()

	rowSums := make([]float64, rows)
	counts.DoNonZero(func(i, _ int, v float64) {
		rowSums[i] += v
	})

	nnz := counts.NNZ()
	rowInd := make([]int, 0, nnz)
	colInd := make([]int, 0, nnz)
	data := make([]float64, 0, nnz)
	counts.DoNonZero(func(i, j int, v float64) {
		rowInd = append(rowInd, i)
		colInd = append(colInd, j)
		data = append(data, v/rowSums[i])
	})

	return sparse.NewCOO(rows, cols, rowInd, colInd, data).ToCSR()
}

// Order returns the n-gram order of the state space.
func (s *StateSpace) Order() int {
	return s.n
}

// Tokenizer returns the tokenizer the state space was built from.
func (s *StateSpace) Tokenizer() SequenceTokenizer {
	return s.tok
}

// Ngrams returns the ordered n-gram sequence over the training tokens,
// duplicates included. Callers must not modify the returned slice.
func (s *StateSpace) Ngrams() []string {
	return s.ngrams
}

// ContainsNgram reports whether the given n-gram occurs in the ordered
// n-gram sequence.
func (s *StateSpace) ContainsNgram(ngram string) bool {
	_, ok := s.ngramSet[ngram]
	return ok
}

// StateIndex returns the distinct-n-gram-to-index mapping, with the sentinel
// state at the final index. Callers must not modify the returned map.
func (s *StateSpace) StateIndex() map[string]int {
	return s.stateIndex
}

// Vocabulary returns the underlying tokenizer's vocabulary map.
func (s *StateSpace) Vocabulary() map[string]int {
	return s.tok.Vocabulary()
}

// TransitionMatrix returns the sparse (states x vocabulary) transition count
// matrix.
func (s *StateSpace) TransitionMatrix() *sparse.CSR {
	return s.counts
}

// TransitionProbabilityMatrix returns the row-normalized transition matrix.
// Every row with observed transitions sums to 1; unobserved rows sum to 0.
func (s *StateSpace) TransitionProbabilityMatrix() *sparse.CSR {
	return s.probs
}

// Stats returns a summary of the built state space.
func (s *StateSpace) Stats() StateStats {
	return StateStats{
		States:       len(s.stateIndex),
		Ngrams:       len(s.ngrams),
		Transitions:  s.counts.NNZ(),
		Observations: s.observations,
	}
}
