package markov

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// ErrEmptyVocabulary is returned when sampling is requested but the state
// space's vocabulary holds no tokens besides the sentinel.
var ErrEmptyVocabulary = errors.New("markov: vocabulary has no tokens to sample")

// Chain drives sequence generation over a StateModel. It holds a read-only
// reference to the state space plus a reverse vocabulary lookup built at
// construction. A Chain owns its random source and must not be shared
// between goroutines; create one Chain per goroutine over a shared
// StateSpace instead.
type Chain struct {
	space        StateModel
	reverseVocab []string
	rng          *rand.Rand
	logger       *slog.Logger
}

// ChainOption configures a Chain at construction.
type ChainOption func(*Chain)

// WithRand sets the random source used for fallback n-gram selection and
// token sampling. Inject a seeded source for reproducible output.
func WithRand(rng *rand.Rand) ChainOption {
	return func(c *Chain) {
		if rng != nil {
			c.rng = rng
		}
	}
}

// NewChain creates a Chain over the given state space. Without options it
// uses a freshly seeded random source and discards all logs.
func NewChain(space StateModel, opts ...ChainOption) *Chain {
	vocab := space.Vocabulary()
	reverse := make([]string, len(vocab))
	for tok, i := range vocab {
		reverse[i] = tok
	}

	c := &Chain{
		space:        space,
		reverseVocab: reverse,
		rng:          rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetLogger sets the logger for the Chain. By default, all logs are
// discarded. Prefix repairs and degenerate sampling states are reported at
// warn level.
func (c *Chain) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// StateSpace returns the state model the Chain generates from.
func (c *Chain) StateSpace() StateModel {
	return c.space
}

// RandomNgram draws one n-gram uniformly from the ordered n-gram sequence,
// not the distinct state set, so n-grams that occur more often in the
// training text are proportionally more likely. A state space with no
// n-grams yields the sentinel state.
func (c *Chain) RandomNgram() string {
	ngrams := c.space.Ngrams()
	if len(ngrams) == 0 {
		return UnknownState
	}
	return ngrams[c.rng.IntN(len(ngrams))]
}

// CheckPrefix repairs a caller-supplied prefix into a valid state. It keeps
// the last n space-separated tokens of the prefix; if fewer than n are
// available, or the result does not occur in the n-gram sequence, a random
// n-gram is substituted. The second return value reports whether the
// fallback fired. CheckPrefix never fails and is idempotent on prefixes
// that are already valid.
func (c *Chain) CheckPrefix(prefix string) (string, bool) {
	n := c.space.Order()
	parts := strings.Split(prefix, " ")
	if len(parts) > n {
		parts = parts[len(parts)-n:]
	}
	if len(parts) < n {
		c.logger.Warn("prefix is too short, substituting a random n-gram",
			slog.String("prefix", prefix),
			slog.Int("order", n),
		)
		return c.RandomNgram(), true
	}

	joined := strings.Join(parts, " ")
	if c.space.ContainsNgram(joined) {
		return joined, false
	}
	c.logger.Warn("prefix is not a known n-gram, substituting a random n-gram",
		slog.String("prefix", joined),
	)
	return c.RandomNgram(), true
}

// NextElement repairs the prefix, reads its row of the probability matrix,
// and samples one vocabulary token with probability equal to its weight.
//
// A state whose probability row is all-zero has no observed continuation; in
// that case NextElement falls back to a uniform draw over the non-sentinel
// vocabulary and logs a warning. ErrEmptyVocabulary is returned only when
// there is no vocabulary to draw from.
func (c *Chain) NextElement(prefix string) (string, error) {
	state, _ := c.CheckPrefix(prefix)
	return c.sampleNext(state)
}

// sampleNext performs the weighted draw for a state already known to be a
// member of the state index.
func (c *Chain) sampleNext(state string) (string, error) {
	idx, ok := c.space.StateIndex()[state]
	if !ok {
		return "", fmt.Errorf("markov: state %q is not in the state index", state)
	}

	var (
		tokenIdx []int
		weights  []float64
	)
	c.space.TransitionProbabilityMatrix().DoRowNonZero(idx, func(_, j int, v float64) {
		tokenIdx = append(tokenIdx, j)
		weights = append(weights, v)
	})

	total := floats.Sum(weights)
	if total <= 0 {
		vocabLen := len(c.reverseVocab) - 1 // sentinel excluded
		if vocabLen <= 0 {
			return "", ErrEmptyVocabulary
		}
		c.logger.Warn("state has no observed continuation, sampling uniformly over vocabulary",
			slog.String("state", state),
		)
		return c.reverseVocab[c.rng.IntN(vocabLen)], nil
	}

	u := c.rng.Float64() * total
	for i, w := range weights {
		u -= w
		if u < 0 {
			return c.reverseVocab[tokenIdx[i]], nil
		}
	}
	// Floating point rounding can leave u barely non-negative.
	return c.reverseVocab[tokenIdx[len(tokenIdx)-1]], nil
}

// GenerateSequence repairs the prefix, seeds the output with its tokens, and
// appends sampled tokens over a sliding window of the last n generated
// tokens until the output holds exactly length tokens, joined by single
// spaces. If length does not exceed the repaired prefix's token count, the
// repaired prefix is truncated to length tokens and no sampling occurs.
func (c *Chain) GenerateSequence(length int, prefix string) (string, error) {
	repaired, _ := c.CheckPrefix(prefix)
	seq := strings.Split(repaired, " ")

	if length <= len(seq) {
		if length < 0 {
			length = 0
		}
		return strings.Join(seq[:length], " "), nil
	}

	n := c.space.Order()
	window := repaired
	for len(seq) < length {
		next, err := c.NextElement(window)
		if err != nil {
			return "", err
		}
		seq = append(seq, next)
		// The sentinel seed is a single token, so the window can hold fewer
		// than n tokens early on.
		start := len(seq) - n
		if start < 0 {
			start = 0
		}
		window = strings.Join(seq[start:], " ")
	}
	return strings.Join(seq, " "), nil
}
