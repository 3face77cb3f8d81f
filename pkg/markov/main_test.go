package markov

import (
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
)

// testText exercises punctuation splitting and repeated windows.
const testText = "This is a test. This test is for NLP."

// newTestSpace builds a state space over text, failing the test on error.
func newTestSpace(t *testing.T, text string, n int) *StateSpace {
	t.Helper()
	space, err := NewStateSpaceFromText(text, n)
	if err != nil {
		t.Fatalf("NewStateSpaceFromText(%q, %d) error = %v", text, n, err)
	}
	return space
}

// newSeededChain returns a chain with a fixed random source so sampling
// behavior is reproducible across test runs.
func newSeededChain(space StateModel) *Chain {
	return NewChain(space, WithRand(rand.New(rand.NewPCG(1, 2))))
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus builds a repetitive but multi-sentence corpus large
// enough to make benchmark numbers meaningful.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		sentences := []string{
			"the quick brown fox jumps over the lazy dog.",
			"a stitch in time saves nine, or so they say.",
			"the dog barks at the quick fox; the fox does not care.",
			"time flies like an arrow and fruit flies like a banana.",
		}
		var sb strings.Builder
		for i := 0; i < 250; i++ {
			sb.WriteString(sentences[i%len(sentences)])
			sb.WriteString(" ")
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}
