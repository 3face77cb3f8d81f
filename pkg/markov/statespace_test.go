package markov

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestNewStateSpaceErrors(t *testing.T) {
	tok, err := NewTextTokens(testText)
	if err != nil {
		t.Fatalf("NewTextTokens() error = %v", err)
	}

	if _, err := NewStateSpace(nil, 2); !errors.Is(err, ErrNilTokenizer) {
		t.Errorf("NewStateSpace(nil, 2) error = %v, want ErrNilTokenizer", err)
	}

	for _, n := range []int{-1, 0, 1, 6, 10} {
		if _, err := NewStateSpace(tok, n); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("NewStateSpace(tok, %d) error = %v, want ErrInvalidOrder", n, err)
		}
	}

	for n := MinOrder; n <= MaxOrder; n++ {
		if _, err := NewStateSpace(tok, n); err != nil {
			t.Errorf("NewStateSpace(tok, %d) unexpected error = %v", n, err)
		}
	}
}

func TestNewStateSpaceFromText(t *testing.T) {
	if _, err := NewStateSpaceFromText(string([]byte{0xff}), 2); err == nil {
		t.Error("expected an error for invalid text input")
	}

	space, err := NewStateSpaceFromText(testText, 2)
	if err != nil {
		t.Fatalf("NewStateSpaceFromText() error = %v", err)
	}
	if space.Order() != 2 {
		t.Errorf("Order() = %d, want 2", space.Order())
	}
}

func TestNgramSequence(t *testing.T) {
	for n := MinOrder; n <= MaxOrder; n++ {
		space := newTestSpace(t, testText, n)
		tokens := space.Tokenizer().Tokens()

		want := len(tokens) - n + 1
		if want < 0 {
			want = 0
		}
		if got := len(space.Ngrams()); got != want {
			t.Errorf("n=%d: ngram count = %d, want %d", n, got, want)
		}
	}

	space := newTestSpace(t, testText, 2)
	if !space.ContainsNgram("This is") {
		t.Error(`"This is" should be a member of the n-gram sequence`)
	}
	if space.ContainsNgram("is This") {
		t.Error(`"is This" should not be a member of the n-gram sequence`)
	}
}

func TestNgramsShorterThanOrder(t *testing.T) {
	space := newTestSpace(t, "hello", 2)
	if got := len(space.Ngrams()); got != 0 {
		t.Errorf("ngram count = %d, want 0 for single-token text", got)
	}
	// The state index still carries the sentinel state.
	if got := len(space.StateIndex()); got != 1 {
		t.Errorf("state index size = %d, want 1", got)
	}
}

func TestStateIndex(t *testing.T) {
	space := newTestSpace(t, testText, 2)

	distinct := make(map[string]struct{})
	for _, g := range space.Ngrams() {
		distinct[g] = struct{}{}
	}
	index := space.StateIndex()
	if len(index) != len(distinct)+1 {
		t.Errorf("state index size = %d, want distinct+1 = %d", len(index), len(distinct)+1)
	}
	if index[UnknownState] != len(index)-1 {
		t.Errorf("sentinel state index = %d, want %d", index[UnknownState], len(index)-1)
	}

	seen := make(map[int]string, len(index))
	for state, idx := range index {
		if idx < 0 || idx >= len(index) {
			t.Errorf("index %d for state %q out of range", idx, state)
		}
		if prev, dup := seen[idx]; dup {
			t.Errorf("index %d assigned to both %q and %q", idx, prev, state)
		}
		seen[idx] = state
	}
}

func TestStateIndexDeterministic(t *testing.T) {
	first := newTestSpace(t, testText, 2)
	second := newTestSpace(t, testText, 2)

	if !reflect.DeepEqual(first.StateIndex(), second.StateIndex()) {
		t.Error("state index differs between identical constructions")
	}
	if !reflect.DeepEqual(first.Ngrams(), second.Ngrams()) {
		t.Error("ngram sequence differs between identical constructions")
	}
	if !reflect.DeepEqual(first.Vocabulary(), second.Vocabulary()) {
		t.Error("vocabulary differs between identical constructions")
	}
}

func TestTransitionMatrix(t *testing.T) {
	space := newTestSpace(t, testText, 2)
	counts := space.TransitionMatrix()

	rows, cols := counts.Dims()
	if rows != len(space.StateIndex()) || cols != len(space.Vocabulary()) {
		t.Errorf("matrix shape = (%d, %d), want (%d, %d)",
			rows, cols, len(space.StateIndex()), len(space.Vocabulary()))
	}

	// Tokens: This is a test . This test is for NLP .
	index := space.StateIndex()
	vocab := space.Vocabulary()
	expected := []struct {
		state string
		next  string
	}{
		{"This is", "a"},
		{"is a", "test"},
		{"a test", "."},
		{"test .", "This"},
		{". This", "test"},
		{"This test", "is"},
		{"test is", "for"},
		{"is for", "NLP"},
		{"for NLP", "."},
	}
	for _, tr := range expected {
		if got := counts.At(index[tr.state], vocab[tr.next]); got != 1 {
			t.Errorf("count(%q -> %q) = %v, want 1", tr.state, tr.next, got)
		}
	}
	if counts.NNZ() != len(expected) {
		t.Errorf("NNZ() = %d, want %d", counts.NNZ(), len(expected))
	}
}

func TestTransitionMatrixAccumulates(t *testing.T) {
	space := newTestSpace(t, "a b c a b c a b d", 2)
	counts := space.TransitionMatrix()
	index := space.StateIndex()
	vocab := space.Vocabulary()

	if got := counts.At(index["a b"], vocab["c"]); got != 2 {
		t.Errorf(`count("a b" -> "c") = %v, want 2`, got)
	}
	if got := counts.At(index["a b"], vocab["d"]); got != 1 {
		t.Errorf(`count("a b" -> "d") = %v, want 1`, got)
	}
}

func TestProbabilityRowSums(t *testing.T) {
	const tolerance = 1e-9
	space := newTestSpace(t, testText, 2)

	countSums := make([]float64, len(space.StateIndex()))
	space.TransitionMatrix().DoNonZero(func(i, _ int, v float64) {
		countSums[i] += v
	})
	probSums := make([]float64, len(space.StateIndex()))
	space.TransitionProbabilityMatrix().DoNonZero(func(i, _ int, v float64) {
		probSums[i] += v
	})

	for i := range probSums {
		if countSums[i] > 0 {
			if math.Abs(probSums[i]-1) > tolerance {
				t.Errorf("row %d sums to %v, want 1", i, probSums[i])
			}
		} else if probSums[i] != 0 {
			t.Errorf("zero-count row %d sums to %v, want 0", i, probSums[i])
		}
	}

	// The sentinel state's row is always a zero row.
	sentinel := space.StateIndex()[UnknownState]
	if probSums[sentinel] != 0 {
		t.Errorf("sentinel row sums to %v, want 0", probSums[sentinel])
	}
}

func TestStateStats(t *testing.T) {
	space := newTestSpace(t, testText, 2)
	stats := space.Stats()

	if stats.States != len(space.StateIndex()) {
		t.Errorf("States = %d, want %d", stats.States, len(space.StateIndex()))
	}
	if stats.Ngrams != len(space.Ngrams()) {
		t.Errorf("Ngrams = %d, want %d", stats.Ngrams, len(space.Ngrams()))
	}
	if stats.Transitions != space.TransitionMatrix().NNZ() {
		t.Errorf("Transitions = %d, want %d", stats.Transitions, space.TransitionMatrix().NNZ())
	}
	// One observation per scan position: len(tokens) - n.
	wantObs := len(space.Tokenizer().Tokens()) - space.Order()
	if stats.Observations != wantObs {
		t.Errorf("Observations = %d, want %d", stats.Observations, wantObs)
	}
}
