package markov

import (
	"errors"
	"reflect"
	"testing"
)

func TestBuildInvalidOrder(t *testing.T) {
	for _, order := range []int{0, -1} {
		if _, err := Build(source([]string{"a"}), order); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("Build(order=%d) error = %v, want ErrInvalidOrder", order, err)
		}
	}
}

func TestBuildEmptyCorpus(t *testing.T) {
	if _, err := Build(source(), 1); !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("Build() on empty source error = %v, want ErrEmptyCorpus", err)
	}
}

func TestBuildWeightAccumulation(t *testing.T) {
	// The same bigram observed three times must carry weight exactly 3.
	c := buildTestChain(t, 1,
		[]string{"the", "end"},
		[]string{"the", "end"},
		[]string{"the", "end"},
	)

	if got := weightOf(t, c, []string{"the"}, "end"); got != 3 {
		t.Errorf("weight of 'the' -> 'end' = %d, want 3", got)
	}
	if got := weightOf(t, c, []string{StartTokenText}, "the"); got != 3 {
		t.Errorf("weight of start -> 'the' = %d, want 3", got)
	}
	if got := weightOf(t, c, []string{"end"}, EndTokenText); got != 3 {
		t.Errorf("weight of 'end' -> end sentinel = %d, want 3", got)
	}
}

func TestBuildWeightsIndependentOfInputOrder(t *testing.T) {
	seqs := titleCorpus()
	reversed := [][]string{seqs[2], seqs[1], seqs[0]}

	a := buildTestChain(t, 1, seqs...)
	b := buildTestChain(t, 1, reversed...)

	if !reflect.DeepEqual(transitionWeights(a), transitionWeights(b)) {
		t.Errorf("weights differ across input orderings:\n%v\nvs\n%v",
			transitionWeights(a), transitionWeights(b))
	}
}

func TestBuildShortSequence(t *testing.T) {
	// A sequence shorter than the order contributes only the transition
	// from the all-start context to the end sentinel.
	c := buildTestChain(t, 2, []string{"solo"})

	if len(c.prefixes) != 1 {
		t.Fatalf("expected exactly 1 context, got %d", len(c.prefixes))
	}
	want := []Link{{TokenID: EndTokenID, Weight: 1}}
	if !reflect.DeepEqual(c.links[0], want) {
		t.Errorf("all-start links = %v, want %v", c.links[0], want)
	}
}

func TestBuildOrderTwoWindows(t *testing.T) {
	c := buildTestChain(t, 2, []string{"a", "b", "c"})

	cases := []struct {
		context []string
		next    string
		want    int
	}{
		{[]string{StartTokenText, StartTokenText}, "a", 1},
		{[]string{StartTokenText, "a"}, "b", 1},
		{[]string{"a", "b"}, "c", 1},
		{[]string{"b", "c"}, EndTokenText, 1},
	}
	for _, tc := range cases {
		if got := weightOf(t, c, tc.context, tc.next); got != tc.want {
			t.Errorf("weight of %v -> %q = %d, want %d", tc.context, tc.next, got, tc.want)
		}
	}
}

func TestStats(t *testing.T) {
	c := buildTestChain(t, 1, titleCorpus()...)
	stats := c.Stats()

	// 3 titles x 1 start token each, but all start with "the".
	if stats.StartingTokens != 1 {
		t.Errorf("StartingTokens = %d, want 1", stats.StartingTokens)
	}
	// the, godfather, great, escape, part, ii + 2 sentinels.
	if stats.VocabSize != 8 {
		t.Errorf("VocabSize = %d, want 8", stats.VocabSize)
	}
	// One transition recorded per window: (2+1) + (3+1) + (4+1).
	if stats.TotalFrequency != 12 {
		t.Errorf("TotalFrequency = %d, want 12", stats.TotalFrequency)
	}
	if stats.Links == 0 || stats.Links > stats.TotalFrequency {
		t.Errorf("Links = %d, want in (0, %d]", stats.Links, stats.TotalFrequency)
	}
}

func TestPrune(t *testing.T) {
	c := buildTestChain(t, 1,
		[]string{"the", "godfather"},
		[]string{"the", "godfather"},
		[]string{"the", "mask"},
	)

	// "the" -> "mask" has weight 1 and must go; "the" -> "godfather" (2) stays.
	removed := c.Prune(1)
	if removed == 0 {
		t.Fatal("Prune(1) removed nothing")
	}
	if got := weightOf(t, c, []string{"the"}, "mask"); got != 0 {
		t.Errorf("'the' -> 'mask' still present with weight %d", got)
	}
	if got := weightOf(t, c, []string{"the"}, "godfather"); got != 2 {
		t.Errorf("'the' -> 'godfather' = %d, want 2", got)
	}
}
