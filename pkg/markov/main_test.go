package markov

import (
	"io"
	"reflect"
	"testing"
)

// sliceSource is an in-memory SequenceSource for tests.
type sliceSource struct {
	seqs [][]string
	i    int
}

func (s *sliceSource) Next() ([]string, error) {
	if s.i >= len(s.seqs) {
		return nil, io.EOF
	}
	seq := s.seqs[s.i]
	s.i++
	return seq, nil
}

func source(seqs ...[]string) *sliceSource {
	return &sliceSource{seqs: seqs}
}

// buildTestChain builds a chain from the given sequences, failing the test
// on any build error.
func buildTestChain(t *testing.T, order int, seqs ...[]string) *Chain {
	t.Helper()
	c, err := Build(source(seqs...), order)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	return c
}

// titleCorpus is the three-title corpus used across generation tests.
func titleCorpus() [][]string {
	return [][]string{
		{"the", "godfather"},
		{"the", "great", "escape"},
		{"the", "godfather", "part", "ii"},
	}
}

// transitionWeights flattens a chain into text form, prefix key -> next
// token text -> weight, for order-independent comparisons.
func transitionWeights(c *Chain) map[string]map[string]int {
	out := make(map[string]map[string]int)
	for pid, links := range c.links {
		ids, _ := parsePrefixKey(c.prefixes[pid])
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = c.words[id]
		}
		key := ""
		for i, p := range parts {
			if i > 0 {
				key += " "
			}
			key += p
		}
		m := make(map[string]int)
		for _, l := range links {
			m[c.words[l.TokenID]] = l.Weight
		}
		out[key] = m
	}
	return out
}

// chainsEqual compares two chains field by field, loggers excluded.
func chainsEqual(a, b *Chain) bool {
	return a.order == b.order &&
		reflect.DeepEqual(a.words, b.words) &&
		reflect.DeepEqual(a.vocab, b.vocab) &&
		reflect.DeepEqual(a.prefixes, b.prefixes) &&
		reflect.DeepEqual(a.prefixID, b.prefixID) &&
		reflect.DeepEqual(a.links, b.links)
}

// weightOf returns the recorded weight for a context -> next transition,
// with context and next given as token text. Returns 0 when absent.
func weightOf(t *testing.T, c *Chain, context []string, next string) int {
	t.Helper()
	ids := make([]int, len(context))
	for i, w := range context {
		id, ok := c.vocab[w]
		if !ok {
			return 0
		}
		ids[i] = id
	}
	pid, ok := c.prefixID[prefixKey(ids)]
	if !ok {
		return 0
	}
	nextID, ok := c.vocab[next]
	if !ok {
		return 0
	}
	for _, l := range c.links[pid] {
		if l.TokenID == nextID {
			return l.Weight
		}
	}
	return 0
}
