package markov

import (
	"io"
	"log/slog"
	"strconv"
	"strings"
)

const (
	// StartTokenID is the reserved ID for the start-of-title sentinel.
	StartTokenID = 0
	// EndTokenID is the reserved ID for the end-of-title sentinel.
	EndTokenID = 1
	// StartTokenText is the reserved text for the start-of-title sentinel.
	StartTokenText = "<SOC>"
	// EndTokenText is the reserved text for the end-of-title sentinel.
	EndTokenText = "<EOC>"
)

// Link is a single weighted transition: a candidate next token and the
// number of times it was observed following its context.
type Link struct {
	TokenID int
	Weight  int
}

// Chain is a complete Markov transition table of a fixed order. Contexts
// (prefixes) are kept in first-insertion order, which makes seeded
// generation deterministic and survives a persist/restore round trip.
type Chain struct {
	order    int
	words    []string       // token ID -> text; IDs 0 and 1 are sentinels
	vocab    map[string]int // token text -> ID
	prefixes []string       // prefix ID -> key, in first-insertion order
	prefixID map[string]int // prefix key -> ID
	links    [][]Link       // prefix ID -> successors, in first-seen order
	linkIdx  []map[int]int  // prefix ID -> token ID -> index into links
	logger   *slog.Logger
}

// ChainStats holds aggregate counts for a chain.
type ChainStats struct {
	Links          int // unique context -> next-token transitions
	TotalFrequency int // sum of all transition weights
	StartingTokens int // unique tokens observed at the start of a title
	VocabSize      int // unique tokens, sentinels included
	PrefixCount    int // unique contexts
}

func newChain(order int) *Chain {
	c := &Chain{
		order:    order,
		words:    []string{StartTokenText, EndTokenText},
		vocab:    map[string]int{StartTokenText: StartTokenID, EndTokenText: EndTokenID},
		prefixID: make(map[string]int),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return c
}

// Order returns the chain order: the number of preceding tokens used to
// predict the next one.
func (c *Chain) Order() int { return c.order }

// SetLogger sets the logger for the chain. By default, all logs are
// discarded.
func (c *Chain) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// tokenID returns the ID for a token's text, inserting it into the
// vocabulary if it has not been seen before.
func (c *Chain) tokenID(text string) int {
	if id, ok := c.vocab[text]; ok {
		return id
	}
	id := len(c.words)
	c.words = append(c.words, text)
	c.vocab[text] = id
	return id
}

// prefixIDFor returns the ID for a prefix key, inserting it if it has not
// been seen before.
func (c *Chain) prefixIDFor(key string) int {
	if id, ok := c.prefixID[key]; ok {
		return id
	}
	id := len(c.prefixes)
	c.prefixes = append(c.prefixes, key)
	c.prefixID[key] = id
	c.links = append(c.links, nil)
	c.linkIdx = append(c.linkIdx, make(map[int]int))
	return id
}

// addLink records weight observations of tokenID following the given prefix.
func (c *Chain) addLink(prefixID, tokenID, weight int) {
	if i, ok := c.linkIdx[prefixID][tokenID]; ok {
		c.links[prefixID][i].Weight += weight
		return
	}
	c.linkIdx[prefixID][tokenID] = len(c.links[prefixID])
	c.links[prefixID] = append(c.links[prefixID], Link{TokenID: tokenID, Weight: weight})
}

// prefixKey encodes a window of token IDs as a space-joined decimal string,
// the form used for table keys and the persisted prefix table.
func prefixKey(ids []int) string {
	var buf []byte
	for i, id := range ids {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = strconv.AppendInt(buf, int64(id), 10)
	}
	return string(buf)
}

// parsePrefixKey is the inverse of prefixKey.
func parsePrefixKey(key string) ([]int, error) {
	fields := strings.Split(key, " ")
	ids := make([]int, len(fields))
	for i, f := range fields {
		id, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// allStartKey returns the prefix key for the context at the beginning of a
// title: order repetitions of the start sentinel.
func (c *Chain) allStartKey() string {
	return prefixKey(make([]int, c.order))
}

// transitionCount returns the number of unique transitions in the table.
func (c *Chain) transitionCount() int {
	n := 0
	for _, links := range c.links {
		n += len(links)
	}
	return n
}

// Stats returns a snapshot of aggregate counts for the chain.
func (c *Chain) Stats() ChainStats {
	stats := ChainStats{
		VocabSize:   len(c.words),
		PrefixCount: len(c.prefixes),
	}
	for _, links := range c.links {
		stats.Links += len(links)
		for _, l := range links {
			stats.TotalFrequency += l.Weight
		}
	}
	if id, ok := c.prefixID[c.allStartKey()]; ok {
		stats.StartingTokens = len(c.links[id])
	}
	return stats
}

// Prune removes all transitions with a weight less than or equal to
// minWeight and returns the number removed. Pruning can leave dead-end
// contexts; Generate treats those as end-of-title.
func (c *Chain) Prune(minWeight int) int {
	removed := 0
	for pid := range c.links {
		kept := c.links[pid][:0]
		idx := c.linkIdx[pid]
		clear(idx)
		for _, l := range c.links[pid] {
			if l.Weight <= minWeight {
				removed++
				continue
			}
			idx[l.TokenID] = len(kept)
			kept = append(kept, l)
		}
		c.links[pid] = kept
	}
	c.logger.Info("Chain pruned",
		slog.Int("min_weight", minWeight),
		slog.Int("links_removed", removed),
	)
	return removed
}
