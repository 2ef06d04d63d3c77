package markov

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// SequenceSource yields one normalized token sequence per title. Next
// returns io.EOF once the source is exhausted. corpus.Stream satisfies this
// interface.
type SequenceSource interface {
	Next() ([]string, error)
}

// Build constructs a chain of the given order from a corpus stream. For
// each sequence it prepends order start sentinels and appends one end
// sentinel, then records every sliding window of length order together
// with the token that follows it, accumulating weights. The resulting
// weights depend only on the corpus contents and the order, not on the
// iteration order of the source.
//
// Sequences shorter than the order contribute only the transition from the
// all-start context directly to the end sentinel.
//
// Build returns ErrInvalidOrder if order < 1 and ErrEmptyCorpus if the
// source yields no sequences.
func Build(src SequenceSource, order int) (*Chain, error) {
	if order < 1 {
		return nil, ErrInvalidOrder
	}

	c := newChain(order)
	var sequenceCount int64

	for {
		tokens, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("corpus stream: %w", err)
		}
		c.addSequence(tokens)
		sequenceCount++
	}

	if sequenceCount == 0 {
		return nil, ErrEmptyCorpus
	}

	c.logger.Info("Chain built",
		slog.Int("order", order),
		slog.Int64("sequences_processed", sequenceCount),
		slog.Int("vocab_size", len(c.words)),
		slog.Int("prefix_count", len(c.prefixes)),
	)

	return c, nil
}

func (c *Chain) addSequence(tokens []string) {
	ids := make([]int, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		ids = append(ids, c.tokenID(t))
	}

	if len(ids) < c.order {
		c.addLink(c.prefixIDFor(c.allStartKey()), EndTokenID, 1)
		return
	}

	// Lay the sequence out as [start x order, tokens..., end] and slide a
	// window of length order over it.
	full := make([]int, len(ids)+c.order+1)
	copy(full[c.order:len(full)-1], ids)
	full[len(full)-1] = EndTokenID

	for i := 0; i <= len(ids); i++ {
		pid := c.prefixIDFor(prefixKey(full[i : i+c.order]))
		c.addLink(pid, full[i+c.order], 1)
	}
}
