package markov

import (
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultMaxTokens is the hard cap on sampled tokens per generated title.
// It bounds the walk even over a cyclic table.
const DefaultMaxTokens = 50

// generateOptions is used by Generate to configure default options.
type generateOptions struct {
	seed      string
	maxTokens int
	rng       *rand.Rand
}

// GenerateOption is a function that configures generation parameters.
type GenerateOption func(*generateOptions)

// WithSeed sets a starting word for the walk. If the chain contains at
// least one context ending in the (case-normalized) word, generation starts
// from the earliest such context and the word becomes the first token of
// the title. An unknown seed falls back to the start-of-title context.
// An empty seed is a no-op.
func WithSeed(word string) GenerateOption {
	return func(o *generateOptions) { o.seed = word }
}

// WithMaxTokens sets the maximum number of tokens in the generated title,
// seed word included. The walk stops and the partial title is returned once
// the cap is reached.
func WithMaxTokens(n int) GenerateOption {
	return func(o *generateOptions) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// WithRand sets the random source used for weighted selection, making
// generation reproducible. By default the process-global source is used.
func WithRand(r *rand.Rand) GenerateOption {
	return func(o *generateOptions) { o.rng = r }
}

// Generate performs a random walk over the chain and returns one
// title-cased title. At each step the next token is sampled from the
// current context's candidates with probability proportional to its weight;
// the walk ends when the end sentinel is sampled, a dead-end context is
// reached, or the token cap is hit.
//
// Generate returns ErrEmptyChain if the chain holds no transitions.
func (c *Chain) Generate(opts ...GenerateOption) (string, error) {
	options := &generateOptions{maxTokens: DefaultMaxTokens}
	for _, opt := range opts {
		opt(options)
	}

	if c.transitionCount() == 0 {
		return "", ErrEmptyChain
	}

	intn := rand.IntN
	if options.rng != nil {
		intn = options.rng.IntN
	}

	prefix := make([]int, c.order)
	var words []string

	if options.seed != "" {
		seed := strings.ToLower(strings.TrimSpace(options.seed))
		if ids, ok := c.seedContext(seed); ok {
			prefix = ids
			words = append(words, seed)
		} else {
			c.logger.Debug("Seed not found in any context, starting fresh",
				slog.String("seed", seed),
			)
		}
	}

	for len(words) < options.maxTokens {
		pid, ok := c.prefixID[prefixKey(prefix)]
		if !ok || len(c.links[pid]) == 0 {
			// Dead end, possible after pruning. Treat as end-of-title.
			c.logger.Debug("Generation terminated at dead-end context",
				slog.Int("generated_length", len(words)),
			)
			break
		}

		next := chooseNext(c.links[pid], intn)
		if next == EndTokenID {
			break
		}

		words = append(words, c.words[next])
		prefix = append(prefix[1:], next)
	}

	return cases.Title(language.Und).String(strings.Join(words, " ")), nil
}

// seedContext returns the token IDs of the earliest-inserted context whose
// last token equals the seed word.
func (c *Chain) seedContext(seed string) ([]int, bool) {
	id, ok := c.vocab[seed]
	if !ok {
		return nil, false
	}
	idStr := strconv.Itoa(id)
	suffix := " " + idStr
	for _, key := range c.prefixes {
		if key != idStr && !strings.HasSuffix(key, suffix) {
			continue
		}
		ids, err := parsePrefixKey(key)
		if err != nil {
			return nil, false
		}
		return ids, true
	}
	return nil, false
}

// chooseNext samples one link with probability proportional to its weight.
func chooseNext(links []Link, intn func(int) int) int {
	total := 0
	for _, l := range links {
		total += l.Weight
	}
	r := intn(total)
	for _, l := range links {
		r -= l.Weight
		if r < 0 {
			return l.TokenID
		}
	}
	// Unreachable with positive weights; fall back to the last candidate.
	return links[len(links)-1].TokenID
}
