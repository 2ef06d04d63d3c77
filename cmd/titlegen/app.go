package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"titlegen/pkg/corpus"
	"titlegen/pkg/markov"
)

// Run parses args, loads or builds the chain, and prints generated titles
// to stdout. It returns the process exit code: 0 on success, 1 on any fatal
// error, 2 on a flag parsing error.
func Run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("titlegen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "./config.json", "path to the JSON config file")
	corpusPath := fs.String("corpus", "", "corpus archive or text file (overrides config)")
	chainPath := fs.String("chain", "", "chain snapshot path (overrides config)")
	order := fs.Int("order", 0, "chain order (overrides config)")
	count := fs.Int("n", 0, "number of titles to generate (overrides config)")
	rebuild := fs.Bool("rebuild", false, "ignore any existing chain snapshot and rebuild from the corpus")
	logLevel := fs.String("log", "", "log level: debug, info, warn or error (overrides config)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: titlegen [flags] [seed-word]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	seed := fs.Arg(0)

	config, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "titlegen:", err)
		return 1
	}
	if *corpusPath != "" {
		config.CorpusPath = *corpusPath
	}
	if *chainPath != "" {
		config.ChainPath = *chainPath
	}
	if *order > 0 {
		config.Order = *order
	}
	if *count > 0 {
		config.TitleCount = *count
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: parseLogLevel(config.LogLevel),
	}))

	chain, err := loadOrBuild(config, *rebuild, logger)
	if err != nil {
		fmt.Fprintln(stderr, "titlegen:", err)
		return 1
	}

	if err := printTitles(chain, config, seed, stdout); err != nil {
		fmt.Fprintln(stderr, "titlegen:", err)
		return 1
	}
	return 0
}

// loadOrBuild restores the persisted chain when it matches the configured
// corpus and order, and otherwise rebuilds it from the corpus and persists
// the result. Restore failures are recoverable and only logged.
func loadOrBuild(config *Config, rebuild bool, logger *slog.Logger) (*markov.Chain, error) {
	fingerprint := ""
	if fp, err := markov.Fingerprint(config.CorpusPath); err == nil {
		fingerprint = fp
	}

	if !rebuild {
		chain, err := markov.Restore(config.ChainPath, config.Order, fingerprint)
		if err == nil {
			chain.SetLogger(logger)
			logger.Debug("Chain restored from snapshot", "path", config.ChainPath)
			return chain, nil
		}
		var restoreErr *markov.RestoreError
		if !errors.As(err, &restoreErr) {
			return nil, err
		}
		logger.Debug("Chain restore failed, rebuilding from corpus", "error", err)
	}

	stream, err := corpus.Open(config.CorpusPath)
	if err != nil {
		return nil, err
	}
	defer func(stream *corpus.Stream) {
		_ = stream.Close()
	}(stream)
	stream.SetLogger(logger)

	chain, err := markov.Build(stream, config.Order)
	if err != nil {
		return nil, err
	}
	chain.SetLogger(logger)

	if skipped := stream.Skipped(); skipped > 0 {
		logger.Info("Some corpus lines could not be parsed", "skipped", skipped)
	}

	if err := chain.Persist(config.ChainPath, fingerprint); err != nil {
		// The chain is still usable this run; only the warm path is lost.
		logger.Warn("Failed to persist chain snapshot", "error", err)
	}
	return chain, nil
}

// printTitles generates config.TitleCount unique titles and writes them one
// per line. Duplicates and empty walks are retried up to a bounded number
// of attempts so a tiny corpus cannot spin forever.
func printTitles(chain *markov.Chain, config *Config, seed string, w io.Writer) error {
	opts := []markov.GenerateOption{markov.WithMaxTokens(config.MaxTokens)}
	if seed != "" {
		opts = append(opts, markov.WithSeed(seed))
	}

	seen := make(map[string]struct{})
	printed := 0
	for attempts := config.TitleCount * 20; printed < config.TitleCount && attempts > 0; attempts-- {
		title, err := chain.Generate(opts...)
		if err != nil {
			return err
		}
		if title == "" {
			continue
		}
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
		printed++
	}
	return nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
