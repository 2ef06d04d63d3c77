package corpus

import (
	"archive/zip"
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// ErrSourceUnavailable is returned by Open when the corpus file or archive
// cannot be opened. It is fatal to the calling process.
var ErrSourceUnavailable = errors.New("corpus source unavailable")

var (
	// listTitleRegex matches the title portion of an IMDb movies.list line,
	// e.g. `The Godfather (1972)` or `Some Show (1994/II)`.
	listTitleRegex = regexp.MustCompile(`(^.*)\s*?\([\d?]{4}[/IVXL]*\)`)

	// badCharRegex matches single characters stripped from every title.
	badCharRegex = regexp.MustCompile(`["'()]`)
)

// Stream yields normalized token sequences, one per unique title. It is
// lazy and finite; restarting means calling Open again.
type Stream struct {
	scanner *bufio.Scanner
	closers []io.Closer
	strict  bool // list format: lines that don't match the title regex are skipped
	seen    map[string]struct{}
	skipped int
	logger  *slog.Logger
}

// Open opens a corpus at path. A ".zip" path is treated as an archive
// holding an IMDb-style list file (a "movies.list" member, any ".list"
// member, or failing that the first file); a ".list" path is read as the
// list format directly; anything else is read as plain text with one title
// per line. List-format sources are decoded from ISO-8859-1, the encoding
// the IMDb dumps ship in.
//
// Open failures wrap ErrSourceUnavailable.
func Open(path string) (*Stream, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return openZip(path)
	case ".list":
		return openFile(path, true)
	default:
		return openFile(path, false)
	}
}

func openFile(path string, strict bool) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, path, err)
	}
	var r io.Reader = f
	if strict {
		r = charmap.ISO8859_1.NewDecoder().Reader(f)
	}
	return newStream(r, strict, f), nil
}

func openZip(path string) (*Stream, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, path, err)
	}

	member := pickMember(&zr.Reader)
	if member == nil {
		_ = zr.Close()
		return nil, fmt.Errorf("%w: %s: archive holds no files", ErrSourceUnavailable, path)
	}

	rc, err := member.Open()
	if err != nil {
		_ = zr.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, path, err)
	}

	r := charmap.ISO8859_1.NewDecoder().Reader(rc)
	return newStream(r, true, rc, zr), nil
}

func pickMember(zr *zip.Reader) *zip.File {
	var first *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if f.Name == "movies.list" {
			return f
		}
		if first == nil {
			first = f
		}
	}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".list") {
			return f
		}
	}
	return first
}

func newStream(r io.Reader, strict bool, closers ...io.Closer) *Stream {
	return &Stream{
		scanner: bufio.NewScanner(r),
		closers: closers,
		strict:  strict,
		seen:    make(map[string]struct{}),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the stream. By default, all logs are
// discarded.
func (s *Stream) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Next returns the next unique title as a token sequence, or io.EOF once
// the source is exhausted. Unparseable list lines and duplicate titles are
// skipped.
func (s *Stream) Next() ([]string, error) {
	for s.scanner.Scan() {
		title, ok := s.normalize(s.scanner.Text())
		if !ok {
			s.skipped++
			s.logger.Debug("Skipping unparseable corpus line",
				slog.String("line", s.scanner.Text()),
			)
			continue
		}
		if title == "" {
			continue
		}
		if _, dup := s.seen[title]; dup {
			continue
		}
		s.seen[title] = struct{}{}
		return strings.Fields(title), nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Skipped reports how many lines were dropped as unparseable so far.
func (s *Stream) Skipped() int { return s.skipped }

// Close releases the underlying file handles.
func (s *Stream) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// normalize extracts and cleans a single title. In strict (list-format)
// mode, lines that don't carry a year marker are rejected.
func (s *Stream) normalize(line string) (string, bool) {
	if s.strict {
		m := listTitleRegex.FindStringSubmatch(line)
		if m == nil {
			return "", false
		}
		line = m[1]
	}
	cleaned := badCharRegex.ReplaceAllString(line, "")
	return strings.ToLower(strings.TrimSpace(cleaned)), true
}
