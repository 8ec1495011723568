// Package seed loads the start urls of a harvest from files, directories and readers.
package seed

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bool64/ctxd"
)

// Supported file extensions, in the order files of a directory are read.
var supportedExtensions = []string{".txt", ".json", ".csv"}

// Loader reads seed urls.
type Loader struct {
	log ctxd.Logger
}

// Load reads the candidates of a file or of every supported file of a directory. Files with an unknown extension are read
// line by line.
func (l *Loader) Load(ctx context.Context, path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("could not open seed source: %w", err)
	}

	if info.IsDir() {
		return l.loadDir(ctx, path)
	}

	return l.loadFile(ctx, path)
}

func (l *Loader) loadDir(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("could not read seed directory: %w", err)
	}

	names := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() || !isSupported(e.Name()) {
			continue
		}

		names = append(names, e.Name())
	}

	sort.Strings(names)

	var all []string

	for _, name := range names {
		candidates, err := l.loadFile(ctx, filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}

		all = append(all, candidates...)
	}

	l.log.Debug(ctx, "loaded seed directory", "seed.dir", dir, "seed.files", len(names))

	return all, nil
}

func (l *Loader) loadFile(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("could not open seed source: %w", err)
	}

	defer f.Close() // nolint: errcheck

	var candidates []string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		candidates, err = readJSON(f)
	case ".csv":
		candidates, err = readCSV(f)
	default:
		candidates, err = readLines(f)
	}

	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}

	l.log.Debug(ctx, "loaded seed file", "seed.file", path, "seed.candidates", len(candidates))

	return candidates, nil
}

// LoadReader reads one candidate per line.
func (l *Loader) LoadReader(_ context.Context, r io.Reader) ([]string, error) {
	candidates, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("could not read seeds: %w", err)
	}

	return candidates, nil
}

// Filter keeps the absolute http and https urls, without duplicates, in first-seen order.
func (l *Loader) Filter(ctx context.Context, candidates []string) []string {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))

	for _, c := range candidates {
		if !isHTTPURL(c) {
			l.log.Warn(ctx, "skipping invalid url", "seed.url", c)

			continue
		}

		if _, ok := seen[c]; ok {
			continue
		}

		seen[c] = struct{}{}
		out = append(out, c)
	}

	return out
}

func isHTTPURL(s string) bool {
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}

	u, err := url.Parse(s)

	return err == nil && u.Host != ""
}

func isSupported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))

	for _, e := range supportedExtensions {
		if e == ext {
			return true
		}
	}

	return false
}

func readLines(r io.Reader) ([]string, error) {
	var out []string

	s := bufio.NewScanner(r)

	for s.Scan() {
		if line := strings.TrimSpace(s.Text()); line != "" {
			out = append(out, line)
		}
	}

	return out, s.Err()
}

// readJSON collects every string value of a json document, whatever its nesting.
func readJSON(r io.Reader) ([]string, error) {
	dec := json.NewDecoder(r)

	var out []string

	for {
		token, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, err
		}

		if s, ok := token.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}

	return out, nil
}

func readCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []string

	for {
		record, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, err
		}

		for _, cell := range record {
			if cell = strings.TrimSpace(cell); cell != "" {
				out = append(out, cell)
			}
		}
	}

	return out, nil
}

// NewLoader creates a new Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{log: ctxd.NoOpLogger{}}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option is option to set up Loader.
type Option func(l *Loader)

// WithLogger sets logger for Loader.
func WithLogger(log ctxd.Logger) Option {
	return func(l *Loader) {
		l.log = log
	}
}
