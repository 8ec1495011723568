// Package organizer files downloaded documents into per category directories.
package organizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bool64/ctxd"

	"github.com/nhatthm/docharvest/internal/classifier"
	"github.com/nhatthm/docharvest/internal/crawler"
)

// MetadataFile is the name of the sidecar listing the organized documents.
const MetadataFile = "metadata.json"

// Organizer moves documents into <root>/<category>/.
type Organizer struct {
	root string
	log  ctxd.Logger
}

// Organize moves every document whose file still exists into its category directory and stamps OrganizedPath.
// Documents without a category go to educational_materials. Missing files are left untouched. The metadata
// sidecar is rewritten with every given document.
func (o *Organizer) Organize(ctx context.Context, docs []crawler.Document) ([]crawler.Document, error) {
	out := make([]crawler.Document, len(docs))
	copy(out, docs)

	for i := range out {
		d := &out[i]

		if d.Category == "" {
			d.Category = string(classifier.CategoryEducationalMaterials)
		}

		if _, err := os.Stat(d.StoragePath); err != nil {
			o.log.Warn(ctx, "document not found, skipping", "organizer.path", d.StoragePath, "error", err)

			continue
		}

		dest, err := o.move(d.StoragePath, d.Category)
		if err != nil {
			return out, err
		}

		d.OrganizedPath = dest

		o.log.Debug(ctx, "document organized", "organizer.path", dest, "organizer.category", d.Category)
	}

	if err := o.writeMetadata(out); err != nil {
		return out, err
	}

	return out, nil
}

func (o *Organizer) move(src, category string) (string, error) {
	dir := filepath.Join(o.root, sanitizeCategory(category))

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("could not create category directory: %w", err)
	}

	dest, err := freePath(dir, filepath.Base(src))
	if err != nil {
		return "", err
	}

	if err := os.Rename(src, dest); err == nil {
		return dest, nil
	}

	// Rename fails across devices.
	if err := copyFile(src, dest); err != nil {
		return "", err
	}

	if err := os.Remove(src); err != nil {
		return "", fmt.Errorf("could not remove %s: %w", src, err)
	}

	return dest, nil
}

func (o *Organizer) writeMetadata(docs []crawler.Document) error {
	if err := os.MkdirAll(o.root, 0o750); err != nil {
		return fmt.Errorf("could not create organized directory: %w", err)
	}

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode metadata: %w", err)
	}

	if err := os.WriteFile(filepath.Join(o.root, MetadataFile), data, 0o600); err != nil {
		return fmt.Errorf("could not write metadata: %w", err)
	}

	return nil
}

// freePath returns dir/name, or dir/stem_N.ext for the first N that is not taken.
func freePath(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; ; i++ {
		candidate := name
		if i > 0 {
			candidate = stem + "_" + strconv.Itoa(i) + ext
		}

		p := filepath.Join(dir, candidate)

		_, err := os.Lstat(p)
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}

		if err != nil {
			return "", fmt.Errorf("could not stat %s: %w", p, err)
		}
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src) //nolint: gosec
	if err != nil {
		return fmt.Errorf("could not open %s: %w", src, err)
	}

	defer in.Close() // nolint: errcheck

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint: gosec
	if err != nil {
		return fmt.Errorf("could not create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()     // nolint: errcheck
		_ = os.Remove(dest) // nolint: errcheck

		return fmt.Errorf("could not copy %s: %w", src, err)
	}

	return out.Close()
}

func sanitizeCategory(c string) string {
	c = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '.' {
			return '_'
		}

		return r
	}, c)

	if c == "" {
		return string(classifier.CategoryEducationalMaterials)
	}

	return c
}

// New creates a new Organizer rooted at dir.
func New(dir string, opts ...Option) *Organizer {
	o := &Organizer{
		root: dir,
		log:  ctxd.NoOpLogger{},
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Option is option to set up Organizer.
type Option func(o *Organizer)

// WithLogger sets logger for Organizer.
func WithLogger(l ctxd.Logger) Option {
	return func(o *Organizer) {
		o.log = l
	}
}
