// Package catalog locates datasets under a single data root and hands out
// per-request read handles. A dataset is a directory of Arrow IPC or
// Parquet fragments, or a single such file. Nothing is cached or shared
// between requests; every request opens fresh and releases what it read.
package catalog

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog"

	lverrors "github.com/23skdu/longview/internal/errors"
	"github.com/23skdu/longview/internal/metrics"
)

const (
	extArrow   = ".arrow"
	extParquet = ".parquet"
)

var datasetNameRE = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)

// ValidDatasetName reports whether name satisfies the naming rule:
// 1-100 characters from [A-Za-z0-9_-], no leading dot.
func ValidDatasetName(name string) bool {
	return !strings.HasPrefix(name, ".") && datasetNameRE.MatchString(name)
}

// Catalog resolves dataset names against the data root.
type Catalog struct {
	root   string
	mem    memory.Allocator
	logger zerolog.Logger
}

func New(root string, mem memory.Allocator, logger zerolog.Logger) *Catalog {
	return &Catalog{
		root:   root,
		mem:    mem,
		logger: logger,
	}
}

// List returns the valid dataset names under the data root, sorted.
// A missing root is a backend fault, not an empty catalog.
func (c *Catalog) List() ([]string, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lverrors.WrapBackend(err, "list", "data path not found")
		}
		return nil, lverrors.WrapBackend(err, "list", "data path unreadable")
	}
	metrics.DatasetListTotal.Inc()

	seen := make(map[string]bool)
	var names []string
	for _, entry := range entries {
		name, ok := datasetEntryName(filepath.Join(c.root, entry.Name()), entry)
		if !ok || !ValidDatasetName(name) || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Open acquires a fresh handle for one request. The caller must Release it.
func (c *Catalog) Open(name string) (*Dataset, error) {
	if !ValidDatasetName(name) {
		return nil, lverrors.NewPrecondition("open", "invalid dataset name")
	}
	if _, err := os.Stat(c.root); err != nil {
		return nil, lverrors.WrapBackend(err, "open", "data path not found")
	}

	frags, err := c.fragments(name)
	if err != nil {
		return nil, err
	}
	if len(frags) == 0 {
		return nil, lverrors.NewNotFound("open", "dataset not found")
	}

	return &Dataset{
		name:   name,
		frags:  frags,
		mem:    c.mem,
		logger: c.logger.With().Str("dataset", name).Logger(),
	}, nil
}

// fragments resolves the on-disk layout for name: a fragment directory
// first, then single-file layouts.
func (c *Catalog) fragments(name string) ([]fragment, error) {
	dir := filepath.Join(c.root, name)
	if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, lverrors.WrapBackend(err, "open", "dataset directory unreadable")
		}
		var frags []fragment
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if kind, ok := fragmentKind(entry.Name()); ok {
				frags = append(frags, fragment{path: filepath.Join(dir, entry.Name()), kind: kind})
			}
		}
		sort.Slice(frags, func(i, j int) bool { return frags[i].path < frags[j].path })
		return frags, nil
	}

	for _, ext := range []string{extArrow, extParquet} {
		path := filepath.Join(c.root, name+ext)
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			kind, _ := fragmentKind(path)
			return []fragment{{path: path, kind: kind}}, nil
		}
	}
	return nil, nil
}

func fragmentKind(name string) (fragKind, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case extArrow:
		return fragArrow, true
	case extParquet:
		return fragParquet, true
	}
	return 0, false
}

// datasetEntryName maps one data-root entry to a dataset name. Directories
// count only when they hold at least one readable fragment.
func datasetEntryName(path string, entry os.DirEntry) (string, bool) {
	if entry.IsDir() {
		sub, err := os.ReadDir(path)
		if err != nil {
			return "", false
		}
		for _, e := range sub {
			if _, ok := fragmentKind(e.Name()); ok && !e.IsDir() {
				return entry.Name(), true
			}
		}
		return "", false
	}
	if _, ok := fragmentKind(entry.Name()); ok {
		base := entry.Name()
		return strings.TrimSuffix(base, filepath.Ext(base)), true
	}
	return "", false
}
