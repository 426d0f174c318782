// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/poiesic/tradevec/core"
)

// LockFileName is the run lock created inside the raw directory.
const LockFileName = ".tradevec.lock"

// File is one raw intake file.
type File struct {
	Name string
	Path string
	Kind core.SourceKind
}

// Ledger discovers pending files and commits them.
type Ledger struct {
	rawDir       string
	processedDir string
	logger       *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a ledger over rawDir and processedDir, creating both
// directories when they do not exist.
func New(rawDir, processedDir string, opts ...Option) (*Ledger, error) {
	if rawDir == "" || processedDir == "" {
		return nil, ErrDirRequired
	}
	for _, dir := range []string{rawDir, processedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	l := &Ledger{
		rawDir:       rawDir,
		processedDir: processedDir,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "ledger")
	return l, nil
}

// RawDir returns the directory holding pending files.
func (l *Ledger) RawDir() string { return l.rawDir }

// ProcessedDir returns the directory holding committed files.
func (l *Ledger) ProcessedDir() string { return l.processedDir }

// Pending lists the raw files awaiting ingestion. Statistical aggregates come
// first, then shipments; each kind is sorted by name. Files whose name does
// not match a known prefix are ignored.
func (l *Ledger) Pending() ([]File, error) {
	entries, err := os.ReadDir(l.rawDir)
	if err != nil {
		return nil, fmt.Errorf("read raw dir: %w", err)
	}

	byKind := make(map[core.SourceKind][]File)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		kind, ok := KindOf(e.Name())
		if !ok {
			continue
		}
		byKind[kind] = append(byKind[kind], File{
			Name: e.Name(),
			Path: filepath.Join(l.rawDir, e.Name()),
			Kind: kind,
		})
	}

	var pending []File
	for _, kind := range core.SourceKinds {
		files := byKind[kind]
		sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
		pending = append(pending, files...)
	}
	return pending, nil
}

// KindOf returns the source kind encoded in a raw file name of the form
// <prefix>_<hscode>_<timestamp>.json.
func KindOf(name string) (core.SourceKind, bool) {
	if filepath.Ext(name) != ".json" {
		return "", false
	}
	prefix, _, found := strings.Cut(name, "_")
	if !found {
		return "", false
	}
	return core.SourceKindFromPrefix(prefix)
}

// Commit moves f into the processed directory. The rename is atomic on a
// single filesystem, so the file is never visible in both directories.
func (l *Ledger) Commit(f File) error {
	target := filepath.Join(l.processedDir, f.Name)

	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyCommitted, f.Name)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", target, err)
	}

	if err := os.Rename(f.Path, target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotPending, f.Name)
		}
		return fmt.Errorf("commit %s: %w", f.Name, err)
	}

	l.logger.Debug("file committed", "file", f.Name, "target", target)
	return nil
}

// Committed lists the names of committed files, sorted.
func (l *Ledger) Committed() ([]string, error) {
	entries, err := os.ReadDir(l.processedDir)
	if err != nil {
		return nil, fmt.Errorf("read processed dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
