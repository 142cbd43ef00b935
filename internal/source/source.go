// Package source abstracts the area candidate documents are swept from.
// Implementations list eligible files, read them, delete them on success,
// and relocate them to a quarantine area on failure.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// QuarantineDirName is the subdirectory failed files are relocated into.
const QuarantineDirName = "failed"

// metadataPrefix marks platform-generated metadata artifacts (macOS
// AppleDouble files copied alongside real documents) that must never be
// treated as candidates.
const metadataPrefix = "._"

// Store is the contract over the candidate-file area.
//
// ListFiles enumerates eligible documents; implementations exclude
// metadata artifacts. DeleteFile removes a successfully processed file.
// MoveToQuarantine relocates a failed file - never deletes it - so the
// original bytes stay available for operator correction.
type Store interface {
	ListFiles() ([]string, error)
	ReadFile(name string) (string, error)
	DeleteFile(name string) error
	MoveToQuarantine(name string) error
}

// Local is a filesystem-backed Store rooted at a directory.
type Local struct {
	base string
}

// NewLocal creates a Store over the given directory.
func NewLocal(base string) *Local {
	return &Local{base: base}
}

// ListFiles returns the names of candidate .json files in the base
// directory, sorted for stable enumeration. Metadata artifacts and
// subdirectories (including the quarantine area) are excluded.
func (l *Local) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(l.base)
	if err != nil {
		return nil, fmt.Errorf("list files in %s: %w", l.base, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, metadataPrefix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ReadFile returns the raw text of one candidate file.
func (l *Local) ReadFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(l.base, name))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

// DeleteFile removes a processed file from the base directory.
func (l *Local) DeleteFile(name string) error {
	if err := os.Remove(filepath.Join(l.base, name)); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// MoveToQuarantine relocates a failed file into the quarantine
// subdirectory, creating it on first use.
func (l *Local) MoveToQuarantine(name string) error {
	dir := filepath.Join(l.base, QuarantineDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create quarantine dir: %w", err)
	}
	if err := os.Rename(filepath.Join(l.base, name), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("quarantine %s: %w", name, err)
	}
	return nil
}

// RemoveQuarantined deletes a previously quarantined file. Returns
// fs.ErrNotExist (wrapped) if no such file exists; callers treat that as
// best-effort cleanup.
func (l *Local) RemoveQuarantined(name string) error {
	err := os.Remove(filepath.Join(l.base, QuarantineDirName, name))
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("quarantined file %s: %w", name, fs.ErrNotExist)
	}
	return err
}
