// Package security guards the files the analysis tool writes.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideAllowedDirs is returned for output paths that resolve outside
// every allowed directory.
var ErrOutsideAllowedDirs = errors.New("path is outside the allowed output directories")

// canonical resolves path to an absolute path with symlinks evaluated. For a
// path that does not exist yet, the deepest existing ancestor is resolved
// and the missing components are appended to it, so a symlinked parent
// cannot smuggle a new file out of its directory.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rest, _ := filepath.Rel(dir, abs)
			return filepath.Join(resolved, rest), nil
		}
		if dir == filepath.Dir(dir) {
			return abs, nil
		}
	}
}

// WithinDirectory reports whether filePath resolves inside dir, following
// symlinks on both sides.
func WithinDirectory(filePath, dir string) (bool, error) {
	target, err := canonical(filePath)
	if err != nil {
		return false, err
	}
	base, err := canonical(dir)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false, nil
	}
	escapes := rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel)
	return !escapes, nil
}

// ValidateOutputPath checks that filePath lands inside one of allowedDirs.
func ValidateOutputPath(filePath string, allowedDirs []string) error {
	if len(allowedDirs) == 0 {
		return errors.New("no allowed output directories specified")
	}
	for _, dir := range allowedDirs {
		ok, err := WithinDirectory(filePath, dir)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%s: %w %v", filePath, ErrOutsideAllowedDirs, allowedDirs)
}

// DefaultOutputDirs returns the directories exports may be written to: the
// working directory and the system temp directory.
func DefaultOutputDirs() ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return []string{cwd, os.TempDir()}, nil
}
