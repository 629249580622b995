package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PathChecker confines file paths to a set of root directories.
// An empty root list means no restrictions.
type PathChecker struct {
	roots []string // resolved absolute paths
}

// NewPathChecker creates a PathChecker from a list of root directories,
// resolved to absolute paths.
func NewPathChecker(roots ...string) *PathChecker {
	resolved := make([]string, 0, len(roots))
	for _, p := range roots {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		resolved = append(resolved, filepath.Clean(abs))
	}
	return &PathChecker{roots: resolved}
}

// IsAllowed returns true if path is one of the roots or lies beneath one.
func (pc *PathChecker) IsAllowed(path string) bool {
	if len(pc.roots) == 0 {
		return true
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	abs = filepath.Clean(abs)
	for _, root := range pc.roots {
		if abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// CheckPath returns an error if path escapes the roots.
func (pc *PathChecker) CheckPath(path string) error {
	if pc.IsAllowed(path) {
		return nil
	}
	return fmt.Errorf("path %q is outside %v", path, pc.roots)
}
