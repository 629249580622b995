// Package scratch manages the transient directory that holds in-flight media
// files. Nothing in it is meant to outlive one request.
package scratch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kayz/scribe/internal/logger"
	"github.com/kayz/scribe/internal/security"
	"github.com/shirou/gopsutil/v4/disk"
)

// ErrNoRoom is returned by EnsureRoom when the scratch volume is too full.
var ErrNoRoom = errors.New("not enough free space in scratch directory")

// Dir is a scratch directory rooted at a path relative to the working
// directory or absolute.
type Dir struct {
	root         string
	checker      *security.PathChecker
	minFreeBytes uint64
	freeBytes    func(ctx context.Context, path string) (uint64, error)
}

// New returns a Dir rooted at root. The directory itself is created lazily by
// Ensure.
func New(root string, minFreeBytes uint64) *Dir {
	return &Dir{
		root:         root,
		checker:      security.NewPathChecker(root),
		minFreeBytes: minFreeBytes,
		freeBytes:    diskFree,
	}
}

func diskFree(ctx context.Context, path string) (uint64, error) {
	u, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, err
	}
	return u.Free, nil
}

// Root returns the configured root path.
func (d *Dir) Root() string {
	return d.root
}

// Ensure creates the directory if it is absent.
func (d *Dir) Ensure() error {
	if err := os.MkdirAll(d.root, 0755); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return nil
}

// Path joins a file name onto the root. Any directory components in name are
// dropped so a sender-declared filename cannot escape the directory.
func (d *Dir) Path(name string) (string, error) {
	base := SanitizeName(name)
	if base == "" {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	p := filepath.Join(d.root, base)
	if err := d.checker.CheckPath(p); err != nil {
		return "", err
	}
	return p, nil
}

// SanitizeName reduces name to a plain base name.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == ".." {
		return ""
	}
	return base
}

// EnsureRoom returns ErrNoRoom if size bytes plus the configured reserve do not
// fit on the scratch volume. A failed usage lookup is logged and ignored.
func (d *Dir) EnsureRoom(ctx context.Context, size int64) error {
	if size <= 0 && d.minFreeBytes == 0 {
		return nil
	}
	free, err := d.freeBytes(ctx, d.root)
	if err != nil {
		logger.Warn("[Scratch] Failed to read free space for %s: %v", d.root, err)
		return nil
	}
	need := d.minFreeBytes
	if size > 0 {
		need += uint64(size)
	}
	if free < need {
		return fmt.Errorf("%w: need %d bytes, %d free", ErrNoRoom, need, free)
	}
	return nil
}

// Remove deletes path, best effort. A file that is already gone is not an
// error. Paths outside the directory are refused.
func (d *Dir) Remove(path string) {
	if path == "" {
		return
	}
	if err := d.checker.CheckPath(path); err != nil {
		logger.Error("[Scratch] Refusing to remove %s: %v", path, err)
		return
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		logger.Error("[Scratch] Can't delete file %s: %v", path, err)
		return
	}
	logger.Debug("[Scratch] Deleted %s", path)
}

// Sweep removes regular files last modified before now-maxAge and returns how
// many it removed. A missing directory sweeps nothing.
func (d *Dir) Sweep(now time.Time, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list scratch directory: %w", err)
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		p := filepath.Join(d.root, e.Name())
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Error("[Scratch] Can't sweep %s: %v", p, err)
			continue
		}
		logger.Info("[Scratch] Swept stale file %s (modified %s)", p, info.ModTime().Format(time.RFC3339))
		removed++
	}
	return removed, nil
}
