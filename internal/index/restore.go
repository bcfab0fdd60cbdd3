package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/lexka/ragboot/internal/bundle"
)

// lockWait bounds how long a bootstrap waits for a concurrent restore on
// the same volume before giving up.
const lockWait = 30 * time.Second

// EnsureReady makes loc satisfy the completeness invariant, restoring from
// bundleURL when it does not. It reports whether a restore ran. The
// already-complete path performs no network access, no deletion, and takes
// no lock, so running it on every process start is free.
func EnsureReady(ctx context.Context, loc Location, bundleURL string, force bool) (bool, error) {
	if err := os.MkdirAll(loc.DataDir, 0o755); err != nil {
		return false, fmt.Errorf("cannot create data root %s: %w", loc.DataDir, err)
	}
	if err := os.MkdirAll(loc.IndexDir, 0o755); err != nil {
		return false, fmt.Errorf("cannot create index root %s: %w", loc.IndexDir, err)
	}
	if loc.Complete() && !force {
		return false, nil
	}
	if bundleURL == "" {
		return false, fmt.Errorf("%w: the index at %s is incomplete and cannot be restored without a bundle (set %s to an https:// or gs:// archive URL)",
			ErrBundleURLRequired, loc.IndexDir, "INDEX_BUNDLE_URL")
	}

	unlock, err := acquireRestoreLock(loc.DataDir)
	if err != nil {
		return false, err
	}
	defer unlock()

	// Another bootstrap may have completed the restore while we waited.
	if loc.Complete() && !force {
		return false, nil
	}
	if err := restore(ctx, loc, bundleURL); err != nil {
		return false, err
	}
	return true, nil
}

// restore is the delete-then-restore-whole-directory procedure. There is no
// partial repair: any existing index root contents are discarded first.
func restore(ctx context.Context, loc Location, bundleURL string) error {
	if err := os.RemoveAll(loc.IndexDir); err != nil {
		return fmt.Errorf("cannot clear index root %s: %w", loc.IndexDir, err)
	}
	if err := os.MkdirAll(loc.IndexDir, 0o755); err != nil {
		return fmt.Errorf("cannot recreate index root %s: %w", loc.IndexDir, err)
	}

	archivePath, cleanup, err := bundle.Fetch(ctx, bundleURL)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := bundle.ExtractTarGz(archivePath, loc.DataDir); err != nil {
		return err
	}
	if err := reconcileLayout(loc); err != nil {
		return err
	}
	if !loc.Complete() {
		return incompleteError(loc)
	}
	return nil
}

// reconcileLayout moves a nested legacy tree into the resolved index root.
// An invalid layout is left untouched; the final completeness check reports
// it.
func reconcileLayout(loc Location) error {
	if DetectLayout(loc) != LayoutNestedLegacy {
		return nil
	}
	legacy := legacyIndexDir(loc)
	if err := os.RemoveAll(loc.IndexDir); err != nil {
		return fmt.Errorf("cannot remove stale index root %s: %w", loc.IndexDir, err)
	}
	if err := os.MkdirAll(filepath.Dir(loc.IndexDir), 0o755); err != nil {
		return fmt.Errorf("cannot create parent of index root %s: %w", loc.IndexDir, err)
	}
	if err := os.Rename(legacy, loc.IndexDir); err != nil {
		return fmt.Errorf("cannot move legacy index tree %s into place: %w", legacy, err)
	}
	// The legacy bundle leaves an empty data/ shell behind; only an empty
	// one is removed.
	_ = os.Remove(filepath.Join(loc.DataDir, "data"))
	return nil
}

// incompleteError builds the operator-facing diagnostic: every expected
// path, and what the index root actually contains.
func incompleteError(loc Location) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n  expected:\n")
	for _, a := range loc.Artifacts() {
		kind := "file"
		if a.Dir {
			kind = "directory"
		}
		fmt.Fprintf(&b, "    %s (%s, %s)\n", a.Path, a.Name, kind)
	}
	fmt.Fprintf(&b, "  found in %s:\n", loc.IndexDir)
	entries, err := os.ReadDir(loc.IndexDir)
	switch {
	case err != nil:
		fmt.Fprintf(&b, "    (cannot read directory: %v)\n", err)
	case len(entries) == 0:
		fmt.Fprintf(&b, "    (empty)\n")
	default:
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			fmt.Fprintf(&b, "    %s\n", name)
		}
	}
	b.WriteString("  the bundle is malformed or incompatible; fix the bundle and redeploy")
	return fmt.Errorf("%w%s", ErrIndexIncomplete, b.String())
}

// acquireRestoreLock obtains the per-volume restore lock. Exactly one
// bootstrap may run the delete/download/extract sequence against a volume
// at a time.
func acquireRestoreLock(dataDir string) (func(), error) {
	lockPath := filepath.Join(dataDir, ".ragboot.lock")
	l := flock.New(lockPath)
	deadline := time.Now().Add(lockWait)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return nil, fmt.Errorf("cannot acquire restore lock: %w", err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("another restore is in progress (lock: %s)", lockPath)
		}
		time.Sleep(200 * time.Millisecond)
	}
}
