// Package reconcile diffs local tree state against the local and server
// manifests and produces a download Plan.
package reconcile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/nightforge/patchwright/internal/hashid"
	"github.com/nightforge/patchwright/internal/manifest"
)

// Plan compares localRoot's on-disk files, the local manifest, and the
// server manifest, and returns the ordered set of entries that need
// fetching plus their total size.
//
// Ignore masks are NOT consulted here — ignore-mask trust only applies
// during local verification (the orchestrator's rehash pass), not plan
// construction. Every server entry is considered on its own merits.
func Plan(localRoot string, local, server *manifest.Manifest) (*manifest.Plan, error) {
	plan := &manifest.Plan{}

	for _, s := range server.Files {
		needed, err := needsDownload(localRoot, local, s)
		if err != nil {
			return nil, err
		}
		if !needed {
			continue
		}
		plan.Entries = append(plan.Entries, s)
		if s.Archived() {
			plan.TotalKB += int64(s.ArchiveSizeKB)
		} else {
			plan.TotalKB += int64(s.SizeKB)
		}
	}
	return plan, nil
}

func needsDownload(localRoot string, local *manifest.Manifest, s manifest.FileEntry) (bool, error) {
	diskPath := filepath.Join(localRoot, filepath.FromSlash(s.CanonicalPath()))

	if l, ok := local.ByPath(s.Path); ok {
		if !fileExists(diskPath) {
			return true, nil
		}
		return !hashid.Equal(l.Identifier, s.Identifier), nil
	}

	// No local manifest entry: probe the physical file directly.
	if !fileExists(diskPath) {
		return true, nil
	}
	actual, err := hashid.Of(diskPath)
	if err != nil {
		// Unreadable/unhashable file is treated as "not intact" -> fetch it.
		return true, nil
	}
	return !hashid.Equal(actual, s.Identifier), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// IsIgnored reports whether path matches any ignore mask using
// substring-uppercase semantics: despite the "mask" name these are not
// glob patterns, just case-insensitive substrings.
func IsIgnored(path string, ignoreMasks []string) bool {
	upper := strings.ToUpper(path)
	for _, mask := range ignoreMasks {
		if mask == "" {
			continue
		}
		if strings.Contains(upper, strings.ToUpper(mask)) {
			return true
		}
	}
	return false
}

// CustomComponentsOutdated reports whether any component that is present
// on disk has a remote identifier differing from its local one.
func CustomComponentsOutdated(localRoot string, components []manifest.CustomComponent) bool {
	for _, c := range components {
		diskPath := filepath.Join(localRoot, filepath.FromSlash(c.LocalPath))
		if !fileExists(diskPath) {
			continue
		}
		if !hashid.Equal(c.RemoteIdentifier, c.LocalIdentifier) {
			return true
		}
	}
	return false
}
