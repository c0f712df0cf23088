// Package download implements the Download Engine: for each planned entry,
// fetch → verify → decompress → verify → stage.
package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nightforge/patchwright/internal/applog"
	"github.com/nightforge/patchwright/internal/hashid"
	"github.com/nightforge/patchwright/internal/lzma"
	"github.com/nightforge/patchwright/internal/manifest"
	"github.com/nightforge/patchwright/internal/transport"
	"github.com/nightforge/patchwright/internal/xerr"
)

const archiveExt = ".lzma"

// ProgressFunc reports per-file progress: the file currently being
// fetched, that file's completion percent, and the running total percent
// across the whole plan.
type ProgressFunc func(currentFile string, filePercent, totalPercent float64)

// Engine drives one directory's worth of staged downloads.
type Engine struct {
	Root      string
	Transport *transport.Transport
	Log       *applog.Logger
}

// New builds an Engine rooted at root.
func New(root string, t *transport.Transport, log *applog.Logger) *Engine {
	if log == nil {
		log = applog.Nop()
	}
	return &Engine{Root: root, Transport: t, Log: log}
}

// stagePath is where a planned entry's final plaintext form lands, mirroring
// the installation tree under <root>/Updater/.
func (e *Engine) stagePath(entry manifest.FileEntry) string {
	return filepath.Join(e.Root, "Updater", filepath.FromSlash(entry.CanonicalPath()))
}

// RunPlan executes every entry in plan against mirrorURL, in order,
// stopping (and returning an error) on the first entry that exhausts its
// retries, or immediately if ctx is already cancelled between files.
func (e *Engine) RunPlan(ctx context.Context, mirrorURL string, plan *manifest.Plan, progress ProgressFunc) error {
	var doneKB int64
	for _, entry := range plan.Entries {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("download: %w", xerr.ErrCancelled)
		}

		sizeKB := int64(entry.SizeKB)
		if entry.Archived() {
			sizeKB = int64(entry.ArchiveSizeKB)
		}

		err := e.DownloadEntry(ctx, mirrorURL, entry, func(filePercent float64) {
			if progress == nil {
				return
			}
			total := float64(0)
			if plan.TotalKB > 0 {
				total = float64(doneKB)/float64(plan.TotalKB)*100 + filePercent*float64(sizeKB)/float64(plan.TotalKB)
			}
			progress(entry.Path, filePercent, total)
		})
		if err != nil {
			return err
		}
		doneKB += sizeKB

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("download: %w", xerr.ErrCancelled)
		}
	}
	return nil
}

// DownloadEntry stages a single planned entry, retrying once on failure
// before giving up with ErrTooManyRetries.
func (e *Engine) DownloadEntry(ctx context.Context, mirrorURL string, entry manifest.FileEntry, progress func(percent float64)) error {
	stagePath := e.stagePath(entry)
	fetchPath := stagePath
	if entry.Archived() {
		fetchPath = stagePath + archiveExt
	}
	if err := os.MkdirAll(filepath.Dir(fetchPath), 0755); err != nil {
		return fmt.Errorf("download: mkdir %s: %w", filepath.Dir(fetchPath), err)
	}

	// Fast path: a previously-staged file is reused without hitting the
	// network. This check compares against entry.Identifier (the
	// plaintext id) even for archived entries, rather than
	// entry.ArchiveIdentifier — a long-standing inversion in the original
	// implementation that is kept observable rather than silently fixed,
	// per design notes. Its practical effect is that a staged .lzma file
	// essentially never short-circuits, since a compressed file's hash
	// will not equal the plaintext identifier.
	if existing, err := hashid.Of(fetchPath); err == nil {
		if hashid.Equal(existing, entry.Identifier) {
			e.Log.Debugf("download: %s already staged, skipping network", entry.Path)
			return nil
		}
	}

	remoteURL := buildEntryURL(mirrorURL, entry.CanonicalPath(), archiveExtFor(entry))

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("download: %w", xerr.ErrCancelled)
		}
		if err := e.attempt(ctx, remoteURL, stagePath, fetchPath, entry, progress); err != nil {
			lastErr = err
			e.Log.Warnf("download: attempt %d for %s failed: %v", attempt+1, entry.Path, err)
			continue
		}
		return nil
	}
	return fmt.Errorf("download: %s: %w: %v", entry.Path, xerr.ErrTooManyRetries, lastErr)
}

func archiveExtFor(entry manifest.FileEntry) string {
	if entry.Archived() {
		return archiveExt
	}
	return ""
}

func buildEntryURL(mirrorURL, path, ext string) string {
	url := strings.TrimSuffix(mirrorURL, "/") + "/" + strings.ReplaceAll(path, "\\", "/") + ext
	return url
}

func (e *Engine) attempt(ctx context.Context, remoteURL, stagePath, fetchPath string, entry manifest.FileEntry, progress func(float64)) error {
	var pf transport.ProgressFunc
	if progress != nil {
		pf = func(percent float64, _ int64) {
			if percent >= 0 {
				progress(percent)
			}
		}
	}

	if err := e.Transport.Download(ctx, remoteURL, fetchPath, pf); err != nil {
		return fmt.Errorf("%w: %v", xerr.ErrTransportFailed, err)
	}

	if entry.Archived() {
		got, err := hashid.Of(fetchPath)
		if err != nil || !hashid.Equal(got, entry.ArchiveIdentifier) {
			os.Remove(fetchPath)
			return fmt.Errorf("%w: archive %s", xerr.ErrHashMismatch, entry.Path)
		}
		if err := lzma.Decompress(ctx, fetchPath, stagePath); err != nil {
			os.Remove(fetchPath)
			os.Remove(stagePath)
			return fmt.Errorf("%w: %v", xerr.ErrDecompressFailed, err)
		}
		os.Remove(fetchPath)
	}

	got, err := hashid.Of(stagePath)
	if err != nil || !hashid.Equal(got, entry.Identifier) {
		os.Remove(stagePath)
		return fmt.Errorf("%w: %s", xerr.ErrHashMismatch, entry.Path)
	}
	return nil
}

// DownloadComponent fetches a custom component directly to
// <root>/<component.LocalPath>, bypassing the staging directory.
func (e *Engine) DownloadComponent(ctx context.Context, mirrorURL string, c *manifest.CustomComponent) error {
	destPath := filepath.Join(e.Root, filepath.FromSlash(c.LocalPath))
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("download: mkdir %s: %w", filepath.Dir(destPath), err)
	}

	downloadPath := c.DownloadPath
	ext := ""
	if c.Archived && !c.NoArchiveExtensionOnDownload {
		ext = archiveExt
	}
	var url string
	if c.DownloadPathIsAbsolute {
		url = downloadPath + ext
	} else {
		url = strings.TrimSuffix(mirrorURL, "/") + "/" + strings.TrimPrefix(downloadPath, "/") + ext
	}

	fetchPath := destPath
	if c.Archived {
		fetchPath = destPath + archiveExt
	}

	if err := e.Transport.Download(ctx, url, fetchPath, nil); err != nil {
		return fmt.Errorf("%w: %v", xerr.ErrTransportFailed, err)
	}

	if c.Archived {
		// CustomComponent carries only one identifier field (unlike
		// FileEntry's split plaintext/archive identifiers), so the
		// downloaded archive itself is not separately hash-verified —
		// only the final decompressed plaintext is, below.
		if err := lzma.Decompress(ctx, fetchPath, destPath); err != nil {
			os.Remove(fetchPath)
			os.Remove(destPath)
			return fmt.Errorf("%w: %v", xerr.ErrDecompressFailed, err)
		}
		os.Remove(fetchPath)
	}

	got, err := hashid.Of(destPath)
	if err != nil || !hashid.Equal(got, c.RemoteIdentifier) {
		os.Remove(destPath)
		return fmt.Errorf("%w: component %s", xerr.ErrHashMismatch, c.IniName)
	}
	c.LocalIdentifier = got
	return nil
}
