// Package manifest holds the update engine's data model — FileEntry,
// Manifest, CustomComponent, UpdateMirror — and the INI-backed store that
// parses the server "version" file, UpdaterConfig.ini, and the script
// files into that model.
package manifest

import "strings"

// FileEntry is one tracked file: its canonical path, content identifier,
// and (when archived) the identifier and size of its compressed form.
type FileEntry struct {
	Path              string
	Identifier        string
	SizeKB            int
	ArchiveIdentifier string
	ArchiveSizeKB     int
}

// Archived reports whether the entry has a compressed form on the server.
func (f FileEntry) Archived() bool {
	return f.ArchiveIdentifier != ""
}

// CanonicalPath forward-slashes f.Path, joining POSIX-style regardless of
// how it was written into the manifest.
func (f FileEntry) CanonicalPath() string {
	return canonicalize(f.Path)
}

func canonicalize(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// Manifest is an immutable snapshot of tracked files plus versioning
// metadata. Each version check produces a new Manifest value; entries are
// never mutated in place.
type Manifest struct {
	GameVersion       string
	UpdaterVersion    string
	ManualDownloadURL string
	Files             []FileEntry
	AddOns            map[string]FileEntry
}

// ByPath returns the entry for path and whether it was found.
func (m *Manifest) ByPath(path string) (FileEntry, bool) {
	want := canonicalize(path)
	for _, f := range m.Files {
		if f.CanonicalPath() == want {
			return f, true
		}
	}
	return FileEntry{}, false
}

// CustomComponent is an optional downloadable module governed by the same
// hash/versioning primitives as a tracked file.
type CustomComponent struct {
	IniName                      string
	DisplayName                  string
	DownloadPath                 string
	LocalPath                    string
	DownloadPathIsAbsolute       bool
	NoArchiveExtensionOnDownload bool

	// Mutable runtime fields, refreshed only during version check.
	RemoteSizeKB        int
	RemoteArchiveSizeKB int
	RemoteIdentifier    string
	LocalIdentifier     string
	Archived            bool
	Initialized         bool
	IsBeingDownloaded   bool
}

// UpdateMirror is one mirror entry in the Mirror List.
type UpdateMirror struct {
	ID       string
	URL      string
	Name     string
	Location string
}

// VersionState is the orchestrator's state machine position.
type VersionState int32

const (
	StateUnknown VersionState = iota
	StateUpToDate
	StateOutdated
	StateMismatched
	StateUpdateCheckInProgress
	StateUpdateInProgress
)

func (s VersionState) String() string {
	switch s {
	case StateUnknown:
		return "UNKNOWN"
	case StateUpToDate:
		return "UPTODATE"
	case StateOutdated:
		return "OUTDATED"
	case StateMismatched:
		return "MISMATCHED"
	case StateUpdateCheckInProgress:
		return "UPDATECHECKINPROGRESS"
	case StateUpdateInProgress:
		return "UPDATEINPROGRESS"
	default:
		return "UNKNOWN"
	}
}

// Plan is the Reconciler's output: an ordered download list plus its total
// size.
type Plan struct {
	Entries []FileEntry
	TotalKB int64
}
