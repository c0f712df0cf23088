// Package diag serializes the orchestrator's current state to YAML for
// the patchwright CLI's "dump" subcommand: a structured, human-diffable
// introspection surface for hosts that don't embed a GUI observer.
package diag

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/nightforge/patchwright/internal/manifest"
	"github.com/nightforge/patchwright/internal/update"
)

// FileView is one manifest entry in dump form.
type FileView struct {
	Path              string `yaml:"path"`
	Identifier        string `yaml:"identifier"`
	SizeKB            int    `yaml:"size_kb"`
	ArchiveIdentifier string `yaml:"archive_identifier,omitempty"`
	ArchiveSizeKB     int    `yaml:"archive_size_kb,omitempty"`
}

// ManifestView is a diagnostic projection of manifest.Manifest.
type ManifestView struct {
	GameVersion       string     `yaml:"game_version"`
	UpdaterVersion    string     `yaml:"updater_version"`
	ManualDownloadURL string     `yaml:"manual_download_url,omitempty"`
	Files             []FileView `yaml:"files"`
}

// State is the top-level dump document.
type State struct {
	VersionState         string        `yaml:"version_state"`
	ManualUpdateRequired bool          `yaml:"manual_update_required"`
	ManualDownloadURL    string        `yaml:"manual_download_url,omitempty"`
	PlanEntries          int           `yaml:"plan_entries"`
	PlanTotalKB          int64         `yaml:"plan_total_kb"`
	Local                *ManifestView `yaml:"local,omitempty"`
	Server               *ManifestView `yaml:"server,omitempty"`
}

// Snapshot builds a State document from u's current fields.
func Snapshot(u *update.Updater) *State {
	s := &State{VersionState: u.State().String()}
	s.ManualUpdateRequired, s.ManualDownloadURL = u.ManualUpdateRequired()

	if p := u.Plan(); p != nil {
		s.PlanEntries = len(p.Entries)
		s.PlanTotalKB = p.TotalKB
	}
	if m := u.LocalManifest(); m != nil {
		s.Local = viewOf(m)
	}
	if m := u.ServerManifest(); m != nil {
		s.Server = viewOf(m)
	}
	return s
}

func viewOf(m *manifest.Manifest) *ManifestView {
	v := &ManifestView{
		GameVersion:       m.GameVersion,
		UpdaterVersion:    m.UpdaterVersion,
		ManualDownloadURL: m.ManualDownloadURL,
	}
	for _, f := range m.Files {
		v.Files = append(v.Files, FileView{
			Path:              f.Path,
			Identifier:        f.Identifier,
			SizeKB:            f.SizeKB,
			ArchiveIdentifier: f.ArchiveIdentifier,
			ArchiveSizeKB:     f.ArchiveSizeKB,
		})
	}
	return v
}

// Dump renders u's current state as YAML.
func Dump(u *update.Updater) ([]byte, error) {
	data, err := yaml.Marshal(Snapshot(u))
	if err != nil {
		return nil, fmt.Errorf("diag: marshal state: %w", err)
	}
	return data, nil
}
