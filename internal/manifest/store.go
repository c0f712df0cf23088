package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/nightforge/patchwright/internal/applog"
)

const (
	sectionDTA          = "DTA"
	sectionFileVersions  = "FileVersions"
	sectionArchivedFiles = "ArchivedFiles"
	sectionAddOns        = "AddOns"
)

var loadOptions = ini.LoadOptions{
	IgnoreInlineComment:        true,
	AllowPythonMultilineValues: false,
	SkipUnrecognizableLines:    true,
}

// ParseServerManifest parses the server's "version" file contents into a
// Manifest. Malformed FileEntry lines (fewer than two comma-separated
// fields) are logged and skipped rather than returned as entries.
func ParseServerManifest(data []byte, log *applog.Logger) (*Manifest, error) {
	if log == nil {
		log = applog.Nop()
	}
	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("manifest: parse: %w", err)
	}

	m := &Manifest{
		AddOns: map[string]FileEntry{},
	}

	dta := f.Section(sectionDTA)
	m.GameVersion = dta.Key("Version").String()
	m.UpdaterVersion = dta.Key("UpdaterVersion").String()
	m.ManualDownloadURL = dta.Key("ManualDownloadURL").String()

	sizes := map[string]FileEntry{}
	if f.HasSection(sectionFileVersions) {
		for _, key := range f.Section(sectionFileVersions).Keys() {
			id, sizeKB, ok := splitIDSize(key.Value())
			if !ok {
				log.Warnf("manifest: malformed FileVersions entry %q=%q, skipping", key.Name(), key.Value())
				continue
			}
			sizes[key.Name()] = FileEntry{
				Path:       key.Name(),
				Identifier: id,
				SizeKB:     sizeKB,
			}
		}
	}

	if f.HasSection(sectionArchivedFiles) {
		for _, key := range f.Section(sectionArchivedFiles).Keys() {
			id, sizeKB, ok := splitIDSize(key.Value())
			if !ok {
				log.Warnf("manifest: malformed ArchivedFiles entry %q=%q, skipping", key.Name(), key.Value())
				continue
			}
			entry, exists := sizes[key.Name()]
			if !exists {
				// Archived with no plaintext record is still trackable.
				entry = FileEntry{Path: key.Name()}
			}
			entry.ArchiveIdentifier = id
			entry.ArchiveSizeKB = sizeKB
			sizes[key.Name()] = entry
		}
	}

	for _, entry := range sizes {
		m.Files = append(m.Files, entry)
	}

	if f.HasSection(sectionAddOns) {
		for _, key := range f.Section(sectionAddOns).Keys() {
			id, sizeKB, ok := splitIDSize(key.Value())
			if !ok {
				log.Warnf("manifest: malformed AddOns entry %q=%q, skipping", key.Name(), key.Value())
				continue
			}
			m.AddOns[key.Name()] = FileEntry{
				Path:       key.Name(),
				Identifier: id,
				SizeKB:     sizeKB,
			}
		}
	}

	return m, nil
}

// Marshal renders m back into the "version" file's INI textual form (used
// when writing version_u to disk).
func Marshal(m *Manifest) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s]\n", sectionDTA)
	fmt.Fprintf(&sb, "Version = %s\n", m.GameVersion)
	fmt.Fprintf(&sb, "UpdaterVersion = %s\n", m.UpdaterVersion)
	fmt.Fprintf(&sb, "ManualDownloadURL = %s\n\n", m.ManualDownloadURL)

	sb.WriteString("[" + sectionFileVersions + "]\n")
	for _, e := range m.Files {
		fmt.Fprintf(&sb, "%s = %s,%d\n", e.Path, e.Identifier, e.SizeKB)
	}
	sb.WriteString("\n[" + sectionArchivedFiles + "]\n")
	for _, e := range m.Files {
		if e.Archived() {
			fmt.Fprintf(&sb, "%s = %s,%d\n", e.Path, e.ArchiveIdentifier, e.ArchiveSizeKB)
		}
	}
	sb.WriteString("\n[" + sectionAddOns + "]\n")
	for name, e := range m.AddOns {
		fmt.Fprintf(&sb, "%s = %s,%d\n", name, e.Identifier, e.SizeKB)
	}
	return []byte(sb.String())
}

// splitIDSize parses a "<identifier>,<size_kb>" value. Returns ok=false if
// fewer than two comma-separated fields are present.
func splitIDSize(value string) (id string, sizeKB int, ok bool) {
	fields := strings.Split(value, ",")
	if len(fields) < 2 {
		return "", 0, false
	}
	id = strings.TrimSpace(fields[0])
	sizeKB, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return "", 0, false
	}
	return id, sizeKB, true
}
