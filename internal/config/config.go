// Package config loads Resources/UpdaterConfig.ini (or the legacy
// updateconfig.ini fallback) into mirror and custom-component settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nightforge/patchwright/internal/manifest"
	"github.com/nightforge/patchwright/internal/xerr"
)

// DefaultIgnoreMasks are applied when [Settings] IgnoreMasks is absent
// entirely from UpdaterConfig.ini.
var DefaultIgnoreMasks = []string{".rtf", ".txt", "Theme.ini", "gui_settings.xml"}

const (
	sectionSettings         = "Settings"
	sectionDownloadMirrors  = "DownloadMirrors"
	sectionCustomComponents = "CustomComponents"
)

// Config is the parsed UpdaterConfig.ini.
type Config struct {
	IgnoreMasks []string
	Mirrors     []manifest.UpdateMirror
	Components  []manifest.CustomComponent
}

// Load reads Resources/UpdaterConfig.ini under root, falling back to the
// legacy root/updateconfig.ini comma-line format when the INI file is
// absent.
func Load(root string) (*Config, error) {
	iniPath := filepath.Join(root, "Resources", "UpdaterConfig.ini")
	data, err := os.ReadFile(iniPath)
	if err == nil {
		return parseINI(data)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read %s: %w", iniPath, err)
	}

	legacyPath := filepath.Join(root, "updateconfig.ini")
	legacy, err := os.ReadFile(legacyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config: %w: no UpdaterConfig.ini or updateconfig.ini under %s", xerr.ErrConfigMissing, root)
		}
		return nil, fmt.Errorf("config: read %s: %w", legacyPath, err)
	}
	return parseLegacy(legacy)
}

func parseINI(data []byte) (*Config, error) {
	f, err := manifest.LoadINI(data)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{IgnoreMasks: DefaultIgnoreMasks}
	if f.HasSection(sectionSettings) {
		settings := f.Section(sectionSettings)
		if key, err := settings.GetKey("IgnoreMasks"); err == nil {
			masks := strings.Split(key.Value(), ",")
			for i := range masks {
				masks[i] = strings.TrimSpace(masks[i])
			}
			cfg.IgnoreMasks = masks
		}
	}

	if f.HasSection(sectionDownloadMirrors) {
		for _, key := range f.Section(sectionDownloadMirrors).Keys() {
			fields := splitFields(key.Value())
			if len(fields) < 2 {
				continue
			}
			m := manifest.UpdateMirror{URL: fields[0], Name: fields[1]}
			if len(fields) >= 3 {
				m.Location = fields[2]
			}
			cfg.Mirrors = append(cfg.Mirrors, m)
		}
	}

	if f.HasSection(sectionCustomComponents) {
		for _, key := range f.Section(sectionCustomComponents).Keys() {
			fields := splitFields(key.Value())
			if len(fields) < 4 {
				continue
			}
			c := manifest.CustomComponent{
				DisplayName:  fields[0],
				IniName:      fields[1],
				DownloadPath: fields[2],
				LocalPath:    fields[3],
			}
			c.DownloadPathIsAbsolute = strings.Contains(c.DownloadPath, "://")
			if len(fields) >= 5 {
				c.NoArchiveExtensionOnDownload = fields[4] == "1" || strings.EqualFold(fields[4], "true")
			}
			cfg.Components = append(cfg.Components, c)
		}
	}

	return cfg, nil
}

// parseLegacy parses updateconfig.ini's legacy format: comma-separated
// lines of "<url>,<name>,<location>", no sections.
func parseLegacy(data []byte) (*Config, error) {
	cfg := &Config{IgnoreMasks: DefaultIgnoreMasks}
	lines := strings.Split(string(data), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(strings.Trim(line, "\r"))
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		fields := splitFields(line)
		if len(fields) < 2 {
			continue
		}
		m := manifest.UpdateMirror{URL: fields[0], Name: fields[1]}
		if len(fields) >= 3 {
			m.Location = fields[2]
		}
		cfg.Mirrors = append(cfg.Mirrors, m)
	}
	return cfg, nil
}

func splitFields(value string) []string {
	fields := strings.Split(value, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// ParseIntField is exposed for callers that need to re-parse a size field
// out of band (e.g. diagnostics tooling).
func ParseIntField(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
