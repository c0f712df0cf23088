package manifest

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// LoadINI parses arbitrary INI-shaped bytes (config files, script files)
// with the same tolerant options used for the server manifest: BOM,
// CRLF/LF, blank lines, ";"-comments, and "last key wins" on duplicates.
func LoadINI(data []byte) (*ini.File, error) {
	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("manifest: load ini: %w", err)
	}
	return f, nil
}
