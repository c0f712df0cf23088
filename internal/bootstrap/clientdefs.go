package bootstrap

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strings"
)

func launcherKey() string {
	if runtime.GOOS == "windows" {
		return "LauncherExe="
	}
	return "UnixLauncherExe="
}

// launcherFromClientDefinitions reads path looking for the single line
// starting with the platform's launcher key, strips a trailing ";"
// comment, and returns the trimmed value.
func launcherFromClientDefinitions(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("bootstrap: open %s: %w", path, err)
	}
	defer f.Close()

	key := launcherKey()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, key) {
			continue
		}
		value := strings.TrimPrefix(line, key)
		if idx := strings.Index(value, ";"); idx >= 0 {
			value = value[:idx]
		}
		return strings.TrimSpace(value), nil
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("bootstrap: scan %s: %w", path, err)
	}
	return "", fmt.Errorf("bootstrap: %s missing %s", path, strings.TrimSuffix(key, "="))
}
