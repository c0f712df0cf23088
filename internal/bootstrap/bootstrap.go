// Package bootstrap implements the second-stage updater: the small
// process the host spawns on restart to finalize file replacement under a
// cross-process exclusion lock, once the host itself has exited.
package bootstrap

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/nightforge/patchwright/internal/xerr"
	"github.com/nightforge/patchwright/internal/xmutex"
)

// Options are the second-stage CLI's parsed arguments. BaseDirectory is
// expected already unquoted: the CLI entrypoint strips the surrounding
// quotes the base directory argument may arrive wrapped in before
// building Options, since the same cleaned path is also needed for the
// log file location.
type Options struct {
	ClientExecutableName string
	BaseDirectory        string
	Console              *Console
}

// Run acquires the cross-process install mutex, copies the staged update
// tree over the live installation, and relaunches the client. It returns
// a non-nil error on any failure; the caller maps that to the CLI's exit
// code.
func Run(opts Options) error {
	base := opts.BaseDirectory
	console := opts.Console

	mutex, err := xmutex.AcquireDefault()
	if err != nil {
		console.Fatal("failed to acquire installation lock: %v", err)
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer mutex.Release()

	time.Sleep(1 * time.Second)

	stagingRoot := filepath.Join(base, "Updater")
	if info, err := os.Stat(stagingRoot); err != nil || !info.IsDir() {
		console.Fatal("staging directory %s is missing", stagingRoot)
		return fmt.Errorf("bootstrap: %w: %s", xerr.ErrFilesystemFailed, stagingRoot)
	}

	selfPath, err := os.Executable()
	if err != nil {
		console.Warn("could not resolve own executable path: %v", err)
		selfPath = opts.ClientExecutableName
	}
	skip := buildSkipSet(selfPath)

	copied := 0
	err = filepath.WalkDir(stagingRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(stagingRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.EqualFold(rel, "version") {
			return nil
		}
		if skip.shouldSkip(rel) {
			console.Info("skipping %s (self or referenced assembly)", rel)
			return nil
		}
		dest := filepath.Join(base, filepath.FromSlash(rel))
		if err := copyFile(path, dest); err != nil {
			return fmt.Errorf("copy %s: %w", rel, err)
		}
		copied++
		return nil
	})
	if err != nil {
		console.Fatal("walking staged files: %v", err)
		return fmt.Errorf("bootstrap: %w: %v", xerr.ErrFilesystemFailed, err)
	}
	console.Info("copied %d staged file(s)", copied)

	stagedVersion := filepath.Join(stagingRoot, "version")
	if _, err := os.Stat(stagedVersion); err == nil {
		if err := copyFile(stagedVersion, filepath.Join(base, "version")); err != nil {
			console.Fatal("copy version file: %v", err)
			return fmt.Errorf("bootstrap: %w: copy version file: %v", xerr.ErrFilesystemFailed, err)
		}
	}

	defsPath := filepath.Join(base, "Resources", "ClientDefinitions.ini")
	launcherRel, err := launcherFromClientDefinitions(defsPath)
	if err != nil {
		console.Fatal("%v", err)
		return fmt.Errorf("bootstrap: %w", xerr.ErrLauncherMissing)
	}

	launcherPath := filepath.Join(base, filepath.FromSlash(launcherRel))
	if _, err := os.Stat(launcherPath); err != nil {
		console.Fatal("launcher %s not found", launcherPath)
		return fmt.Errorf("bootstrap: %w: %s", xerr.ErrLauncherMissing, launcherPath)
	}

	cmd := exec.Command(launcherPath)
	cmd.Dir = base
	if err := cmd.Start(); err != nil {
		console.Fatal("failed to launch %s: %v", launcherPath, err)
		return fmt.Errorf("bootstrap: launch %s: %w", launcherPath, err)
	}
	console.Info("launched %s", launcherPath)
	return nil
}

// skipSet holds the basenames (without extension, lower-cased) the walk
// must leave untouched: the second-stage executable's own identity and
// whatever sits alongside it in its own directory, which it treats as its
// referenced assemblies.
type skipSet struct {
	selfNoExt string
	neighbors map[string]bool
}

func buildSkipSet(selfPath string) skipSet {
	base := filepath.Base(selfPath)
	noExt := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))

	neighbors := map[string]bool{}
	if dir := filepath.Dir(selfPath); dir != "" {
		entries, err := os.ReadDir(dir)
		if err == nil {
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				n := strings.ToLower(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
				if n != noExt {
					neighbors[n] = true
				}
			}
		}
	}
	return skipSet{selfNoExt: noExt, neighbors: neighbors}
}

// shouldSkip reports whether rel (a staging-relative, forward-slashed
// path) refers to the bootstrap's own binary or one of its referenced
// assemblies, at the root of the staging tree or under Resources/.
func (s skipSet) shouldSkip(rel string) bool {
	dir, base := "", rel
	if idx := strings.LastIndex(rel, "/"); idx >= 0 {
		dir, base = rel[:idx], rel[idx+1:]
	}
	if dir != "" && !strings.EqualFold(dir, "Resources") {
		return false
	}
	baseNoExt := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))

	if baseNoExt == s.selfNoExt {
		return true
	}
	return s.neighbors[baseNoExt]
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
