// Package update implements the Update Orchestrator: the state machine
// that sequences version checks, script execution, plan downloads, and the
// second-stage handoff.
package update

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fynelabs/selfupdate"

	"github.com/nightforge/patchwright/internal/applog"
	"github.com/nightforge/patchwright/internal/config"
	"github.com/nightforge/patchwright/internal/download"
	"github.com/nightforge/patchwright/internal/hashid"
	"github.com/nightforge/patchwright/internal/manifest"
	"github.com/nightforge/patchwright/internal/mirror"
	"github.com/nightforge/patchwright/internal/reconcile"
	"github.com/nightforge/patchwright/internal/script"
	"github.com/nightforge/patchwright/internal/transport"
	"github.com/nightforge/patchwright/internal/xerr"
)

const (
	localVersionFile   = "version"
	pendingVersionFile = "version_u"
	scriptPreUpdate    = "preupdateexec"
	scriptUpdate       = "updateexec"
)

// Updater owns the mutable VersionState, the current plan, and the
// downloaded-bytes counter for one installation root. It is the only
// writer of those fields; everything else observes them through Observer
// callbacks or the State accessor.
type Updater struct {
	Root      string
	Transport *transport.Transport
	Mirrors   *mirror.List
	Config    *config.Config
	Log       *applog.Logger
	Observer  Observer

	busy  sync.Mutex
	state atomic.Int32

	cancelMu sync.Mutex
	cancelFn context.CancelFunc

	local  *manifest.Manifest
	server *manifest.Manifest
	plan   *manifest.Plan

	manualUpdateRequired atomic.Bool
	manualDownloadURL    atomic.Value

	totalKB      atomic.Int64
	downloadedKB atomic.Int64
}

// New builds an Updater rooted at root. obs may be nil, in which case
// events are discarded.
func New(root string, t *transport.Transport, mirrors *mirror.List, cfg *config.Config, log *applog.Logger, obs Observer) *Updater {
	if log == nil {
		log = applog.Nop()
	}
	if obs == nil {
		obs = NopObserver{}
	}
	u := &Updater{Root: root, Transport: t, Mirrors: mirrors, Config: cfg, Log: log, Observer: obs}
	u.state.Store(int32(manifest.StateUnknown))
	u.manualDownloadURL.Store("")
	return u
}

// State returns the orchestrator's current position in the state machine.
func (u *Updater) State() manifest.VersionState {
	return manifest.VersionState(u.state.Load())
}

// ManualUpdateRequired reports whether the last version check found the
// local updater itself out of date, which can only be resolved out of
// band by the user fetching a new installer.
func (u *Updater) ManualUpdateRequired() (bool, string) {
	return u.manualUpdateRequired.Load(), u.manualDownloadURL.Load().(string)
}

// Plan returns the most recently computed download plan, or nil.
func (u *Updater) Plan() *manifest.Plan {
	return u.plan
}

// LocalManifest returns the most recently loaded local manifest, or nil
// before the first CheckForUpdates call.
func (u *Updater) LocalManifest() *manifest.Manifest {
	return u.local
}

// ServerManifest returns the most recently fetched server manifest, or nil
// before the first CheckForUpdates call.
func (u *Updater) ServerManifest() *manifest.Manifest {
	return u.server
}

func (u *Updater) setState(s manifest.VersionState) {
	u.state.Store(int32(s))
	u.Observer.OnVersionStateChanged(s)
}

// Cancel requests that an in-flight StartUpdate revert to OUTDATED at the
// next opportunity. It is a no-op if no update is running.
func (u *Updater) Cancel() {
	u.cancelMu.Lock()
	defer u.cancelMu.Unlock()
	if u.cancelFn != nil {
		u.cancelFn()
	}
}

// CheckForUpdates fetches the server manifest (trying mirrors in order
// until one succeeds), compares it against the local manifest, and
// transitions through UPDATECHECKINPROGRESS to UPTODATE, OUTDATED, or back
// to UNKNOWN on failure. It runs on its own goroutine; ErrBusy is returned
// immediately if a check or update is already in flight.
func (u *Updater) CheckForUpdates(ctx context.Context) error {
	if !u.busy.TryLock() {
		return fmt.Errorf("update: %w", xerr.ErrBusy)
	}
	go func() {
		defer u.busy.Unlock()
		u.runCheck(ctx)
	}()
	return nil
}

func (u *Updater) runCheck(ctx context.Context) {
	u.setState(manifest.StateUpdateCheckInProgress)

	local, err := u.loadLocalManifest()
	if err != nil {
		u.Observer.OnUpdateFailed(err)
		u.setState(manifest.StateUnknown)
		return
	}

	server, err := u.fetchServerManifest(ctx)
	if err != nil {
		u.Observer.OnUpdateFailed(err)
		u.setState(manifest.StateUnknown)
		return
	}

	u.local = local
	u.server = server
	u.Observer.FileIdentifiersUpdated(server)

	if server.GameVersion == local.GameVersion {
		u.setState(manifest.StateUpToDate)
		if u.Config != nil {
			u.refreshComponentIdentifiers(server)
			if reconcile.CustomComponentsOutdated(u.Root, u.Config.Components) {
				u.Observer.OnCustomComponentsOutdated()
			}
		}
		return
	}

	if server.UpdaterVersion != "N/A" && server.UpdaterVersion != local.UpdaterVersion {
		u.manualUpdateRequired.Store(true)
		u.manualDownloadURL.Store(server.ManualDownloadURL)
		u.setState(manifest.StateOutdated)
		return
	}

	plan, err := reconcile.Plan(u.Root, local, server)
	if err != nil {
		u.Observer.OnUpdateFailed(fmt.Errorf("update: %w", err))
		u.setState(manifest.StateUnknown)
		return
	}
	u.plan = plan
	u.totalKB.Store(plan.TotalKB)
	u.setState(manifest.StateOutdated)
}

// StartUpdate runs the full update sequence: preupdateexec, local file
// rehash, plan rebuild, per-file download, updateexec, and finalize. It
// only begins from OUTDATED; callers must CheckForUpdates first.
func (u *Updater) StartUpdate(ctx context.Context) error {
	if u.State() != manifest.StateOutdated {
		return fmt.Errorf("update: %w: not outdated", xerr.ErrBusy)
	}
	if !u.busy.TryLock() {
		return fmt.Errorf("update: %w", xerr.ErrBusy)
	}

	runCtx, cancel := context.WithCancel(ctx)
	u.cancelMu.Lock()
	u.cancelFn = cancel
	u.cancelMu.Unlock()

	go func() {
		defer func() {
			u.cancelMu.Lock()
			u.cancelFn = nil
			u.cancelMu.Unlock()
			cancel()
			u.busy.Unlock()
		}()
		u.runUpdate(runCtx)
	}()
	return nil
}

func (u *Updater) runUpdate(ctx context.Context) {
	u.setState(manifest.StateUpdateInProgress)

	mirrorURL, err := u.currentMirrorURL()
	if err != nil {
		u.Observer.OnUpdateFailed(err)
		u.setState(manifest.StateUnknown)
		return
	}

	u.runScript(ctx, mirrorURL, scriptPreUpdate)

	u.verifyLocalFileVersions()

	plan, err := reconcile.Plan(u.Root, u.local, u.server)
	if err != nil {
		u.Observer.OnUpdateFailed(fmt.Errorf("update: %w", err))
		u.setState(manifest.StateUnknown)
		return
	}
	u.plan = plan
	u.totalKB.Store(plan.TotalKB)
	u.downloadedKB.Store(0)

	eng := download.New(u.Root, u.Transport, u.Log)
	err = eng.RunPlan(ctx, mirrorURL, plan, func(currentFile string, filePercent, totalPercent float64) {
		u.Observer.UpdateProgressChanged(currentFile, filePercent, totalPercent)
		if filePercent >= 100 {
			u.Observer.OnFileDownloadCompleted(archiveNameFor(currentFile, plan))
		}
	})
	if errors.Is(err, xerr.ErrCancelled) || errors.Is(err, context.Canceled) {
		u.setState(manifest.StateOutdated)
		return
	}
	if err != nil {
		u.Observer.OnUpdateFailed(err)
		u.setState(manifest.StateUnknown)
		return
	}

	u.runScript(ctx, mirrorURL, scriptUpdate)

	if err := os.WriteFile(filepath.Join(u.Root, pendingVersionFile), manifest.Marshal(u.server), 0644); err != nil {
		u.Observer.OnUpdateFailed(fmt.Errorf("update: write pending manifest: %w", err))
		u.setState(manifest.StateUnknown)
		return
	}

	staged, err := u.finalize(ctx)
	if err != nil {
		u.Observer.OnUpdateFailed(err)
		u.setState(manifest.StateUnknown)
		return
	}
	if !staged {
		u.Observer.OnUpdateCompleted()
	}
}

func archiveNameFor(path string, plan *manifest.Plan) string {
	for _, e := range plan.Entries {
		if e.Path == path && e.Archived() {
			return e.Path + ".lzma"
		}
	}
	return ""
}

func (u *Updater) currentMirrorURL() (string, error) {
	m, ok := u.Mirrors.Current()
	if !ok {
		return "", fmt.Errorf("update: %w", xerr.ErrMirrorExhausted)
	}
	return m.URL, nil
}

// fetchServerManifest tries mirrors in order starting from the current
// one, advancing on failure, until one serves a parseable manifest or
// Advance moves past the last mirror. Mirrors before the starting index
// are not retried in the same call.
func (u *Updater) fetchServerManifest(ctx context.Context) (*manifest.Manifest, error) {
	attempts := u.Mirrors.Len()
	if attempts == 0 {
		return nil, fmt.Errorf("update: %w", xerr.ErrMirrorExhausted)
	}
	for i := 0; i < attempts; i++ {
		m, ok := u.Mirrors.Current()
		if !ok {
			return nil, fmt.Errorf("update: %w", xerr.ErrMirrorExhausted)
		}
		data, err := u.Transport.Get(ctx, strings.TrimSuffix(m.URL, "/")+"/version")
		if err == nil {
			parsed, perr := manifest.ParseServerManifest(data, u.Log)
			if perr == nil {
				return parsed, nil
			}
			err = perr
		}
		u.Log.Warnf("update: mirror %s failed: %v", m.Name, err)
		if advErr := u.Mirrors.Advance(); advErr != nil {
			return nil, fmt.Errorf("update: %w", xerr.ErrMirrorExhausted)
		}
	}
	return nil, fmt.Errorf("update: %w", xerr.ErrMirrorExhausted)
}

// loadLocalManifest reads <root>/version. A missing file means a fresh
// install: treated as an empty manifest with no matching game version, so
// the very first check always finds an update.
func (u *Updater) loadLocalManifest() (*manifest.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(u.Root, localVersionFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &manifest.Manifest{UpdaterVersion: "N/A", AddOns: map[string]manifest.FileEntry{}}, nil
		}
		return nil, fmt.Errorf("update: read local manifest: %w", err)
	}
	return manifest.ParseServerManifest(data, u.Log)
}

// verifyLocalFileVersions rehashes every non-ignore-masked local entry,
// dropping entries whose file has vanished and repairing any entry whose
// on-disk hash no longer matches what the manifest last recorded.
func (u *Updater) verifyLocalFileVersions() {
	if u.local == nil {
		return
	}
	ignoreMasks := DefaultIgnoreMasks(u.Config)

	kept := make([]manifest.FileEntry, 0, len(u.local.Files))
	total := len(u.local.Files)
	for i, entry := range u.local.Files {
		u.Observer.LocalFileCheckProgressChanged(i, total)

		if reconcile.IsIgnored(entry.CanonicalPath(), ignoreMasks) {
			kept = append(kept, entry)
			continue
		}

		diskPath := filepath.Join(u.Root, filepath.FromSlash(entry.CanonicalPath()))
		if _, err := os.Stat(diskPath); err != nil {
			continue
		}
		if actual, err := hashid.Of(diskPath); err == nil {
			entry.Identifier = actual
		}
		kept = append(kept, entry)
	}
	u.Observer.LocalFileCheckProgressChanged(total, total)

	u.local.Files = kept
	u.Observer.OnLocalFileVersionsChecked(u.local)
}

// refreshComponentIdentifiers resolves each configured component's
// RemoteIdentifier against server.AddOns and its LocalIdentifier by
// hashing the file on disk, so CustomComponentsOutdated has something
// other than two empty strings to compare.
func (u *Updater) refreshComponentIdentifiers(server *manifest.Manifest) {
	for i := range u.Config.Components {
		c := &u.Config.Components[i]
		if remote, ok := server.AddOns[c.IniName]; ok {
			c.RemoteIdentifier = remote.Identifier
			c.RemoteSizeKB = remote.SizeKB
		}
		diskPath := filepath.Join(u.Root, filepath.FromSlash(c.LocalPath))
		if actual, err := hashid.Of(diskPath); err == nil {
			c.LocalIdentifier = actual
		}
	}
}

// DefaultIgnoreMasks resolves the ignore-mask list from cfg, falling back
// to the documented defaults when cfg is nil or carries none.
func DefaultIgnoreMasks(cfg *config.Config) []string {
	if cfg == nil || len(cfg.IgnoreMasks) == 0 {
		return config.DefaultIgnoreMasks
	}
	return cfg.IgnoreMasks
}

func (u *Updater) runScript(ctx context.Context, mirrorURL, name string) {
	data, err := u.Transport.Get(ctx, strings.TrimSuffix(mirrorURL, "/")+"/"+name)
	if err != nil {
		u.Log.Warnf("update: fetch script %s: %v", name, err)
		return
	}
	if err := script.Run(u.Root, data, u.Log); err != nil {
		u.Log.Warnf("update: %v running %s: %v", xerr.ErrScriptStepFailed, name, err)
	}
}

// finalize applies the downloaded plan. It returns staged=true when the
// update staged files under Updater/ and handed off to the second-stage
// process, or staged=false when everything was applied directly and the
// orchestrator returned to UPTODATE in place.
func (u *Updater) finalize(ctx context.Context) (staged bool, err error) {
	stagingRoot := filepath.Join(u.Root, "Updater")
	info, statErr := os.Stat(stagingRoot)
	if statErr != nil || !info.IsDir() {
		if err := moveIfExists(filepath.Join(u.Root, pendingVersionFile), filepath.Join(u.Root, localVersionFile)); err != nil {
			return false, fmt.Errorf("update: finalize: %w", err)
		}
		u.local = u.server
		u.verifyLocalFileVersions()
		u.setState(manifest.StateUpToDate)
		return false, nil
	}

	// The version move into Updater/ must happen before the second stage is
	// spawned, so it observes the authoritative new manifest.
	if err := moveIfExists(filepath.Join(u.Root, pendingVersionFile), filepath.Join(stagingRoot, localVersionFile)); err != nil {
		return true, fmt.Errorf("update: finalize: %w", err)
	}

	copyIfExists(filepath.Join(u.Root, "Theme_c.ini"), filepath.Join(u.Root, "INI", "Theme.ini"))

	if err := u.replaceSecondStageBinary(stagingRoot); err != nil {
		return true, fmt.Errorf("update: finalize: %w", err)
	}

	clientExe := filepath.Base(os.Args[0])
	if err := spawnSecondStage(u.Root, clientExe); err != nil {
		u.Log.Warnf("update: spawn second stage: %v", err)
	}
	u.Observer.Restart(clientExe, u.Root)
	return true, nil
}

func secondStageBinaryName() string {
	if runtime.GOOS == "windows" {
		return "SecondStageUpdater.exe"
	}
	return "SecondStageUpdater"
}

func (u *Updater) replaceSecondStageBinary(stagingRoot string) error {
	staged := filepath.Join(stagingRoot, "Resources", secondStageBinaryName())
	if _, err := os.Stat(staged); err != nil {
		return nil
	}
	live := filepath.Join(u.Root, "Resources", secondStageBinaryName())

	f, err := os.Open(staged)
	if err != nil {
		return fmt.Errorf("open staged second stage: %w", err)
	}
	defer f.Close()

	return selfupdate.Apply(f, selfupdate.Options{TargetPath: live})
}

func spawnSecondStage(root, clientExe string) error {
	bin := filepath.Join(root, "Resources", secondStageBinaryName())
	cmd := exec.Command(bin, clientExe, root)
	cmd.Dir = root
	return cmd.Start()
}

func moveIfExists(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

func copyIfExists(src, dst string) {
	data, err := os.ReadFile(src)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return
	}
	_ = os.WriteFile(dst, data, 0644)
}
