package main

import (
	"fmt"
	"sync"

	"github.com/nightforge/patchwright/internal/manifest"
	"github.com/nightforge/patchwright/internal/update"
)

// cliObserver prints state changes, failures, completion, component
// staleness, download progress and restarts to stdout; the other
// Observer events are discarded by the embedded NopObserver. Each call to
// Await opens a fresh one-shot channel so the same Updater can be driven
// through multiple phases (check, then start) by the one CLI process.
type cliObserver struct {
	update.NopObserver

	mu      sync.Mutex
	lastErr error
	done    chan error
}

func newCLIObserver() *cliObserver {
	return &cliObserver{}
}

// Await opens a new wait channel and blocks until the next terminal
// VersionState transition, returning whatever error OnUpdateFailed most
// recently reported (nil on success).
func (o *cliObserver) Await() error {
	o.mu.Lock()
	ch := make(chan error, 1)
	o.done = ch
	o.lastErr = nil
	o.mu.Unlock()
	return <-ch
}

func (o *cliObserver) finish() {
	o.mu.Lock()
	ch := o.done
	err := o.lastErr
	o.done = nil
	o.mu.Unlock()
	if ch != nil {
		ch <- err
	}
}

func (o *cliObserver) OnVersionStateChanged(s manifest.VersionState) {
	fmt.Printf("state: %s\n", s)
	switch s {
	case manifest.StateUpToDate, manifest.StateOutdated, manifest.StateUnknown:
		o.finish()
	}
}

func (o *cliObserver) OnUpdateFailed(err error) {
	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
	fmt.Printf("update failed: %v\n", err)
}

func (o *cliObserver) OnUpdateCompleted() {
	fmt.Println("update completed")
}

func (o *cliObserver) OnCustomComponentsOutdated() {
	fmt.Println("custom components are outdated")
}

func (o *cliObserver) UpdateProgressChanged(currentFile string, filePercent, totalPercent float64) {
	fmt.Printf("\rdownloading %s: %.0f%% (total %.0f%%)", currentFile, filePercent, totalPercent)
}

func (o *cliObserver) Restart(clientExecutableName, baseDirectory string) {
	fmt.Printf("\nrestarting %s via second stage in %s\n", clientExecutableName, baseDirectory)
}
