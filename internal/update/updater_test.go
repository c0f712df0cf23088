package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nightforge/patchwright/internal/config"
	"github.com/nightforge/patchwright/internal/hashid"
	"github.com/nightforge/patchwright/internal/manifest"
	"github.com/nightforge/patchwright/internal/mirror"
	"github.com/nightforge/patchwright/internal/transport"
)

type recordingObserver struct {
	NopObserver
	mu       sync.Mutex
	states   []manifest.VersionState
	failed   []error
	restarts int
}

func (r *recordingObserver) OnVersionStateChanged(s manifest.VersionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recordingObserver) OnUpdateFailed(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, err)
}

func (r *recordingObserver) Restart(string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restarts++
}

func (r *recordingObserver) lastState() manifest.VersionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return manifest.StateUnknown
	}
	return r.states[len(r.states)-1]
}

func waitForState(t *testing.T, u *Updater, want manifest.VersionState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if u.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state never reached %s, stuck at %s", want, u.State())
}

func newTestUpdater(t *testing.T, root, serverURL string, obs Observer) *Updater {
	t.Helper()
	mirrors := mirror.New([]manifest.UpdateMirror{{URL: serverURL, Name: "primary"}})
	return New(root, transport.New("test"), mirrors, &config.Config{}, nil, obs)
}

func TestCheckForUpdatesUpToDate(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "version"), []byte("[DTA]\nVersion = 1.0\nUpdaterVersion = N/A\n"), 0644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[DTA]\nVersion = 1.0\nUpdaterVersion = N/A\n"))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	u := newTestUpdater(t, root, srv.URL, obs)

	require.NoError(t, u.CheckForUpdates(context.Background()))
	waitForState(t, u, manifest.StateUpToDate)
	require.Empty(t, obs.failed)
}

func TestCheckForUpdatesBuildsPlanWhenOutdated(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "version"),
		[]byte("[DTA]\nVersion = 1.0\nUpdaterVersion = N/A\n\n[FileVersions]\ngame.dat = AAA,10\n"), 0644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[DTA]\nVersion = 2.0\nUpdaterVersion = N/A\n\n[FileVersions]\ngame.dat = BBB,10\n\n[ArchivedFiles]\ngame.dat = CCC,4\n"))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	u := newTestUpdater(t, root, srv.URL, obs)

	require.NoError(t, u.CheckForUpdates(context.Background()))
	waitForState(t, u, manifest.StateOutdated)

	require.NotNil(t, u.Plan())
	require.Len(t, u.Plan().Entries, 1)
	require.EqualValues(t, 4, u.Plan().TotalKB)
}

func TestCheckForUpdatesManualGate(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "version"), []byte("[DTA]\nVersion = 1.0\nUpdaterVersion = 1\n"), 0644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[DTA]\nVersion = 2.0\nUpdaterVersion = 2\nManualDownloadURL = https://x\n"))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	u := newTestUpdater(t, root, srv.URL, obs)

	require.NoError(t, u.CheckForUpdates(context.Background()))
	waitForState(t, u, manifest.StateOutdated)

	required, url := u.ManualUpdateRequired()
	require.True(t, required)
	require.Equal(t, "https://x", url)
	require.Nil(t, u.Plan())
}

func TestCheckForUpdatesRejectsConcurrentCalls(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "version"), []byte("[DTA]\nVersion = 1.0\nUpdaterVersion = N/A\n"), 0644))
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
		w.Write([]byte("[DTA]\nVersion = 1.0\nUpdaterVersion = N/A\n"))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	u := newTestUpdater(t, root, srv.URL, obs)

	require.NoError(t, u.CheckForUpdates(context.Background()))
	err := u.CheckForUpdates(context.Background())
	require.Error(t, err)

	close(block)
	waitForState(t, u, manifest.StateUpToDate)
}

// When the rebuilt plan turns out empty (local file already matches the
// server's identifier), no Updater/ staging directory is ever created, so
// finalize takes the non-staged branch straight back to UPTODATE.
func TestStartUpdateNonStagedBranchReachesUpToDate(t *testing.T) {
	root := t.TempDir()
	content := []byte("game binary content")
	require.NoError(t, os.WriteFile(filepath.Join(root, "game.dat"), content, 0644))
	id := mustHash(t, content)

	require.NoError(t, os.WriteFile(filepath.Join(root, "version"),
		[]byte("[DTA]\nVersion = 1.0\nUpdaterVersion = N/A\n\n[FileVersions]\ngame.dat = "+id+",1\n"), 0644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/version":
			w.Write([]byte("[DTA]\nVersion = 2.0\nUpdaterVersion = N/A\n\n[FileVersions]\ngame.dat = " + id + ",1\n"))
		case "/preupdateexec", "/updateexec":
			w.Write(nil)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	u := newTestUpdater(t, root, srv.URL, obs)

	require.NoError(t, u.CheckForUpdates(context.Background()))
	waitForState(t, u, manifest.StateOutdated)

	require.NoError(t, u.StartUpdate(context.Background()))
	waitForState(t, u, manifest.StateUpToDate)
	require.Empty(t, obs.failed)

	_, statErr := os.Stat(filepath.Join(root, "Updater"))
	require.True(t, os.IsNotExist(statErr), "no files planned means no staging directory is created")
}

func mustHash(t *testing.T, content []byte) string {
	t.Helper()
	tmp := filepath.Join(t.TempDir(), "probe")
	require.NoError(t, os.WriteFile(tmp, content, 0644))
	id, err := hashid.Of(tmp)
	require.NoError(t, err)
	return id
}
