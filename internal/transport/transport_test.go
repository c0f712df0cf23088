package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUserAgentOmitsUpdaterWhenNA(t *testing.T) {
	require.Equal(t, "Game Updater/1 Game/2 Client/3", UserAgent("Game", "1", "2", "3"))
	require.Equal(t, "Game Game/2 Client/3", UserAgent("Game", "N/A", "2", "3"))
}

func TestDownloadWritesFileAndReportsProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "5")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	tr := New("test-agent")
	dest := filepath.Join(t.TempDir(), "out.bin")

	var lastPercent float64
	err := tr.Download(context.Background(), srv.URL, dest, func(percent float64, bytesRead int64) {
		lastPercent = percent
	})
	require.NoError(t, err)
	require.Equal(t, float64(100), lastPercent)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestDownloadNon200Fails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := New("test-agent")
	dest := filepath.Join(t.TempDir(), "out.bin")
	err := tr.Download(context.Background(), srv.URL, dest, nil)
	require.Error(t, err)
	_, statErr := os.Stat(dest)
	require.True(t, os.IsNotExist(statErr))
}

func TestDownloadCancelDeletesPartialFile(t *testing.T) {
	blockCh := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		<-blockCh
	}))
	defer srv.Close()
	defer close(blockCh)

	tr := New("test-agent")
	dest := filepath.Join(t.TempDir(), "out.bin")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := tr.Download(ctx, srv.URL, dest, nil)
	require.Error(t, err)
	_, statErr := os.Stat(dest)
	require.True(t, os.IsNotExist(statErr))
}
