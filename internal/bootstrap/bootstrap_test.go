package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLauncherFromClientDefinitionsStripsComment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ClientDefinitions.ini")
	require.NoError(t, os.WriteFile(path, []byte("SomeOtherKey=1\n"+launcherKey()+"Client/launcher.sh ; the real launcher\n"), 0644))

	got, err := launcherFromClientDefinitions(path)
	require.NoError(t, err)
	require.Equal(t, "Client/launcher.sh", got)
}

func TestLauncherFromClientDefinitionsMissingKeyFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ClientDefinitions.ini")
	require.NoError(t, os.WriteFile(path, []byte("SomeOtherKey=1\n"), 0644))

	_, err := launcherFromClientDefinitions(path)
	require.Error(t, err)
}

func TestSkipSetSkipsSelfAndNeighbors(t *testing.T) {
	dir := t.TempDir()
	selfPath := filepath.Join(dir, "SecondStageUpdater")
	require.NoError(t, os.WriteFile(selfPath, []byte("x"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "helper.so"), []byte("x"), 0644))

	s := buildSkipSet(selfPath)
	require.True(t, s.shouldSkip("SecondStageUpdater"))
	require.True(t, s.shouldSkip("Resources/SecondStageUpdater.exe"))
	require.True(t, s.shouldSkip("helper.dll"))
	require.False(t, s.shouldSkip("game.dat"))
}

func TestRunCopiesStagedTreeAndLaunches(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "Updater", "Resources"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "Updater", "game.dat"), []byte("new content"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "Updater", "version"), []byte("[DTA]\nVersion = 2.0\n"), 0644))

	require.NoError(t, os.MkdirAll(filepath.Join(base, "Resources"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "Resources", "ClientDefinitions.ini"),
		[]byte(launcherKey()+"launcher.sh\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "launcher.sh"), []byte("#!/bin/sh\nexit 0\n"), 0755))

	console, err := NewConsole(filepath.Join(base, "Client", "SecondStageUpdater.log"))
	require.NoError(t, err)
	defer console.Close()

	err = Run(Options{ClientExecutableName: "client", BaseDirectory: base, Console: console})
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(base, "game.dat"))
	require.NoError(t, err)
	require.Equal(t, "new content", string(got))

	_, err = os.ReadFile(filepath.Join(base, "version"))
	require.NoError(t, err)
}

func TestRunFailsWithoutStagingDirectory(t *testing.T) {
	base := t.TempDir()
	console, err := NewConsole(filepath.Join(base, "Client", "SecondStageUpdater.log"))
	require.NoError(t, err)
	defer console.Close()

	err = Run(Options{ClientExecutableName: "client", BaseDirectory: base, Console: console})
	require.Error(t, err)
}
