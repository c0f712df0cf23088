package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunDelete(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "old.dat"), []byte("x"), 0644))

	err := Run(root, []byte("[Delete]\nold.dat = \nmissing.dat = \n"), nil)
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(root, "old.dat"))
	require.True(t, os.IsNotExist(statErr))
}

func TestRunRename(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.dat"), []byte("x"), 0644))

	err := Run(root, []byte("[Rename]\na.dat = sub/b.dat\n"), nil)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "sub", "b.dat"))
	require.NoError(t, err)
}

func TestRunRenameAndMergeIntoExistingDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dest"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "keep.dat"), []byte("keep"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "dupe.dat"), []byte("new"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dest", "dupe.dat"), []byte("existing"), 0644))

	err := Run(root, []byte("[RenameAndMerge]\nsrc = dest\n"), nil)
	require.NoError(t, err)

	moved, err := os.ReadFile(filepath.Join(root, "dest", "keep.dat"))
	require.NoError(t, err)
	require.Equal(t, "keep", string(moved))

	// Source duplicate is deleted, destination copy wins untouched.
	_, statErr := os.Stat(filepath.Join(root, "src", "dupe.dat"))
	require.True(t, os.IsNotExist(statErr))
	kept, err := os.ReadFile(filepath.Join(root, "dest", "dupe.dat"))
	require.NoError(t, err)
	require.Equal(t, "existing", string(kept))
}

func TestRunRenameAndMergeBehavesLikeRenameFolderWhenDestMissing(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "f.dat"), []byte("x"), 0644))

	err := Run(root, []byte("[RenameAndMerge]\nsrc = dest\n"), nil)
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(root, "src"))
	require.True(t, os.IsNotExist(statErr))
	_, err = os.Stat(filepath.Join(root, "dest", "f.dat"))
	require.NoError(t, err)
}

func TestRunDeleteFolderIfEmptyOnlyWhenNoFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty", "subdir"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "nonempty"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "nonempty", "f.dat"), []byte("x"), 0644))

	err := Run(root, []byte("[DeleteFolderIfEmpty]\nempty = \nnonempty = \n"), nil)
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(root, "empty"))
	require.True(t, os.IsNotExist(statErr), "folder with only subdirectories counts as empty")

	_, err = os.Stat(filepath.Join(root, "nonempty"))
	require.NoError(t, err, "folder containing a file must survive")
}

func TestRunCreateFolder(t *testing.T) {
	root := t.TempDir()
	err := Run(root, []byte("[CreateFolder]\nnew/deep/dir = \n"), nil)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(root, "new", "deep", "dir"))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestRunIgnoresMissingSources(t *testing.T) {
	root := t.TempDir()
	err := Run(root, []byte("[Rename]\nmissing.dat = elsewhere.dat\n[RenameFolder]\nmissingdir = elsewhere\n"), nil)
	require.NoError(t, err, "missing sources are ignored, not errors")
}
