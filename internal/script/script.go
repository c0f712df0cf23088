// Package script interprets the declarative preupdateexec / updateexec
// mutation files: an ordered set of INI sections describing file and
// folder operations against the installation.
package script

import (
	"os"
	"path/filepath"

	"github.com/nightforge/patchwright/internal/applog"
	"github.com/nightforge/patchwright/internal/manifest"

	"gopkg.in/ini.v1"
)

const (
	sectionDelete             = "Delete"
	sectionRename             = "Rename"
	sectionRenameFolder       = "RenameFolder"
	sectionRenameAndMerge     = "RenameAndMerge"
	sectionDeleteFolder       = "DeleteFolder"
	sectionForceDeleteFolder  = "ForceDeleteFolder"
	sectionDeleteFolderIfEmpty = "DeleteFolderIfEmpty"
	sectionCreateFolder       = "CreateFolder"
)

// Run parses scriptData as an INI file and applies its sections against
// root, in a fixed order. Every step catches and logs its own error; a
// failure in one key never aborts the script.
func Run(root string, scriptData []byte, log *applog.Logger) error {
	if log == nil {
		log = applog.Nop()
	}
	f, err := manifest.LoadINI(scriptData)
	if err != nil {
		log.Warnf("script: failed to parse: %v", err)
		return nil
	}

	runDelete(root, f, log)
	runRename(root, f, log)
	runRenameFolder(root, f, log)
	runRenameAndMerge(root, f, log)
	runDeleteFolder(root, f, log, sectionDeleteFolder)
	runDeleteFolder(root, f, log, sectionForceDeleteFolder)
	runDeleteFolderIfEmpty(root, f, log)
	runCreateFolder(root, f, log)

	return nil
}

func abs(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

func runDelete(root string, f *ini.File, log *applog.Logger) {
	if !f.HasSection(sectionDelete) {
		return
	}
	for _, key := range f.Section(sectionDelete).Keys() {
		path := abs(root, key.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warnf("script: delete %s: %v", path, err)
		}
	}
}

func runRename(root string, f *ini.File, log *applog.Logger) {
	if !f.HasSection(sectionRename) {
		return
	}
	for _, key := range f.Section(sectionRename).Keys() {
		src := abs(root, key.Name())
		dst := abs(root, key.Value())
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			log.Warnf("script: rename mkdir %s: %v", dst, err)
			continue
		}
		if err := os.Rename(src, dst); err != nil {
			log.Warnf("script: rename %s -> %s: %v", src, dst, err)
		}
	}
}

func runRenameFolder(root string, f *ini.File, log *applog.Logger) {
	if !f.HasSection(sectionRenameFolder) {
		return
	}
	for _, key := range f.Section(sectionRenameFolder).Keys() {
		renameFolder(root, key.Name(), key.Value(), log)
	}
}

func renameFolder(root, srcRel, dstRel string, log *applog.Logger) {
	src := abs(root, srcRel)
	dst := abs(root, dstRel)
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		log.Warnf("script: rename folder mkdir %s: %v", dst, err)
		return
	}
	if err := os.Rename(src, dst); err != nil {
		log.Warnf("script: rename folder %s -> %s: %v", src, dst, err)
	}
}

func runRenameAndMerge(root string, f *ini.File, log *applog.Logger) {
	if !f.HasSection(sectionRenameAndMerge) {
		return
	}
	for _, key := range f.Section(sectionRenameAndMerge).Keys() {
		srcRel, destDirRel := key.Name(), key.Value()
		src := abs(root, srcRel)
		destDir := abs(root, destDirRel)

		if _, err := os.Stat(destDir); os.IsNotExist(err) {
			renameFolder(root, srcRel, destDirRel, log)
			continue
		}

		entries, err := os.ReadDir(src)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Warnf("script: renameAndMerge read %s: %v", src, err)
			}
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			srcFile := filepath.Join(src, entry.Name())
			destFile := filepath.Join(destDir, entry.Name())
			if _, err := os.Stat(destFile); err == nil {
				if err := os.Remove(srcFile); err != nil {
					log.Warnf("script: renameAndMerge delete %s: %v", srcFile, err)
				}
				continue
			}
			if err := os.Rename(srcFile, destFile); err != nil {
				log.Warnf("script: renameAndMerge move %s -> %s: %v", srcFile, destFile, err)
			}
		}
	}
}

func runDeleteFolder(root string, f *ini.File, log *applog.Logger, section string) {
	if !f.HasSection(section) {
		return
	}
	for _, key := range f.Section(section).Keys() {
		path := abs(root, key.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Warnf("script: %s %s: %v", section, path, err)
		}
	}
}

func runDeleteFolderIfEmpty(root string, f *ini.File, log *applog.Logger) {
	if !f.HasSection(sectionDeleteFolderIfEmpty) {
		return
	}
	for _, key := range f.Section(sectionDeleteFolderIfEmpty).Keys() {
		path := abs(root, key.Name())
		entries, err := os.ReadDir(path)
		if err != nil {
			continue
		}
		hasFile := false
		for _, e := range entries {
			if !e.IsDir() {
				hasFile = true
				break
			}
		}
		if hasFile {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			log.Warnf("script: deleteFolderIfEmpty %s: %v", path, err)
		}
	}
}

func runCreateFolder(root string, f *ini.File, log *applog.Logger) {
	if !f.HasSection(sectionCreateFolder) {
		return
	}
	for _, key := range f.Section(sectionCreateFolder).Keys() {
		path := abs(root, key.Name())
		if err := os.MkdirAll(path, 0755); err != nil {
			log.Warnf("script: createFolder %s: %v", path, err)
		}
	}
}
