package hyperspace

import (
	"fmt"
	"os"
)

const backupSuffix = ".vanilla"

// Backups keeps pristine copies of the files the installer overwrites, next to
// the originals with a ".vanilla" suffix.
type Backups struct{}

func backupPath(file string) string {
	return file + backupSuffix
}

// Backup copies file to its backup sibling unless one already exists, so the
// first backup taken always holds the unmodified original.
func (Backups) Backup(file string) (created bool, err error) {
	dst := backupPath(file)
	if _, err := os.Lstat(dst); err == nil {
		return false, nil
	}
	if err := copyFile(file, dst); err != nil {
		os.Remove(dst)
		return false, fmt.Errorf("%w: backup %s: %v", ErrFileCopy, file, err)
	}
	return true, nil
}

// HasBackup reports whether file has a backup sibling.
func (Backups) HasBackup(file string) bool {
	return fileExists(backupPath(file))
}

// Restore replaces file with its backup. The backup itself is kept, and
// file is untouched when the copy fails.
func (b Backups) Restore(file string) error {
	src := backupPath(file)
	if !b.HasBackup(file) {
		return fmt.Errorf("%w: %s", ErrBackupMissing, src)
	}
	if err := copyFileAtomic(src, file); err != nil {
		return fmt.Errorf("%w: restore %s: %v", ErrFileCopy, file, err)
	}
	return nil
}

// Rollback undoes a failed install as far as the manifest is concerned. The
// data archive backup is left for uninstall to restore.
func (b Backups) Rollback(t Target) error {
	manifest := t.ManifestPath()
	if !b.HasBackup(manifest) {
		return nil
	}
	return b.Restore(manifest)
}
