package annotation

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/annotation.report/internal/fsutil"
)

// BackupSuffix is inserted before the extension of backup copies.
const BackupSuffix = "_backup"

// ListFiles returns the annotation workbooks in dir, sorted by name. Office
// lock files (~$...) and backup copies are skipped.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && isWorkbookName(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ListFilesRecursive is ListFiles over dir and every directory below it.
func ListFilesRecursive(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isWorkbookName(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func isWorkbookName(name string) bool {
	if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return false
	}
	return !strings.HasPrefix(name, "~$") && !IsBackup(name)
}

// IsBackup reports whether name looks like a file written by Backup.
func IsBackup(name string) bool {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.HasSuffix(stem, BackupSuffix)
}

// BackupPath returns <dir>/<stem>_backup<ext> for path.
func BackupPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + BackupSuffix + ext
}

// Backup copies path next to itself as BackupPath(path) and returns the
// backup's path. An existing backup is overwritten.
func Backup(fsys fsutil.FileSystem, path string) (string, error) {
	dst := BackupPath(path)
	if err := fsutil.CopyFile(fsys, path, dst); err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	return dst, nil
}
