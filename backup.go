package ws2md

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const backupStamp = "20060102_150405"

// BackupManager keeps a copy of a rendered file before a re-run replaces it,
// so hand edits to a conversion are never lost.
//
// Backups live next to the output as <name>.<stamp>.bak. A second backup in
// the same second gets a counter (<name>.<stamp>-1.bak) instead of replacing
// the first one.
type BackupManager struct {
	// Keep bounds the backups held per output file. Zero keeps all of them.
	Keep int

	now func() time.Time
}

func NewBackupManager() *BackupManager {
	return &BackupManager{
		now: time.Now,
	}
}

// CreateBackupOf snapshots path if it exists, with the same permission bits.
//
// Returns the path to the backup file, or an empty string if there was nothing
// to back up.
func (bm *BackupManager) CreateBackupOf(path string) (string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("checking output: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("output %s is not a regular file", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading output: %w", err)
	}

	backupPath, err := bm.writeUnique(path, data, info.Mode().Perm())
	if err != nil {
		return "", err
	}
	slog.Debug("created backup", "backup", backupPath, "output", path)

	if bm.Keep > 0 {
		if err := bm.prune(path); err != nil {
			slog.Warn("failed to prune old backups", "output", path, "error", err)
		}
	}
	return backupPath, nil
}

// writeUnique creates the first free backup name, never truncating an
// existing file
func (bm *BackupManager) writeUnique(path string, data []byte, perm fs.FileMode) (string, error) {
	stamp := bm.now().Format(backupStamp)
	for n := 0; ; n++ {
		candidate := fmt.Sprintf("%s.%s.bak", path, stamp)
		if n > 0 {
			candidate = fmt.Sprintf("%s.%s-%d.bak", path, stamp, n)
		}

		f, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating backup: %w", err)
		}

		_, werr := f.Write(data)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			os.Remove(candidate)
			return "", fmt.Errorf("writing backup: %w", werr)
		}
		return candidate, nil
	}
}

// Backups lists the backups of path, oldest first
func (bm *BackupManager) Backups(path string) ([]string, error) {
	dir, name := filepath.Split(path)
	entries, err := os.ReadDir(filepath.Clean(dir))
	if err != nil {
		return nil, err
	}

	type backup struct {
		path  string
		stamp string
		n     int
	}
	var found []backup
	for _, e := range entries {
		rest, ok := strings.CutPrefix(e.Name(), name+".")
		if !ok || e.IsDir() {
			continue
		}
		rest, ok = strings.CutSuffix(rest, ".bak")
		if !ok {
			continue
		}
		stamp, counter, _ := strings.Cut(rest, "-")
		if _, err := time.Parse(backupStamp, stamp); err != nil {
			continue
		}
		n := 0
		if counter != "" {
			if n, err = strconv.Atoi(counter); err != nil {
				continue
			}
		}
		found = append(found, backup{filepath.Join(dir, e.Name()), stamp, n})
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].stamp != found[j].stamp {
			return found[i].stamp < found[j].stamp
		}
		return found[i].n < found[j].n
	})

	backups := make([]string, len(found))
	for i, b := range found {
		backups[i] = b.path
	}
	return backups, nil
}

func (bm *BackupManager) prune(path string) error {
	backups, err := bm.Backups(path)
	if err != nil {
		return err
	}
	var errs []error
	for len(backups) > bm.Keep {
		if err := os.Remove(backups[0]); err != nil {
			errs = append(errs, err)
		}
		backups = backups[1:]
	}
	return errors.Join(errs...)
}
