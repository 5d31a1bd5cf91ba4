// Package filestore reads and writes the application's JSON state files.
//
// Every write replaces the whole file: the new content goes to a temporary file
// in the same directory, is fsynced, and is renamed over the target. Readers
// never observe a partially written file. Locking is the caller's job; each
// store guards its own file(s) with a mutex.
package filestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrCorrupt is returned by ReadJSON when the file exists but cannot be decoded.
var ErrCorrupt = errors.New("corrupt state file")

const (
	tempSuffix    = ".tmp"
	backupSuffix  = ".bak"
	corruptSuffix = ".corrupt-"
)

// ReadJSON decodes the file at path into v. A missing file returns an error
// wrapping os.ErrNotExist; empty or unparsable content returns one wrapping ErrCorrupt.
// The corrupt file is left in place.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%s: empty file: %w", path, ErrCorrupt)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %v: %w", path, err, ErrCorrupt)
	}
	return nil
}

// WriteJSON atomically replaces path with the pretty-printed JSON encoding of v.
// Missing parent directories are created.
func WriteJSON(path string, v any) error {
	temporaryPath, err := stage(path, v)
	if err != nil {
		return err
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming %s into place: %w", path, err)
	}
	syncDir(filepath.Dir(path))
	return nil
}

// Remove deletes path. Removing a file that does not exist is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// Quarantine moves a corrupt file aside to <path>.corrupt-<unix nanos> so that a
// following write does not destroy it, and returns the new name. A missing
// file is not an error and returns "".
func Quarantine(path string, now time.Time) (string, error) {
	aside := fmt.Sprintf("%s%s%d", path, corruptSuffix, now.UnixNano())
	if err := os.Rename(path, aside); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("moving corrupt %s aside: %w", path, err)
	}
	syncDir(filepath.Dir(path))
	return aside, nil
}

// Pending is one file of a multi-file Commit.
type Pending struct {
	Path  string
	Value any
}

// Commit replaces several files as one unit. All new contents are staged and
// fsynced first; if staging any of them fails nothing is touched. The staged
// files are then renamed into place in order, keeping a backup of each previous
// version; if a rename fails the files already replaced are restored from
// their backups.
func Commit(writes ...Pending) error {
	staged := make([]string, 0, len(writes))
	cleanup := func() {
		for _, p := range staged {
			os.Remove(p)
		}
	}
	for _, w := range writes {
		tmp, err := stage(w.Path, w.Value)
		if err != nil {
			cleanup()
			return err
		}
		staged = append(staged, tmp)
	}

	type applied struct {
		path      string
		hadBackup bool
	}
	done := make([]applied, 0, len(writes))
	rollback := func() {
		for i := len(done) - 1; i >= 0; i-- {
			a := done[i]
			if a.hadBackup {
				os.Rename(a.path+backupSuffix, a.path)
			} else {
				os.Remove(a.path)
			}
		}
	}

	for i, w := range writes {
		hadBackup := false
		if _, err := os.Stat(w.Path); err == nil {
			if err := os.Rename(w.Path, w.Path+backupSuffix); err != nil {
				rollback()
				cleanup()
				return fmt.Errorf("backing up %s: %w", w.Path, err)
			}
			hadBackup = true
		}
		if err := os.Rename(staged[i], w.Path); err != nil {
			if hadBackup {
				os.Rename(w.Path+backupSuffix, w.Path)
			}
			rollback()
			cleanup()
			return fmt.Errorf("renaming %s into place: %w", w.Path, err)
		}
		done = append(done, applied{path: w.Path, hadBackup: hadBackup})
	}

	for _, a := range done {
		if a.hadBackup {
			os.Remove(a.path + backupSuffix)
		}
		syncDir(filepath.Dir(a.path))
	}
	return nil
}

// stage writes the encoding of v next to path and returns the temporary file name.
func stage(path string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling %s: %w", path, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating directory for %s: %w", path, err)
	}

	temporaryPath := path + tempSuffix
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return "", fmt.Errorf("writing temporary file for %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return "", fmt.Errorf("syncing temporary file for %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return "", fmt.Errorf("closing temporary file for %s: %w", path, err)
	}
	return temporaryPath, nil
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err == nil {
		d.Sync()
		d.Close()
	}
}
