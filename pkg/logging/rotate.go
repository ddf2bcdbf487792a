// Package logging provides the rotating log file used when logs go to disk
// instead of stderr.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	maxFileSize = 10 * 1024 * 1024
	maxBackups  = 3
)

// RotatingFile is an io.WriteCloser that renames the file aside and starts a
// fresh one once it grows past the size limit. Up to maxBackups old files are
// kept as <path>.1 (newest) through <path>.3.
type RotatingFile struct {
	path string

	mu   sync.Mutex
	file *os.File
	size int64
}

func NewRotatingFile(path string) (*RotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	r := &RotatingFile{path: path}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RotatingFile) open() error {
	file, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}

	r.file = file
	r.size = info.Size()
	return nil
}

func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size+int64(len(p)) > maxFileSize {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

func (r *RotatingFile) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}

	// Shift backups up, dropping the oldest.
	os.Remove(fmt.Sprintf("%s.%d", r.path, maxBackups))
	for i := maxBackups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", r.path, i), fmt.Sprintf("%s.%d", r.path, i+1))
	}
	if err := os.Rename(r.path, r.path+".1"); err != nil && !os.IsNotExist(err) {
		return err
	}

	r.size = 0
	return r.open()
}
