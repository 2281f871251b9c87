package orchestrator

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	xe "github.com/opst/alrun/pkg/errors"
)

// WriteOnce writes content into the file at path, unless the file exists.
//
// Parent directories are created as needed.
//
// # Returns
//
// - bool: true if the file is written. false if the file exists and is left untouched.
//
// - error
//
// There are no locks across processes.
// When two processes write the same path, one of them wins and the other leaves it.
func WriteOnce(path string, content []byte) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, xe.WrapWithNote(path, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	} else if err != nil {
		return false, xe.WrapWithNote(path, err)
	}

	_, werr := f.Write(content)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		// partially written file should not be kept. next run retries.
		os.Remove(path)
		return false, xe.WrapWithNote(path, err)
	}
	return true, nil
}
