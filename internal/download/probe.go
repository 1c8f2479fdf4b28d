package download

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Probe timeouts. Stat on an unavailable network mount can hang far longer
// than any HTTP timeout, so every stat races a timer.
const (
	probeFileTimeout   = 3 * time.Second
	probeParentTimeout = time.Second
)

var errProbeTimeout = errors.New("stat timed out")

type statFunc func(string) (os.FileInfo, error)

// statTimeout runs stat in a goroutine and abandons it when the timer fires.
// The goroutine is leaked on timeout; that is the point - a hung NFS stat
// cannot be cancelled, only walked away from.
func statTimeout(path string, stat statFunc, timeout time.Duration) (os.FileInfo, error) {
	type statResult struct {
		info os.FileInfo
		err  error
	}
	ch := make(chan statResult, 1)
	go func() {
		info, err := stat(path)
		ch <- statResult{info, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r.info, r.err
	case <-timer.C:
		return nil, errProbeTimeout
	}
}

// probePath checks that a completed download's path is accessible.
// Returns nil when the path exists, otherwise one of three diagnostics:
// ErrPathNotResponding when stat hangs, ErrFileMissing when the path is gone
// but its parent exists, ErrMountAbsent when the parent is gone too.
func probePath(path string, stat statFunc, fileTimeout, parentTimeout time.Duration) error {
	_, err := statTimeout(path, stat, fileTimeout)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errProbeTimeout):
		return fmt.Errorf("%s: %w", path, ErrPathNotResponding)
	case os.IsNotExist(err):
		parent := filepath.Dir(path)
		if _, perr := statTimeout(parent, stat, parentTimeout); perr != nil {
			return fmt.Errorf("%s: %w", parent, ErrMountAbsent)
		}
		return fmt.Errorf("%s: %w", path, ErrFileMissing)
	default:
		return fmt.Errorf("probe %s: %w", path, err)
	}
}

// defaultProbe probes with os.Stat and the standard timeouts.
func defaultProbe(path string) error {
	return probePath(path, os.Stat, probeFileTimeout, probeParentTimeout)
}
