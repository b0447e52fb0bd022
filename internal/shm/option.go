package shm

import (
	"os"
	"path/filepath"
	"strings"
)

// EnvDir overrides the directory that backs segments.
const EnvDir = "MARKETSHM_SHM_DIR"

const devShm = "/dev/shm"

type options struct {
	dir  string
	peer bool
}

// Option customizes Create and Attach.
type Option func(*options)

// WithDir places the segment files in dir instead of the default location.
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// AsPeer attaches with write capability and no unlink ownership.
func AsPeer() Option {
	return func(o *options) {
		o.peer = true
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.dir == "" {
		o.dir = DefaultDir()
	}
	return o
}

// DefaultDir returns MARKETSHM_SHM_DIR, /dev/shm when present, or the
// temporary directory.
func DefaultDir() string {
	if dir := strings.TrimSpace(os.Getenv(EnvDir)); dir != "" {
		return dir
	}
	if info, err := os.Stat(devShm); err == nil && info.IsDir() {
		return devShm
	}
	return os.TempDir()
}

func segmentPath(dir, name string) string {
	return filepath.Join(dir, name)
}
