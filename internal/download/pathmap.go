package download

import (
	"path/filepath"
	"strings"
)

// PathMapping rewrites storage paths reported by a remote download client
// into paths valid on this machine. Zero value is a no-op.
type PathMapping struct {
	RemotePath string
	LocalPath  string
}

// Apply maps p from the remote prefix to the local prefix. Paths outside the
// remote prefix are returned unchanged. The prefix matches on path
// boundaries only: /downloads covers /downloads/x but not /downloadsfoo.
func (m PathMapping) Apply(p string) string {
	if m.RemotePath == "" || m.LocalPath == "" || p == "" {
		return p
	}
	remote := strings.TrimSuffix(m.RemotePath, "/")
	if p == remote {
		return m.LocalPath
	}
	if !strings.HasPrefix(p, remote+"/") {
		return p
	}
	rel := strings.TrimPrefix(p, remote+"/")
	return filepath.Join(m.LocalPath, rel)
}
