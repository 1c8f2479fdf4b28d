package download

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathMappingApply(t *testing.T) {
	m := PathMapping{RemotePath: "/downloads", LocalPath: "/mnt/sab/downloads"}

	assert.Equal(t, "/mnt/sab/downloads/complete/Heat.1995", m.Apply("/downloads/complete/Heat.1995"))
	assert.Equal(t, "/mnt/sab/downloads", m.Apply("/downloads"))
	assert.Equal(t, "/other/place", m.Apply("/other/place"))
	assert.Equal(t, "", m.Apply(""))
}

func TestPathMappingPrefixBoundary(t *testing.T) {
	m := PathMapping{RemotePath: "/downloads", LocalPath: "/mnt/sab/downloads"}

	// A sibling directory that merely starts with the prefix is not remapped.
	assert.Equal(t, "/downloadsfoo/x", m.Apply("/downloadsfoo/x"))
	assert.Equal(t, "/downloads2", m.Apply("/downloads2"))
}

func TestPathMappingTrailingSlashRemote(t *testing.T) {
	m := PathMapping{RemotePath: "/downloads/", LocalPath: "/mnt/sab/downloads"}

	assert.Equal(t, "/mnt/sab/downloads/complete", m.Apply("/downloads/complete"))
	assert.Equal(t, "/mnt/sab/downloads", m.Apply("/downloads"))
	assert.Equal(t, "/downloadsfoo", m.Apply("/downloadsfoo"))
}

func TestPathMappingZeroValueIsNoop(t *testing.T) {
	var m PathMapping
	assert.Equal(t, "/downloads/complete", m.Apply("/downloads/complete"))
}
