package download

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusQueued, StatusDownloading, true},
		{StatusQueued, StatusCompleted, false},
		{StatusDownloading, StatusPaused, true},
		{StatusDownloading, StatusImporting, true},
		{StatusPaused, StatusDownloading, true},
		{StatusImporting, StatusCompleted, true},
		{StatusImporting, StatusFailed, true},
		// importing never regresses to queue-side states
		{StatusImporting, StatusDownloading, false},
		{StatusImporting, StatusQueued, false},
		// terminal states go nowhere
		{StatusCompleted, StatusImporting, false},
		{StatusFailed, StatusQueued, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusImporting.IsTerminal())
	assert.False(t, StatusDownloading.IsTerminal())
}

func TestStatusIsActive(t *testing.T) {
	for _, s := range []Status{StatusQueued, StatusDownloading, StatusPaused, StatusImporting} {
		assert.True(t, s.IsActive(), "%s", s)
	}
	assert.False(t, StatusCompleted.IsActive())
	assert.False(t, StatusFailed.IsActive())
}
