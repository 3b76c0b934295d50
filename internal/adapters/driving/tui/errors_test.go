package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_AreDistinct(t *testing.T) {
	errors := []error{
		ErrMissingSyncEngine,
		ErrMissingStatusReporter,
		ErrInvalidPorts,
	}

	seen := make(map[string]bool)
	for _, err := range errors {
		msg := err.Error()
		assert.False(t, seen[msg], "duplicate error message: %s", msg)
		seen[msg] = true
	}
}

func TestErrors_Messages(t *testing.T) {
	assert.Contains(t, ErrMissingSyncEngine.Error(), "sync engine")
	assert.Contains(t, ErrMissingStatusReporter.Error(), "status reporter")
	assert.Contains(t, ErrInvalidPorts.Error(), "invalid ports")
}
