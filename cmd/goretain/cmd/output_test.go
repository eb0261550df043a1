package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPad(t *testing.T) {
	assert.Equal(t, "abc   ", pad("abc", 6))
	assert.Equal(t, "abc", pad("abc", 3))
	assert.Equal(t, "abcdef", pad("abcdef", 4))
}

func TestColumnWidth(t *testing.T) {
	assert.Equal(t, 8, columnWidth("Category", nil))
	assert.Equal(t, 13, columnWidth("Category", []string{"session_data", "user_profiles"}))
}

func TestStatusText_PassesThroughUnknown(t *testing.T) {
	assert.Equal(t, "PENDING", statusText("PENDING"))
}

func TestStatusText_KnownStatuses(t *testing.T) {
	// Colored output still contains the status text itself.
	for _, status := range []string{"COMPLIANT", "COMPLETED", "NEEDS_ATTENTION", "PARTIAL", "HELD"} {
		assert.Contains(t, statusText(status), status)
	}
}
