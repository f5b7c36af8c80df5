package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "-", formatSize(-1))
	assert.Equal(t, "0 B", formatSize(0))
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 MB", formatSize(1_500_000))
}

func TestParseFileID(t *testing.T) {
	id, err := parseFileID("42")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "abc", "1.5"} {
		_, err := parseFileID(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
