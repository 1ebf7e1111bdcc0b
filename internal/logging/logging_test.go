package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerbosityFromLevel(t *testing.T) {
	assert.Equal(t, 0, VerbosityFromLevel("error"))
	assert.Equal(t, 1, VerbosityFromLevel("warning"))
	assert.Equal(t, 2, VerbosityFromLevel("info"))
	assert.Equal(t, 3, VerbosityFromLevel("debug"))
	assert.Equal(t, 2, VerbosityFromLevel("unknown"))
	assert.Equal(t, 2, VerbosityFromLevel(""))
}

func TestGetReturnsNamedLogger(t *testing.T) {
	logger := Get("checkdp.test")
	assert.NotNil(t, logger)
}
