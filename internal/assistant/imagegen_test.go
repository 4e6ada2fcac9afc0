package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImageEngineRequiresKey(t *testing.T) {
	_, err := NewImageEngine("", "gemini-2.5-flash-image")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}
