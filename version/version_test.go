package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassesRegularUpgrade(t *testing.T) {
	ok, err := Passes("1.0.0", "2.0.0", false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPassesRegularTieFails(t *testing.T) {
	ok, err := Passes("1.0.0", "1.0.0", false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPassesRegularDowngradeFails(t *testing.T) {
	ok, err := Passes("2.0.0", "1.5.0", false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPassesOverrideAllowsDowngrade(t *testing.T) {
	ok, err := Passes("2.0.0", "1.0.0", true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPassesUnparsableCandidateFails(t *testing.T) {
	_, err := Passes("1.0.0", "not-a-version", false)
	assert.Error(t, err)
}

func TestPassesUnparsableCurrentFails(t *testing.T) {
	_, err := Passes("not-a-version", "1.0.0", false)
	assert.Error(t, err)
}

func TestPassesUnknownCurrentBlocksRegularUpgrade(t *testing.T) {
	ok, err := Passes(Unknown, "1.0.0", false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPassesUnknownCurrentNeverBlocksOverride(t *testing.T) {
	ok, err := Passes(Unknown, "1.0.0", true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHighestBreaksTiesByCallerOrder(t *testing.T) {
	idx, err := Highest([]string{"1.5.0", "2.0.1", "2.0.1"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestHighestSingleEntry(t *testing.T) {
	idx, err := Highest([]string{"3.0.0"})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestHighestEmpty(t *testing.T) {
	_, err := Highest(nil)
	assert.Error(t, err)
}
