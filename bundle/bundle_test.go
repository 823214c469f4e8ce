package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("bundle"), 0644))
}

func TestScanRegularTopLevel(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.raucb"))
	touch(t, filepath.Join(dir, "b.raucb"))
	touch(t, filepath.Join(dir, "readme.txt"))

	candidates, err := Scan(dir, "sda1", "override", "raucb")
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.Equal(t, OriginRegular, c.Origin)
		assert.Equal(t, "sda1", c.MountSource)
	}
}

func TestScanNoRecursion(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "subdir")
	require.NoError(t, os.Mkdir(sub, 0755))
	touch(t, filepath.Join(sub, "nested.raucb"))

	candidates, err := Scan(dir, "sda1", "override", "raucb")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestScanOverridePrecedence(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "top.raucb"))
	overrideDir := filepath.Join(dir, "override")
	require.NoError(t, os.Mkdir(overrideDir, 0755))
	touch(t, filepath.Join(overrideDir, "downgrade.raucb"))

	candidates, err := Scan(dir, "sda1", "override", "raucb")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, OriginOverride, candidates[0].Origin)
	assert.Equal(t, filepath.Join(overrideDir, "downgrade.raucb"), candidates[0].Path)
}

func TestScanOverrideAmbiguousYieldsNone(t *testing.T) {
	dir := t.TempDir()
	overrideDir := filepath.Join(dir, "override")
	require.NoError(t, os.Mkdir(overrideDir, 0755))
	touch(t, filepath.Join(overrideDir, "one.raucb"))
	touch(t, filepath.Join(overrideDir, "two.raucb"))
	touch(t, filepath.Join(dir, "top.raucb"))

	candidates, err := Scan(dir, "sda1", "override", "raucb")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestScanOverrideEmptyFallsThroughToRegular(t *testing.T) {
	dir := t.TempDir()
	overrideDir := filepath.Join(dir, "override")
	require.NoError(t, os.Mkdir(overrideDir, 0755))
	touch(t, filepath.Join(dir, "top.raucb"))

	candidates, err := Scan(dir, "sda1", "override", "raucb")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, OriginRegular, candidates[0].Origin)
}

func TestScanIgnoresSymlinks(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real.raucb")
	touch(t, real)
	link := filepath.Join(dir, "link.raucb")
	require.NoError(t, os.Symlink(real, link))

	candidates, err := Scan(dir, "sda1", "override", "raucb")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, real, candidates[0].Path)
}

func TestScanNoOverrideDirPresent(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "only.raucb"))

	candidates, err := Scan(dir, "sda1", "nonexistent-override", "raucb")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, OriginRegular, candidates[0].Origin)
}
