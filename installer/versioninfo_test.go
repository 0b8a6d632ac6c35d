package installer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCompare(t *testing.T) {
	assert.Equal(t, 0, Version{5, 1, 2}.Compare(Version{5, 1, 2}))
	assert.Equal(t, -1, Version{5, 0, 0}.Compare(Version{5, 1, 0}))
	assert.Equal(t, 1, Version{6, 0, 0}.Compare(Version{5, 9, 9}))
	assert.Equal(t, -1, Version{5, 1, 0}.Compare(Version{5, 1, 1}))
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "5.1.2", Version{Major: 5, Minor: 1, Revision: 2}.String())
}

func TestReadWriteVersionInfoRoundTrip(t *testing.T) {
	dir := t.TempDir()

	_, found, err := ReadVersionInfo(dir)
	require.NoError(t, err)
	assert.False(t, found)

	v := Version{Major: 5, Minor: 2, Revision: 1}
	require.NoError(t, WriteVersionInfo(dir, v))

	got, found, err := ReadVersionInfo(dir)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, v, got)
}

// TestCheckUpgradeEligibilityRejectsBelowMinimum covers spec.md §4.3.2.
func TestCheckUpgradeEligibilityRejectsBelowMinimum(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteVersionInfo(dir, Version{Major: 4, Minor: 9, Revision: 0}))

	err := CheckUpgradeEligibility(dir, Version{Major: 5, Minor: 2, Revision: 0})
	require.Error(t, err)
}

// TestCheckUpgradeEligibilityRejectsRetroVersion covers the "installing
// an older build over a newer one" case.
func TestCheckUpgradeEligibilityRejectsRetroVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteVersionInfo(dir, Version{Major: 5, Minor: 3, Revision: 0}))

	err := CheckUpgradeEligibility(dir, Version{Major: 5, Minor: 2, Revision: 0})
	require.Error(t, err)
}

func TestCheckUpgradeEligibilityAllowsForwardUpgrade(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteVersionInfo(dir, Version{Major: 5, Minor: 1, Revision: 0}))

	err := CheckUpgradeEligibility(dir, Version{Major: 5, Minor: 2, Revision: 0})
	assert.NoError(t, err)
}

func TestCheckUpgradeEligibilityAllowsFreshInstall(t *testing.T) {
	dir := t.TempDir()
	err := CheckUpgradeEligibility(dir, Version{Major: 5, Minor: 2, Revision: 0})
	assert.NoError(t, err)
}
