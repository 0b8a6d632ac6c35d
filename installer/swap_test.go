package installer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Keep the tests fast; production uses the full 500ms settle delay.
	fsSettleDelay = time.Millisecond
}

func TestRecoveryDirNameFormat(t *testing.T) {
	at := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	name := RecoveryDirName(Version{Major: 5, Minor: 1, Revision: 2}, at)
	assert.Equal(t, "CQCBackup-20260730_120000-5_1_2", name)
}

func TestSwapPromotesStagingAndPreservesRecovery(t *testing.T) {
	parent := t.TempDir()
	canonical := filepath.Join(parent, "CQC")
	staging := filepath.Join(parent, "CQC-staging")

	require.NoError(t, os.MkdirAll(canonical, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(canonical, "marker.txt"), []byte("old"), 0o644))
	require.NoError(t, os.MkdirAll(staging, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "marker.txt"), []byte("new"), 0o644))

	oldVersion := Version{Major: 5, Minor: 0, Revision: 0}
	now := time.Date(2026, 7, 30, 9, 30, 0, 0, time.UTC)

	require.NoError(t, Swap(staging, canonical, oldVersion, now))

	content, err := os.ReadFile(filepath.Join(canonical, "marker.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))

	recoveryPath := filepath.Join(parent, RecoveryDirName(oldVersion, now))
	recoveredContent, err := os.ReadFile(filepath.Join(recoveryPath, "marker.txt"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(recoveredContent))
}

func TestSwapWithNoPriorInstallSkipsRecovery(t *testing.T) {
	parent := t.TempDir()
	canonical := filepath.Join(parent, "CQC")
	staging := filepath.Join(parent, "CQC-staging")

	require.NoError(t, os.MkdirAll(staging, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "marker.txt"), []byte("new"), 0o644))

	now := time.Date(2026, 7, 30, 9, 30, 0, 0, time.UTC)
	require.NoError(t, Swap(staging, canonical, Version{}, now))

	content, err := os.ReadFile(filepath.Join(canonical, "marker.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
}

// TestSwapUnwindsOnFailedPromotion covers scenario 6: if the second
// rename fails, the previous tree is restored to canonicalPath rather
// than left missing.
func TestSwapUnwindsOnFailedPromotion(t *testing.T) {
	parent := t.TempDir()
	canonical := filepath.Join(parent, "CQC")
	require.NoError(t, os.MkdirAll(canonical, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(canonical, "marker.txt"), []byte("old"), 0o644))

	// A staging path that does not exist makes the promotion rename fail
	// after the recovery rename has already succeeded.
	missingStaging := filepath.Join(parent, "does-not-exist")

	oldVersion := Version{Major: 5, Minor: 0, Revision: 0}
	now := time.Date(2026, 7, 30, 9, 30, 0, 0, time.UTC)

	err := Swap(missingStaging, canonical, oldVersion, now)
	require.Error(t, err)

	content, readErr := os.ReadFile(filepath.Join(canonical, "marker.txt"))
	require.NoError(t, readErr)
	assert.Equal(t, "old", string(content))

	recoveryPath := filepath.Join(parent, RecoveryDirName(oldVersion, now))
	_, statErr := os.Stat(recoveryPath)
	assert.True(t, os.IsNotExist(statErr))
}
