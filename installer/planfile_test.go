package installer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPlanFileParsesKnownFieldsAndIgnoresUnknown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")
	body := `{
		"components": {"MasterServer": true, "WebServer": true},
		"ports": {"MasterServer": 13500, "WebServer": 13501},
		"targetInstallPath": "/opt/cqc",
		"sourceImagePath": "/opt/cqc-image",
		"futureFieldNotYetSupported": "ignored"
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	plan, err := ReadPlanFile(path)
	require.NoError(t, err)

	assert.True(t, plan.Enabled(MasterServer))
	assert.True(t, plan.Enabled(WebServer))
	assert.False(t, plan.Enabled(EventServer))
	assert.Equal(t, 13500, plan.Ports[MasterServer])
	assert.Equal(t, "/opt/cqc", plan.TargetInstallPath)
}

func TestReadPlanFileRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := ReadPlanFile(path)
	require.Error(t, err)
}
