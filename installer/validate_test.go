package installer

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allFamilies = HostFamilies{IPv4: true, IPv6: true}

func basicPlan() InstallationPlan {
	return InstallationPlan{
		Components: map[Component]bool{
			MasterServer: true,
			WebServer:    true,
		},
		Ports: map[Component]int{
			MasterServer: 13500,
			WebServer:    13501,
		},
	}
}

// TestR1RejectsEventServerWithoutMaster covers P7.
func TestR1RejectsEventServerWithoutMaster(t *testing.T) {
	plan := InstallationPlan{
		Components: map[Component]bool{EventServer: true},
		Ports:      map[Component]int{EventServer: 13510},
	}
	err := Validate(plan, allFamilies)
	require.Error(t, err)

	ve, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.True(t, hasRule(ve, "R1"))
}

// TestR2RejectsMasterWithoutWebServer covers P7.
func TestR2RejectsMasterWithoutWebServer(t *testing.T) {
	plan := InstallationPlan{
		Components: map[Component]bool{MasterServer: true},
		Ports:      map[Component]int{MasterServer: 13500},
	}
	err := Validate(plan, allFamilies)
	require.Error(t, err)

	ve, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.True(t, hasRule(ve, "R2"))
}

func TestR3RejectsEmptyPlan(t *testing.T) {
	err := Validate(InstallationPlan{}, allFamilies)
	require.Error(t, err)
	ve, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.True(t, hasRule(ve, "R3"))
}

// TestR4RejectsDuplicatePorts covers P6 and scenario 3.
func TestR4RejectsDuplicatePorts(t *testing.T) {
	plan := InstallationPlan{
		Components: map[Component]bool{
			MasterServer: true,
			WebServer:    true,
			DeviceHost:   true,
		},
		Ports: map[Component]int{
			MasterServer: 13500,
			WebServer:    13502,
			DeviceHost:   13502,
		},
	}
	err := Validate(plan, allFamilies)
	require.Error(t, err)
	ve, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.True(t, hasRule(ve, "R4"))
}

// TestValidPlanPasses ensures a correct plan is accepted.
func TestValidPlanPasses(t *testing.T) {
	err := Validate(basicPlan(), allFamilies)
	assert.NoError(t, err)
}

// TestR5RejectsPortInUse covers scenario 4: port busy on IPv4 fails
// regardless of IPv6 availability.
func TestR5RejectsPortInUse(t *testing.T) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	busyPort := l.Addr().(*net.TCPAddr).Port

	plan := InstallationPlan{
		Components: map[Component]bool{MasterServer: true, WebServer: true},
		Ports:      map[Component]int{MasterServer: busyPort, WebServer: busyPort + 1},
	}
	// Force the probe to collide with the already-bound listener by
	// reusing its exact port for MasterServer.
	err = Validate(plan, HostFamilies{IPv4: true})
	require.Error(t, err)
	ve, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.True(t, hasRule(ve, "R5"))
}

func hasRule(ve *ValidationError, rule string) bool {
	for _, v := range ve.Violations {
		if v.Details["rule"] == rule {
			return true
		}
	}
	return false
}
