package installer

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbePortFreeOnOpenPort(t *testing.T) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	assert.True(t, ProbePortFree(port, HostFamilies{IPv4: true}))
}

func TestProbePortFreeDetectsBusyPort(t *testing.T) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	assert.False(t, ProbePortFree(port, HostFamilies{IPv4: true}))
}

func TestProbePortFreeIgnoresUnsupportedFamily(t *testing.T) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	// Host reports no IP family available; the busy IPv4 port is irrelevant.
	assert.True(t, ProbePortFree(port, HostFamilies{IPv6: false, IPv4: false}))
}
