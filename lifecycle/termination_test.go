package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminationEventSignalIdempotent(t *testing.T) {
	te, err := NewTerminationEvent("CQC", "TestServer", "CoreAdmin")
	require.NoError(t, err)
	defer te.Destroy()

	assert.False(t, te.IsSignaled())

	te.Signal()
	te.Signal() // P5/L2-adjacent: calling twice must not panic or block

	assert.True(t, te.IsSignaled())
	select {
	case <-te.Signaled():
	default:
		t.Fatal("expected Signaled() channel to be closed")
	}
}

func TestTerminationEventDestroyAfterSignal(t *testing.T) {
	te, err := NewTerminationEvent("CQC", "TestServer2", "CoreAdmin")
	require.NoError(t, err)

	te.Signal()
	assert.NotPanics(t, func() { te.Destroy() })
}
