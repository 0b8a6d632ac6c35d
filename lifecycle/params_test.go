package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cqcsystem/cqcsrv/pkg/cqcerrors"
)

func TestParseArgsBuiltins(t *testing.T) {
	pp, err := ParseArgs([]string{"/Port=13502", "/Max=50"})
	require.NoError(t, err)
	assert.Equal(t, 13502, pp.Port)
	assert.Equal(t, 50, pp.Max)
	assert.Empty(t, pp.Forwarded)
}

func TestParseArgsMaxClampedToCeiling(t *testing.T) {
	pp, err := ParseArgs([]string{"/Max=999999"})
	require.NoError(t, err)
	assert.Equal(t, maxClientCeiling, pp.Max)
}

func TestParseArgsForwardsUnknown(t *testing.T) {
	pp, err := ParseArgs([]string{"/Verbose=2", "/Foo"})
	require.NoError(t, err)
	require.Len(t, pp.Forwarded, 2)
	assert.Equal(t, ParamPair{Key: "Verbose", Value: "2"}, pp.Forwarded[0])
	assert.Equal(t, ParamPair{Key: "Foo"}, pp.Forwarded[1])
}

func TestParseArgsRejectsNonSlash(t *testing.T) {
	_, err := ParseArgs([]string{"Port=13502"})
	require.Error(t, err)
	assert.Equal(t, cqcerrors.KindFatalConfig, cqcerrors.KindOf(err))
}

func TestParseArgsRejectsBadPort(t *testing.T) {
	_, err := ParseArgs([]string{"/Port=not-a-number"})
	require.Error(t, err)

	_, err = ParseArgs([]string{"/Port=70000"})
	require.Error(t, err)
}

// TestParamRoundTrip exercises L1: recognized keys re-emitted from
// ParsedParams.Forwarded yield the same key set that was passed in,
// modulo the built-ins the engine consumes itself.
func TestParamRoundTrip(t *testing.T) {
	in := []string{"/A=1", "/B=2", "/C"}
	pp, err := ParseArgs(in)
	require.NoError(t, err)

	keys := make([]string, 0, len(pp.Forwarded))
	for _, p := range pp.Forwarded {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"A", "B", "C"}, keys)
}
