package cqcerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindTransientDependency, "dep down", cause)

	require.Error(t, err)
	assert.Same(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "dep down")
	assert.Contains(t, err.Error(), "boom")
}

func TestWithDetailChaining(t *testing.T) {
	err := New(KindFatalConfig, "bad port").WithDetail("field", "Port").WithDetail("value", -1)

	assert.Equal(t, "Port", err.Details["field"])
	assert.Equal(t, -1, err.Details["value"])
}

func TestIsAndKindOf(t *testing.T) {
	err := TransientDependency("nameservice", errors.New("timeout"))

	assert.True(t, Is(err, KindTransientDependency))
	assert.False(t, Is(err, KindFatalConfig))
	assert.Equal(t, KindTransientDependency, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestConstructors(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		kind Kind
	}{
		{"fatal config", FatalConfig("Port", "duplicate port"), KindFatalConfig},
		{"infra failure", InfrastructureFailure("LoadConfig", errors.New("disk full")), KindInfrastructureFailure},
		{"plan rejection", PlanRejection("R4", "port 13502 claimed twice"), KindPlanRejection},
		{"cleanup fault", CleanupFault("StartRebinder", errors.New("unreachable")), KindCleanupFault},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.err.Kind)
		})
	}
}
