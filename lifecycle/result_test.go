package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResultRetryClampsDelay(t *testing.T) {
	cases := []struct {
		name  string
		input time.Duration
		want  time.Duration
	}{
		{"zero uses default", 0, DefaultRetryDelay},
		{"below minimum clamps up", 200 * time.Millisecond, MinRetryDelay},
		{"above maximum clamps down", 30 * time.Second, MaxRetryDelay},
		{"within range unchanged", 5 * time.Second, 5 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := ResultRetry(tc.input, nil)
			assert.Equal(t, Retry, r.Outcome)
			assert.Equal(t, tc.want, r.Delay)
		})
	}
}

func TestResultConstructors(t *testing.T) {
	assert.Equal(t, Success, ResultSuccess().Outcome)

	cause := errors.New("boom")
	failed := ResultFailed(cause)
	assert.Equal(t, Failed, failed.Outcome)
	assert.Same(t, cause, failed.Err)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "Success", Success.String())
	assert.Equal(t, "Retry", Retry.String())
	assert.Equal(t, "Failed", Failed.String())
	assert.Equal(t, "Unknown", Outcome(99).String())
}
