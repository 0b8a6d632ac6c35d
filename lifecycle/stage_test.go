package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageOrdering(t *testing.T) {
	s := Start
	count := 1
	for {
		next, more := s.Next()
		if !more {
			break
		}
		require.Greater(t, int(next), int(s))
		s = next
		count++
	}
	assert.Equal(t, Ready, s)
	assert.Equal(t, int(Ready)+1, count)
}

func TestStageReverseOrdering(t *testing.T) {
	s := Ready
	count := 1
	for {
		prev, more := s.Prev()
		if !more {
			break
		}
		require.Less(t, int(prev), int(s))
		s = prev
		count++
	}
	assert.Equal(t, Start, s)
	assert.Equal(t, int(Ready)+1, count)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "Start", Start.String())
	assert.Equal(t, "Ready", Ready.String())
	assert.Equal(t, "Unknown", Stage(999).String())
}
