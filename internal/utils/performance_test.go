package utils

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestTimerMeasuresDuration(t *testing.T) {
	timer := NewTimer("test_op", zerolog.Nop())
	time.Sleep(10 * time.Millisecond)
	d := timer.Stop()

	assert.GreaterOrEqual(t, d, 10*time.Millisecond)
	assert.Less(t, d, time.Second)
}
