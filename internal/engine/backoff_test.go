package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextDelay_DoublesToCap(t *testing.T) {
	cap := 30 * time.Second
	d := 2 * time.Second

	var schedule []time.Duration
	for i := 0; i < 6; i++ {
		d = nextDelay(d, cap)
		schedule = append(schedule, d)
	}
	assert.Equal(t, []time.Duration{
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}, schedule)
}
