package sweeper

import (
	"fmt"
	"testing"

	"github.com/fiffu/seatwatch/lib/models"
	"github.com/stretchr/testify/assert"
)

func TestDetectEvent(t *testing.T) {
	tests := []struct {
		prev, curr int
		want       models.EventType
	}{
		{0, 0, models.EventNone},
		{0, 5, models.EventOpen},
		{-1, 1, models.EventOpen},
		{3, 5, models.EventIncrease},
		{5, 5, models.EventNone},
		{5, 3, models.EventNone},
		{5, 0, models.EventNone},
		{1, 2, models.EventIncrease},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d->%d", tt.prev, tt.curr), func(t *testing.T) {
			assert.Equal(t, tt.want, DetectEvent(tt.prev, tt.curr))
		})
	}
}
