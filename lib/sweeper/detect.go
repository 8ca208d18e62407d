package sweeper

import "github.com/fiffu/seatwatch/lib/models"

// DetectEvent compares the previous and current remaining-seat counts.
// Decreases and unchanged counts are not events.
func DetectEvent(prev, curr int) models.EventType {
	switch {
	case prev <= 0 && curr > 0:
		return models.EventOpen
	case prev > 0 && curr > prev:
		return models.EventIncrease
	default:
		return models.EventNone
	}
}
