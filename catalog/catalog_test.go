package catalog

import (
	"testing"

	"eventura/models"

	"github.com/stretchr/testify/assert"
)

func TestShapeEvents(t *testing.T) {
	assert.NotNil(t, ShapeEvents(nil))
	assert.Empty(t, ShapeEvents(nil))

	events := []models.Event{{EventID: "ev1"}}
	assert.Equal(t, events, ShapeEvents(events))
}

func TestAverageRating(t *testing.T) {
	// no reviews yet
	assert.Zero(t, AverageRating(0, 0))

	// one 4-star review
	assert.InDelta(t, 4.0, AverageRating(4, 1), 0.001)

	// 4+4+4+5 = 17 over 4 reviews; the order increments arrived in is
	// irrelevant because only the counters are stored
	assert.InDelta(t, 4.25, AverageRating(17, 4), 0.001)

	assert.InDelta(t, 3.4, AverageRating(17, 5), 0.001)
}
